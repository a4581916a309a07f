package replay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/model"
	"github.com/dutchthenomad/rugsreplay/internal/source"
)

// LiveRunner is satisfied by source.LiveSource; kept as an interface here
// so callers that construct the engine in tests can supply a fake feed.
type LiveRunner interface {
	Run(ctx context.Context, push source.PushFunc) error
	Close() error
}

// LiveEngine ingests ticks pushed from a live feed connection. There is
// no wall-clock pacing (the feed already arrives in real time) and no
// file to advance — games are bounded purely by game_id changes and rug
// events observed in the tick stream itself.
type LiveEngine struct {
	*Engine

	runner LiveRunner
}

func NewLiveEngine(runner LiveRunner, d Deps) *LiveEngine {
	return &LiveEngine{
		Engine: newEngine(ModeLive, d, 0),
		runner: runner,
	}
}

// Play connects the live runner and ingests until ctx is canceled or
// Stop is called. Blocks for the lifetime of the connection; callers
// that want fire-and-forget should invoke it in its own goroutine.
func (le *LiveEngine) Play(ctx context.Context) error {
	le.mu.Lock()
	if le.state == Playing {
		le.mu.Unlock()
		return nil
	}
	if le.state == Halted {
		le.mu.Unlock()
		return fmt.Errorf("%w: engine halted, restart required", model.ErrInvariantViolation)
	}
	le.state = Playing
	le.stopCh = make(chan struct{})
	le.resumeCh = make(chan struct{}, 1)
	le.mu.Unlock()

	err := le.runner.Run(ctx, le.PushTick)

	le.mu.Lock()
	if le.state != Halted {
		le.state = Idle
	}
	le.mu.Unlock()

	return err
}

// PushTick is the live source's callback, running one tick through the
// pipeline synchronously. Pausing in live mode drops ticks on the floor
// rather than queuing them (there is no buffer to replay from later).
func (le *LiveEngine) PushTick(tick model.GameTick) {
	le.mu.Lock()
	state := le.state
	le.mu.Unlock()

	switch state {
	case Paused:
		log.Debug().Int64("tick", tick.Tick).Msg("replay: dropping tick while paused (live mode)")
		return
	case Stopping, Halted:
		return
	}

	le.applyTick(tick)
}

// Pause stops processing incoming ticks without disconnecting the feed.
func (le *LiveEngine) Pause() error {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.state != Playing {
		return fmt.Errorf("%w: pause is only valid while playing", model.ErrInvariantViolation)
	}
	le.state = Paused
	return nil
}

// Resume resumes processing incoming ticks.
func (le *LiveEngine) Resume() error {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.state != Paused {
		return fmt.Errorf("%w: resume is only valid while paused", model.ErrInvariantViolation)
	}
	le.state = Playing
	return nil
}

// Stop disconnects the live runner in addition to the base Engine.Stop
// bookkeeping.
func (le *LiveEngine) Stop() error {
	if le.runner != nil {
		_ = le.runner.Close()
	}
	return le.Engine.Stop()
}
