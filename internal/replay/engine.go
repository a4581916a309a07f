// Package replay is the central orchestrator: it drives ticks (either
// paced out of a recorded file or pushed live) through the ledger, the
// trade manager, the recorder, and the ring buffer in the fixed order the
// rest of the system depends on. Grounded on the teacher's core.Engine —
// same mu-guarded running/stopCh shape, same "one goroutine reads the
// feed, processTick fans out to the downstream components" structure —
// generalized from Engine's strategy/risk/execution chain to this
// system's apply/trade/record/buffer chain.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
	"github.com/dutchthenomad/rugsreplay/internal/recorder"
	"github.com/dutchthenomad/rugsreplay/internal/ringbuffer"
	"github.com/dutchthenomad/rugsreplay/internal/trade"
)

// RunState is the engine's lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Playing
	Paused
	Stopping
	Halted // invariant violation; refuses further commands until Stop+restart
)

func (s RunState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	case Halted:
		return "halted"
	default:
		return "idle"
	}
}

// Mode distinguishes file-mode pull playback from live-mode push ingestion.
type Mode int

const (
	ModeFile Mode = iota
	ModeLive
)

type Engine struct {
	mode Mode

	ledger   *ledger.Ledger
	trader   *trade.Manager
	recorder *recorder.Recorder
	ring     *ringbuffer.RingBuffer
	bus      *bus.Bus

	playbackSpeed   float64
	minTickInterval time.Duration
	maxTickInterval time.Duration
	autoAdvance     bool

	mu            sync.Mutex
	state         RunState
	resumeCh      chan struct{}
	stopCh        chan struct{}
	currentGameID string
	lastKey       model.TickKey
	haveLastKey   bool
}

// Deps bundles the collaborators every mode wires identically.
type Deps struct {
	Ledger   *ledger.Ledger
	Trader   *trade.Manager
	Recorder *recorder.Recorder
	Ring     *ringbuffer.RingBuffer
	Bus      *bus.Bus
}

func newEngine(mode Mode, d Deps, playbackSpeed float64) *Engine {
	return &Engine{
		mode:            mode,
		ledger:          d.Ledger,
		trader:          d.Trader,
		recorder:        d.Recorder,
		ring:            d.Ring,
		bus:             d.Bus,
		playbackSpeed:   playbackSpeed,
		minTickInterval: defaultMinTickInterval,
		maxTickInterval: defaultMaxTickInterval,
		autoAdvance:     true,
		state:           Idle,
	}
}

// SetPacing overrides the clamp bounds used between file-mode ticks, per
// the configured playback.min_tick_interval_ms/max_tick_interval_s. Safe
// to call before Play; has no effect on an in-flight sleep.
func (e *Engine) SetPacing(min, max time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minTickInterval = min
	e.maxTickInterval = max
}

// SetAutoAdvance controls whether file mode loads the next recording in
// the directory once the current one ends, per playback.auto_advance.
func (e *Engine) SetAutoAdvance(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoAdvance = v
}

func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop halts playback, flushes the recorder, and is safe to call more
// than once or from Idle.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == Idle || e.state == Stopping {
		e.mu.Unlock()
		return e.recorder.Stop()
	}
	e.state = Stopping
	stopCh := e.stopCh
	e.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	return e.recorder.Stop()
}

func (e *Engine) halt(reason error) {
	e.mu.Lock()
	e.state = Halted
	e.mu.Unlock()
	log.Error().Err(reason).Msg("replay: invariant violation, halting and refusing further commands")
	if e.recorder != nil {
		if err := e.recorder.Stop(); err != nil {
			log.Error().Err(err).Msg("replay: failed to flush recorder on halt")
		}
	}
	if e.bus != nil {
		e.bus.Publish(bus.Error, reason)
	}
}

func (e *Engine) refusedIfHalted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Halted {
		return fmt.Errorf("%w: engine halted on prior invariant violation", model.ErrInvariantViolation)
	}
	return nil
}

// applyTick runs one tick through the fixed pipeline: new-game bookkeeping,
// ledger apply, invariant check, trade manager resolution, recording, ring
// buffer ingestion. Returns false if the engine halted mid-tick.
func (e *Engine) applyTick(tick model.GameTick) bool {
	if err := e.refusedIfHalted(); err != nil {
		return false
	}

	key := tick.Key()
	e.mu.Lock()
	if e.haveLastKey && key == e.lastKey {
		e.mu.Unlock()
		return true // duplicate tick, already applied — skip silently
	}
	newGame := tick.GameID != e.currentGameID
	e.mu.Unlock()

	if newGame {
		e.startGame(tick)
	}

	if err := e.ledger.ApplyTick(tick); err != nil {
		log.Error().Err(err).Msg("replay: ledger apply failed")
		return true
	}

	if err := e.ledger.CheckInvariants(); err != nil {
		e.halt(err)
		return false
	}

	if err := e.trader.OnTick(tick); err != nil {
		log.Warn().Err(err).Msg("replay: trade manager tick resolution failed")
	}

	if e.bus != nil {
		e.bus.Publish(bus.GameTick, tick)
	}

	if e.recorder != nil {
		e.recorder.RecordTick(tick)
	}
	if e.ring != nil {
		e.ring.IngestTick(tick)
	}

	e.mu.Lock()
	e.lastKey = key
	e.haveLastKey = true
	e.mu.Unlock()

	if tick.Rugged && e.mode == ModeLive {
		// Live mode has no separate game_end record; the rug tick itself
		// ends the game. File mode ends games on source EOF instead,
		// where the recorded game_end line's totals are authoritative.
		e.endGameComputed(tick)
	}

	return true
}

// startGame resets the ledger for a new game (carrying the wallet across
// in live mode, fresh in file mode), opens the recorder, and starts a new
// ring buffer session — exactly once per game_id.
func (e *Engine) startGame(tick model.GameTick) {
	keepBalance := e.mode == ModeLive

	e.mu.Lock()
	e.currentGameID = tick.GameID
	e.haveLastKey = false
	e.mu.Unlock()

	if err := e.ledger.Reset(keepBalance); err != nil {
		log.Error().Err(err).Msg("replay: ledger reset failed")
	}

	if e.recorder != nil {
		if err := e.recorder.StartRecording(tick.GameID, tick.Timestamp); err != nil {
			log.Error().Err(err).Str("game_id", tick.GameID).Msg("replay: failed to start recording")
		}
	}
	if e.ring != nil {
		e.ring.StartGame(tick.GameID, tick.Tick)
	}
	if e.bus != nil {
		e.bus.Publish(bus.GameStart, model.GameStartPayload{GameID: tick.GameID, StartedAt: tick.Timestamp})
	}
	log.Info().Str("game_id", tick.GameID).Msg("replay: game started")
}

// endGame finalizes a game using an authoritative summary (file mode,
// parsed from the recorded game_end line).
func (e *Engine) endGame(summary model.Summary) {
	if e.recorder != nil {
		if err := e.recorder.EndGame(summary); err != nil {
			log.Error().Err(err).Msg("replay: failed to finalize recording")
		}
	}
	if e.ring != nil {
		e.ring.CompleteGame(summary)
	}
	if e.bus != nil {
		e.bus.Publish(bus.GameEnd, summary)
	}
	log.Info().Str("game_id", summary.GameID).Int64("total_ticks", summary.TotalTicks).Msg("replay: game ended")
}

// endGameComputed builds a summary from the ring buffer's own tracked
// peak/rug-tick bookkeeping, used in live mode where no game_end record
// exists on the wire.
func (e *Engine) endGameComputed(tick model.GameTick) {
	session, ok := e.ring.Current()
	summary := model.Summary{GameID: tick.GameID, TotalTicks: tick.Tick}
	if ok {
		summary.PeakPrice = session.PeakPrice
		summary.RuggedAtTick = session.RuggedAtTick
	}
	e.endGame(summary)
}

// clampDuration bounds wall-clock pacing between ticks so a corrupted or
// missing timestamp delta never stalls playback for an unreasonable time
// nor bursts faster than a sane minimum spacing.
func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

const (
	defaultMinTickInterval = 50 * time.Millisecond
	defaultMaxTickInterval = 5 * time.Second
)

// waitForResume blocks while paused, returning false if Stop was called
// in the meantime.
func (e *Engine) waitForResume(ctx context.Context) bool {
	for {
		e.mu.Lock()
		state := e.state
		resumeCh := e.resumeCh
		stopCh := e.stopCh
		e.mu.Unlock()

		if state != Paused {
			return state != Stopping && state != Halted
		}

		select {
		case <-ctx.Done():
			return false
		case <-stopCh:
			return false
		case <-resumeCh:
		}
	}
}
