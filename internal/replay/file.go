package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/model"
	"github.com/dutchthenomad/rugsreplay/internal/source"
)

// FileEngine paces a directory of recorded .jsonl files through the
// pipeline, wall-clock spaced by each tick's recorded timestamp delta
// (scaled by playback_speed), auto-advancing to the next file once one
// finishes.
type FileEngine struct {
	*Engine

	dir      string
	files    []string
	index    int
	cur      *source.FileSource
	counters source.Counters
}

// NewFileEngine discovers every .jsonl file in dir, sorted by name
// (recordings are named by game_id, which sorts chronologically for this
// system's ID scheme). counters may be nil.
func NewFileEngine(dir string, d Deps, playbackSpeed float64, counters source.Counters) (*FileEngine, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir %s: %v", model.ErrSource, dir, err)
	}

	var files []string
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".jsonl" {
			continue
		}
		files = append(files, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(files)

	return &FileEngine{
		Engine:   newEngine(ModeFile, d, playbackSpeed),
		dir:      dir,
		files:    files,
		counters: counters,
	}, nil
}

// Play starts (or resumes) playback in a background goroutine. Returns
// immediately; use State() to observe progress. Stop() signals the
// goroutine to stop but does not wait for it to exit.
func (fe *FileEngine) Play(ctx context.Context) error {
	fe.mu.Lock()
	switch fe.state {
	case Playing:
		fe.mu.Unlock()
		return nil
	case Paused:
		fe.state = Playing
		resumeCh := fe.resumeCh
		fe.mu.Unlock()
		select {
		case resumeCh <- struct{}{}:
		default:
		}
		return nil
	case Halted:
		fe.mu.Unlock()
		return fmt.Errorf("%w: engine halted, restart required", model.ErrInvariantViolation)
	}
	fe.state = Playing
	fe.stopCh = make(chan struct{})
	fe.resumeCh = make(chan struct{}, 1)
	fe.mu.Unlock()

	if fe.cur == nil {
		if err := fe.loadNext(); err != nil {
			return err
		}
	}

	go fe.run(ctx)
	return nil
}

func (fe *FileEngine) loadNext() error {
	if fe.index >= len(fe.files) {
		return fmt.Errorf("%w: no more files in %s", model.ErrSource, fe.dir)
	}
	path := fe.files[fe.index]
	fs, err := source.Load(path, fe.counters)
	if err != nil {
		return err
	}
	fe.cur = fs
	fe.index++
	log.Info().Str("path", path).Int("ticks", fs.Len()).Msg("replay: loaded recording")
	return nil
}

func (fe *FileEngine) run(ctx context.Context) {
	for {
		if !fe.waitForResume(ctx) {
			fe.finishStop()
			return
		}

		tick, ok, err := fe.cur.NextTick(ctx)
		if err != nil {
			log.Error().Err(err).Msg("replay: file source read error")
			fe.finishStop()
			return
		}
		if !ok {
			fe.finishCurrentFile()

			fe.mu.Lock()
			autoAdvance := fe.autoAdvance
			fe.mu.Unlock()
			if !autoAdvance {
				log.Info().Msg("replay: recording finished, auto-advance disabled, stopping")
				fe.finishStop()
				return
			}
			if err := fe.advanceToNextFile(); err != nil {
				log.Info().Msg("replay: no more recordings, stopping")
				fe.finishStop()
				return
			}
			continue
		}

		fe.pace(tick)

		if !fe.applyTick(*tick) {
			fe.finishStop()
			return
		}
	}
}

// pace sleeps until the next tick's recorded timestamp delta has elapsed,
// scaled by playback speed; a speed of 0 disables pacing entirely.
func (fe *FileEngine) pace(tick *model.GameTick) {
	if fe.playbackSpeed <= 0 {
		return
	}
	prev, ok := fe.cur.Peek(-2)
	if !ok {
		return
	}
	fe.mu.Lock()
	min, max := fe.minTickInterval, fe.maxTickInterval
	fe.mu.Unlock()

	delta := tick.Timestamp.Sub(prev.Timestamp)
	delta = clampDuration(delta, min, max)
	time.Sleep(time.Duration(float64(delta) / fe.playbackSpeed))
}

func (fe *FileEngine) finishCurrentFile() {
	summary := model.Summary{
		GameID:       fe.cur.GameID,
		TotalTicks:   fe.cur.TotalTicks,
		RuggedAtTick: fe.cur.RuggedAtTick,
	}
	summary.PeakPrice = fe.cur.PeakPrice
	fe.endGame(summary)
}

func (fe *FileEngine) advanceToNextFile() error {
	return fe.loadNext()
}

func (fe *FileEngine) finishStop() {
	fe.mu.Lock()
	if fe.state != Halted {
		fe.state = Idle
	}
	fe.mu.Unlock()
}

// Pause suspends playback after the in-flight tick finishes.
func (fe *FileEngine) Pause() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if fe.state != Playing {
		return fmt.Errorf("%w: pause is only valid while playing", model.ErrInvariantViolation)
	}
	fe.state = Paused
	return nil
}

// Resume is an alias for Play when already paused.
func (fe *FileEngine) Resume(ctx context.Context) error {
	return fe.Play(ctx)
}

// Step advances exactly one tick while paused.
func (fe *FileEngine) Step() error {
	fe.mu.Lock()
	if fe.state != Paused {
		fe.mu.Unlock()
		return fmt.Errorf("%w: step is only valid while paused", model.ErrInvariantViolation)
	}
	fe.mu.Unlock()

	tick, ok, err := fe.cur.NextTick(context.Background())
	if err != nil {
		return err
	}
	if !ok {
		fe.finishCurrentFile()
		return fe.advanceToNextFile()
	}
	fe.applyTick(*tick)
	return nil
}

// Seek repositions within the currently loaded file. Only valid while
// paused or idle — seeking mid-play would race the playback goroutine.
func (fe *FileEngine) Seek(index int) error {
	fe.mu.Lock()
	state := fe.state
	fe.mu.Unlock()
	if state == Playing {
		return fmt.Errorf("%w: seek requires the engine to be paused", model.ErrInvariantViolation)
	}
	if fe.cur == nil {
		return fmt.Errorf("%w: no recording loaded", model.ErrSource)
	}
	return fe.cur.Seek(index)
}
