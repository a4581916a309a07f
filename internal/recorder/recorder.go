// Package recorder is a bounded, backpressure-aware writer that durably
// persists the live tick stream to one .jsonl file per game. Grounded on
// the teacher's storage.Database "isolate failures, log and continue"
// discipline, reshaped from SQL writes to buffered line-delimited file
// writes, and on the feed-simulator's "drop rather than block" backpressure
// idiom for the overflow-trim path.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// Counters is the narrow telemetry surface the recorder pushes to.
type Counters interface {
	IncDroppedTicks(n int)
	IncRecorderFailure()
}

type Recorder struct {
	cfg      Config
	counters Counters

	mu                  sync.Mutex
	file                *os.File
	writer              *bufio.Writer
	gameID              string
	buffer              [][]byte
	lastFlush           time.Time
	consecutiveFailures int
	stopped             bool
	recording           bool
}

func New(cfg Config, counters Counters) *Recorder {
	return &Recorder{cfg: cfg, counters: counters}
}

// StartRecording opens <dir>/<game_id>.jsonl, after a free-space precheck.
func (r *Recorder) StartRecording(gameID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	if r.stopped {
		return ErrNotRecording
	}

	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", model.ErrRecorder, err)
	}

	free, err := freeBytes(r.cfg.Dir)
	if err == nil && free < r.cfg.MinFreeDiskBytes {
		return ErrInsufficientDiskSpace
	}

	path := filepath.Join(r.cfg.Dir, gameID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", model.ErrRecorder, path, err)
	}

	r.file = f
	r.writer = bufio.NewWriter(f)
	r.gameID = gameID
	r.buffer = nil
	r.lastFlush = time.Now()
	r.consecutiveFailures = 0
	r.recording = true

	line, merr := marshalGameStart(gameID, startedAt.UTC().Format(time.RFC3339Nano))
	if merr == nil {
		r.buffer = append(r.buffer, line)
		// Write the header now so the tick threshold counts tick lines only.
		r.flushLocked()
	}

	return nil
}

// RecordTick serializes and buffers a tick, flushing when the buffer
// crosses flush_threshold_ticks or flush_interval_s has elapsed. Returns
// false (without buffering) once the recorder has stopped after too many
// consecutive flush failures.
func (r *Recorder) RecordTick(tick model.GameTick) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording || r.stopped {
		return false
	}

	line, err := marshalTick(tick)
	if err != nil {
		log.Warn().Err(err).Msg("recorder: failed to serialize tick, skipping")
		return false
	}
	if len(line) > r.cfg.MaxTickBytes {
		log.Warn().Int("bytes", len(line)).Msg("recorder: oversized tick rejected")
		return false
	}

	r.buffer = append(r.buffer, line)

	shouldFlush := len(r.buffer) >= r.cfg.FlushThresholdTicks ||
		time.Since(r.lastFlush) >= r.cfg.FlushInterval
	if shouldFlush {
		r.flushLocked()
	}
	return true
}

// EndGame writes the game_end line, force-flushes, and closes the file.
func (r *Recorder) EndGame(summary model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return ErrNotRecording
	}

	line, err := marshalGameEnd(summary)
	if err == nil {
		r.buffer = append(r.buffer, line)
	}
	r.flushLocked()

	closeErr := r.closeFileLocked()
	r.recording = false
	return closeErr
}

// flushLocked performs write+fsync under the caller's lock. On failure it
// logs, retries once after RetryDelay, and if that also fails while the
// buffer holds at least MaxBufferSize lines, trims the oldest 25% of the
// buffer (never the newest — which may carry GAME_END) and counts the drop. After MaxConsecutiveFailures it stops recording
// entirely; subsequent RecordTick calls return false.
func (r *Recorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}

	if err := r.writeAndSync(); err != nil {
		log.Error().Err(err).Msg("recorder: flush failed, retrying")
		time.Sleep(r.cfg.RetryDelay)

		if err := r.writeAndSync(); err != nil {
			log.Error().Err(err).Msg("recorder: retry failed")
			r.consecutiveFailures++
			if r.counters != nil {
				r.counters.IncRecorderFailure()
			}

			if len(r.buffer) >= r.cfg.MaxBufferSize {
				drop := len(r.buffer) / 4
				if drop > 0 {
					r.buffer = append([][]byte(nil), r.buffer[drop:]...)
					if r.counters != nil {
						r.counters.IncDroppedTicks(drop)
					}
				}
			}

			if r.consecutiveFailures >= r.cfg.MaxConsecutiveFailures {
				log.Error().Msg("recorder: too many consecutive flush failures, stopping recording")
				r.stopped = true
				r.closeFileLocked()
				r.recording = false
			}
			return
		}
	}

	r.consecutiveFailures = 0
	r.lastFlush = time.Now()
}

func (r *Recorder) writeAndSync() error {
	if r.writer == nil || r.file == nil {
		return fmt.Errorf("%w: no open file", model.ErrRecorder)
	}
	for _, line := range r.buffer {
		if _, err := r.writer.Write(line); err != nil {
			return err
		}
		if err := r.writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := r.writer.Flush(); err != nil {
		return err
	}
	if err := r.file.Sync(); err != nil {
		return err
	}
	r.buffer = r.buffer[:0]
	return nil
}

func (r *Recorder) closeFileLocked() error {
	var err error
	if r.writer != nil {
		err = r.writer.Flush()
	}
	if r.file != nil {
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.file = nil
	}
	r.writer = nil
	return err
}

// Stop flushes and closes any open file handle. Safe to call more than
// once and guaranteed to leave no dangling file handle behind.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}
	r.flushLocked()
	err := r.closeFileLocked()
	r.recording = false
	return err
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
