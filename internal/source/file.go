package source

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// FileSource parses one .jsonl file into a finite, in-memory sequence of
// ticks. It holds the full tick array for the currently loaded file —
// bounded by file size, per the spec's file-mode contract.
type FileSource struct {
	path   string
	ticks  []model.GameTick
	cursor int

	GameID       string
	TotalTicks   int64
	PeakPrice    decimal.Decimal
	RuggedAtTick *int64
}

// Load parses the file at path. Unknown event lines are skipped with a
// warning; truncated/malformed lines increment malformed_ticks_total but
// don't abort the load — a partial file still plays as far as it parses.
func Load(path string, counters Counters) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrSource, path, err)
	}
	defer f.Close()

	fs := &FileSource{path: path}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		kind, tick, start, end, perr := parseLine(line)
		if perr != nil {
			log.Warn().Str("path", path).Int("line", lineNo).Err(perr).Msg("source: skipping malformed line")
			if counters != nil {
				counters.IncMalformedTick()
			}
			continue
		}
		switch kind {
		case "tick":
			fs.ticks = append(fs.ticks, *tick)
		case "game_start":
			fs.GameID = start.GameID
		case "game_end":
			fs.TotalTicks = end.TotalTicks
			fs.PeakPrice = end.PeakPrice
			fs.RuggedAtTick = end.RuggedAtTick
		default:
			log.Warn().Str("path", path).Int("line", lineNo).Msg("source: ignoring unknown event")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", model.ErrSource, path, err)
	}

	return fs, nil
}

// NextTick returns the next tick in file order, or (nil, false, nil) at EOF.
func (fs *FileSource) NextTick(ctx context.Context) (*model.GameTick, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	if fs.cursor >= len(fs.ticks) {
		return nil, false, nil
	}
	t := fs.ticks[fs.cursor]
	fs.cursor++
	return &t, true, nil
}

// Peek returns the tick at cursor+offset without consuming it, used by the
// pacing calculation to read the previous tick's timestamp (offset -2,
// since NextTick has already advanced past the current tick).
func (fs *FileSource) Peek(offset int) (*model.GameTick, bool) {
	idx := fs.cursor + offset
	if idx < 0 || idx >= len(fs.ticks) {
		return nil, false
	}
	return &fs.ticks[idx], true
}

// Seek repositions the cursor to an absolute tick index.
func (fs *FileSource) Seek(index int) error {
	if index < 0 || index > len(fs.ticks) {
		return fmt.Errorf("%w: seek index %d out of range [0,%d]", model.ErrSource, index, len(fs.ticks))
	}
	fs.cursor = index
	return nil
}

// Ticks returns the full parsed tick sequence, used by warm-start
// rebuilding a GameSession from a recorded file.
func (fs *FileSource) Ticks() []model.GameTick { return fs.ticks }

func (fs *FileSource) Len() int     { return len(fs.ticks) }
func (fs *FileSource) Cursor() int  { return fs.cursor }
func (fs *FileSource) Close() error { return nil }
