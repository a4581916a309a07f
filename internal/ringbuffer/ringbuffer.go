// Package ringbuffer holds the most recent completed games in memory for
// instant UI access, bounded to a fixed capacity of sessions and a fixed
// capacity of ticks per session. Grounded on the teacher's in-memory
// position/trade slices in core.Engine, generalized into a dedicated
// bounded container since the teacher never needed session eviction.
package ringbuffer

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/model"
	"github.com/dutchthenomad/rugsreplay/internal/source"
)

const (
	DefaultMaxSessions    = 10
	DefaultMaxTicksPerGame = 10000
)

type Config struct {
	MaxSessions    int
	MaxTicksPerGame int
}

func DefaultConfig() Config {
	return Config{MaxSessions: DefaultMaxSessions, MaxTicksPerGame: DefaultMaxTicksPerGame}
}

// RingBuffer is a fixed-capacity deque of game sessions, oldest evicted
// first once capacity is reached.
type RingBuffer struct {
	cfg Config

	mu       sync.RWMutex
	sessions []model.GameSession
	current  *model.GameSession
}

func New(cfg Config) *RingBuffer {
	return &RingBuffer{cfg: cfg}
}

// StartGame opens a new in-progress session, pushing any previous
// in-progress session onto the completed deque first (it should normally
// already have been closed by CompleteGame).
func (r *RingBuffer) StartGame(gameID string, startTick int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		log.Warn().Str("game_id", r.current.GameID).Msg("ringbuffer: starting new game while previous session still open")
		r.pushLocked(*r.current)
	}

	r.current = &model.GameSession{GameID: gameID, StartTick: startTick}
}

// IngestTick appends a tick to the in-progress session, capping storage at
// MaxTicksPerGame and marking the session Truncated once the cap is hit.
func (r *RingBuffer) IngestTick(tick model.GameTick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		r.current = &model.GameSession{GameID: tick.GameID, StartTick: tick.Tick}
	}

	if len(r.current.Ticks) < r.cfg.MaxTicksPerGame {
		r.current.Ticks = append(r.current.Ticks, tick)
	} else {
		r.current.Truncated = true
	}

	if tick.Price.GreaterThan(r.current.PeakPrice) {
		r.current.PeakPrice = tick.Price
	}
	r.current.EndTick = tick.Tick
	if tick.Rugged {
		t := tick.Tick
		r.current.RuggedAtTick = &t
	}
}

// CompleteGame closes out the in-progress session and pushes it onto the
// completed deque, evicting the oldest session if at capacity.
func (r *RingBuffer) CompleteGame(summary model.Summary) model.GameSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var done model.GameSession
	if r.current != nil {
		done = *r.current
	} else {
		done = model.GameSession{GameID: summary.GameID}
	}
	done.GameID = summary.GameID
	done.PeakPrice = summary.PeakPrice
	done.RuggedAtTick = summary.RuggedAtTick
	done.EndTick = done.StartTick + summary.TotalTicks
	r.current = nil

	r.pushLocked(done)
	return done
}

func (r *RingBuffer) pushLocked(s model.GameSession) {
	r.sessions = append(r.sessions, s)
	if len(r.sessions) > r.cfg.MaxSessions {
		drop := len(r.sessions) - r.cfg.MaxSessions
		r.sessions = append([]model.GameSession(nil), r.sessions[drop:]...)
	}
}

// GetLastGames returns a copy of up to count most recent completed
// sessions, most recent last.
func (r *RingBuffer) GetLastGames(count int) []model.GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if count <= 0 || count > len(r.sessions) {
		count = len(r.sessions)
	}
	start := len(r.sessions) - count
	out := make([]model.GameSession, count)
	copy(out, r.sessions[start:])
	return out
}

// Current returns a copy of the in-progress session, if any.
func (r *RingBuffer) Current() (model.GameSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return model.GameSession{}, false
	}
	return *r.current, true
}

func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// WarmStarter is satisfied by internal/store; WarmStart tries it as a
// fast path (one indexed query) before falling back to scanning dir.
type WarmStarter interface {
	RecentSessions(limit int) ([]model.GameSession, error)
}

// WarmStart best-effort populates the buffer so a restarted process
// doesn't start with an empty history. It tries store first when
// non-nil; on a nil store or a query failure it falls back to scanning
// dir for the N most recent .jsonl recordings in chronological order,
// per the ring buffer's warm_start(directory) contract — so history is
// recovered from the recorder's own output even with no audit store
// configured. Malformed files are skipped with a warning. Failures are
// logged and swallowed: a cold ring buffer is never fatal.
func (r *RingBuffer) WarmStart(dir string, store WarmStarter) {
	if store != nil {
		sessions, err := store.RecentSessions(r.cfg.MaxSessions)
		if err == nil {
			r.loadSessions(sessions)
			log.Info().Int("sessions", len(sessions)).Msg("ringbuffer: warm started from durable store")
			return
		}
		log.Warn().Err(err).Msg("ringbuffer: store warm start failed, falling back to recording directory scan")
	}

	sessions, err := r.scanRecordings(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("ringbuffer: warm start failed, starting cold")
		return
	}
	r.loadSessions(sessions)
	log.Info().Int("sessions", len(sessions)).Msg("ringbuffer: warm started from recording directory scan")
}

func (r *RingBuffer) loadSessions(sessions []model.GameSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = nil
	for _, s := range sessions {
		r.pushLocked(s)
	}
}

// scanRecordings reads up to MaxSessions most recent .jsonl files in dir,
// sorted oldest-to-newest by modification time, and rebuilds a
// GameSession from each.
func (r *RingBuffer) scanRecordings(dir string) ([]model.GameSession, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type recording struct {
		path    string
		modTime int64
	}
	var files []recording
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".jsonl" {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		files = append(files, recording{path: filepath.Join(dir, ent.Name()), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })
	if len(files) > r.cfg.MaxSessions {
		files = files[len(files)-r.cfg.MaxSessions:]
	}

	sessions := make([]model.GameSession, 0, len(files))
	for _, f := range files {
		fs, err := source.Load(f.path, nil)
		if err != nil {
			log.Warn().Str("path", f.path).Err(err).Msg("ringbuffer: skipping malformed recording during warm start")
			continue
		}
		sessions = append(sessions, model.GameSession{
			GameID:       fs.GameID,
			EndTick:      fs.TotalTicks,
			PeakPrice:    fs.PeakPrice,
			RuggedAtTick: fs.RuggedAtTick,
			Ticks:        fs.Ticks(),
			Truncated:    fs.Len() > r.cfg.MaxTicksPerGame,
		})
	}
	return sessions, nil
}
