package ringbuffer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

func TestIngestTick_TracksPeakAndRug(t *testing.T) {
	r := New(DefaultConfig())
	r.StartGame("g1", 0)

	r.IngestTick(model.GameTick{GameID: "g1", Tick: 1, Price: decimal.RequireFromString("1.0")})
	r.IngestTick(model.GameTick{GameID: "g1", Tick: 2, Price: decimal.RequireFromString("3.5")})
	r.IngestTick(model.GameTick{GameID: "g1", Tick: 3, Price: decimal.RequireFromString("2.0"), Rugged: true})

	cur, ok := r.Current()
	require.True(t, ok)
	require.True(t, cur.PeakPrice.Equal(decimal.RequireFromString("3.5")))
	require.NotNil(t, cur.RuggedAtTick)
	require.Equal(t, int64(3), *cur.RuggedAtTick)
}

func TestIngestTick_TruncatesAtMaxTicksPerGame(t *testing.T) {
	r := New(Config{MaxSessions: 10, MaxTicksPerGame: 2})
	r.StartGame("g1", 0)

	for i := int64(1); i <= 5; i++ {
		r.IngestTick(model.GameTick{GameID: "g1", Tick: i, Price: decimal.RequireFromString("1.0")})
	}

	cur, ok := r.Current()
	require.True(t, ok)
	require.Len(t, cur.Ticks, 2)
	require.True(t, cur.Truncated)
}

func TestCompleteGame_EvictsOldestOnceAtCapacity(t *testing.T) {
	r := New(Config{MaxSessions: 2, MaxTicksPerGame: 100})

	for i, id := range []string{"g1", "g2", "g3"} {
		r.StartGame(id, 0)
		r.CompleteGame(model.Summary{GameID: id, TotalTicks: int64(i)})
	}

	games := r.GetLastGames(10)
	require.Len(t, games, 2)
	require.Equal(t, "g2", games[0].GameID)
	require.Equal(t, "g3", games[1].GameID)
}

func TestGetLastGames_CountClampedToAvailable(t *testing.T) {
	r := New(DefaultConfig())
	r.StartGame("g1", 0)
	r.CompleteGame(model.Summary{GameID: "g1"})

	require.Len(t, r.GetLastGames(100), 1)
}

type fakeWarmStarter struct {
	sessions []model.GameSession
	err      error
}

func (f fakeWarmStarter) RecentSessions(limit int) ([]model.GameSession, error) {
	return f.sessions, f.err
}

func TestWarmStart_PopulatesFromStore(t *testing.T) {
	r := New(DefaultConfig())
	src := fakeWarmStarter{sessions: []model.GameSession{{GameID: "old1"}, {GameID: "old2"}}}

	r.WarmStart(t.TempDir(), src)

	require.Equal(t, 2, r.Len())
}

func TestWarmStart_FallsBackToDirectoryScanWhenStoreFails(t *testing.T) {
	dir := t.TempDir()
	writeJSONL(t, filepath.Join(dir, "g1.jsonl"), []string{
		`{"event":"game_start","game_id":"g1","timestamp":"2026-01-01T00:00:00.000Z"}`,
		`{"event":"tick","game_id":"g1","tick":1,"timestamp":"2026-01-01T00:00:00.000Z","price":"1.0","phase":"ACTIVE_GAMEPLAY","active":true,"rugged":false,"cooldown_timer_ms":0,"trade_count":0}`,
		`{"event":"game_end","game_id":"g1","total_ticks":1,"peak_price":"1.0","rugged_at_tick":null}`,
	})

	r := New(DefaultConfig())
	r.WarmStart(dir, fakeWarmStarter{err: errors.New("store unavailable")})

	require.Equal(t, 1, r.Len())
	games := r.GetLastGames(10)
	require.Equal(t, "g1", games[0].GameID)
}

func TestWarmStart_NilStoreScansDirectory(t *testing.T) {
	dir := t.TempDir()
	writeJSONL(t, filepath.Join(dir, "g1.jsonl"), []string{
		`{"event":"game_start","game_id":"g1","timestamp":"2026-01-01T00:00:00.000Z"}`,
		`{"event":"game_end","game_id":"g1","total_ticks":0,"peak_price":"0","rugged_at_tick":null}`,
	})

	r := New(DefaultConfig())
	r.WarmStart(dir, nil)

	require.Equal(t, 1, r.Len())
}

func writeJSONL(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, l := range lines {
		_, err := f.WriteString(l + "\n")
		require.NoError(t, err)
	}
}
