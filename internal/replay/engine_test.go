package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
	"github.com/dutchthenomad/rugsreplay/internal/recorder"
	"github.com/dutchthenomad/rugsreplay/internal/ringbuffer"
	"github.com/dutchthenomad/rugsreplay/internal/trade"
)

func newTestDeps(t *testing.T, recorderDir string) Deps {
	t.Helper()
	lcfg := ledger.DefaultConfig()
	lcfg.InitialBalanceSOL = decimal.RequireFromString("1.000")
	b := bus.New(nil)
	l := ledger.New(lcfg, b, nil)
	return Deps{
		Ledger:   l,
		Trader:   trade.New(trade.DefaultConfig(), l),
		Recorder: recorder.New(recorder.DefaultConfig(recorderDir), nil),
		Ring:     ringbuffer.New(ringbuffer.DefaultConfig()),
		Bus:      b,
	}
}

func tick(gameID string, n int64, price string, phase model.Phase, rugged bool, ts time.Time) model.GameTick {
	return model.GameTick{
		GameID:    gameID,
		Tick:      n,
		Timestamp: ts,
		Price:     decimal.RequireFromString(price),
		Phase:     phase,
		Active:    phase == model.PhaseActiveGameplay,
		Rugged:    rugged,
	}
}

func TestEngine_HaltBlocksFurtherCommands(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	e := newEngine(ModeLive, deps, 0)

	e.halt(model.ErrInvariantViolation)
	require.Equal(t, Halted, e.State())

	_, err := e.Buy(decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, model.ErrInvariantViolation)

	_, err = e.Sell(1.0)
	require.ErrorIs(t, err, model.ErrInvariantViolation)

	_, err = e.Sidebet(decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, model.ErrInvariantViolation)
}

func TestApplyTick_DuplicateKeyIsIgnored(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	e := newEngine(ModeLive, deps, 0)

	base := time.Now()
	ok := e.applyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false, base))
	require.True(t, ok)

	// Same (game_id, tick) with a different price must be skipped entirely.
	ok = e.applyTick(tick("g1", 1, "99.0", model.PhaseActiveGameplay, false, base))
	require.True(t, ok)

	snap := deps.Ledger.Snapshot()
	require.True(t, snap.CurrentPrice.Equal(decimal.RequireFromString("1.0")))
}

func TestApplyTick_NewGameIDStartsRecorderAndRing(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	e := newEngine(ModeLive, deps, 0)

	base := time.Now()
	e.applyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false, base))
	_, ok := deps.Ring.Current()
	require.True(t, ok)
	require.True(t, deps.Recorder.IsRecording())
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

func TestFileEngine_PlaysRecordingEndToEnd(t *testing.T) {
	recDir := t.TempDir()
	playDir := t.TempDir()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := func(offsetMs int) string {
		return base.Add(time.Duration(offsetMs) * time.Millisecond).Format("2006-01-02T15:04:05.000Z07:00")
	}

	lines := []string{
		`{"event":"game_start","game_id":"g1","timestamp":"` + ts(0) + `"}`,
		`{"event":"tick","game_id":"g1","tick":1,"timestamp":"` + ts(0) + `","price":"1.0","phase":"ACTIVE_GAMEPLAY","active":true,"rugged":false,"cooldown_timer_ms":0,"trade_count":0}`,
		`{"event":"tick","game_id":"g1","tick":2,"timestamp":"` + ts(10) + `","price":"3.5","phase":"ACTIVE_GAMEPLAY","active":true,"rugged":false,"cooldown_timer_ms":0,"trade_count":0}`,
		`{"event":"tick","game_id":"g1","tick":3,"timestamp":"` + ts(20) + `","price":"2.0","phase":"RUG_EVENT","active":false,"rugged":true,"cooldown_timer_ms":0,"trade_count":0}`,
		`{"event":"game_end","game_id":"g1","total_ticks":3,"peak_price":"3.5","rugged_at_tick":3}`,
	}
	writeJSONL(t, filepath.Join(playDir, "g1.jsonl"), lines)

	deps := newTestDeps(t, recDir)
	fe, err := NewFileEngine(playDir, deps, 0, nil) // speed 0 disables pacing
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, fe.Play(ctx))

	require.Eventually(t, func() bool {
		return fe.State() == Idle
	}, 2*time.Second, 10*time.Millisecond)

	games := deps.Ring.GetLastGames(10)
	require.Len(t, games, 1)
	require.Equal(t, "g1", games[0].GameID)
	require.True(t, games[0].PeakPrice.Equal(decimal.RequireFromString("3.5")))
	require.NotNil(t, games[0].RuggedAtTick)
	require.Equal(t, int64(3), *games[0].RuggedAtTick)

	_, err = os.Stat(filepath.Join(recDir, "g1.jsonl"))
	require.NoError(t, err)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	deps := newTestDeps(t, t.TempDir())
	e := newEngine(ModeLive, deps, 0)

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
}
