package recorder

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

func TestStartRecording_WritesGameStartLine(t *testing.T) {
	dir := t.TempDir()
	r := New(DefaultConfig(dir), nil)

	require.NoError(t, r.StartRecording("g1", time.Unix(0, 0)))
	require.NoError(t, r.EndGame(model.Summary{GameID: "g1", TotalTicks: 0}))

	lines := readLines(t, filepath.Join(dir, "g1.jsonl"))
	require.GreaterOrEqual(t, len(lines), 2)
	require.Contains(t, lines[0], `"event":"game_start"`)
}

func TestRecordTick_FlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.FlushThresholdTicks = 2
	r := New(cfg, nil)

	require.NoError(t, r.StartRecording("g1", time.Unix(0, 0)))
	require.True(t, r.RecordTick(model.GameTick{GameID: "g1", Tick: 1, Price: decimal.RequireFromString("1.0")}))
	require.True(t, r.RecordTick(model.GameTick{GameID: "g1", Tick: 2, Price: decimal.RequireFromString("1.0")}))

	lines := readLines(t, filepath.Join(dir, "g1.jsonl"))
	require.GreaterOrEqual(t, len(lines), 3) // game_start + 2 ticks
}

func TestRecordTick_OversizedTickRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.MaxTickBytes = 1
	r := New(cfg, nil)

	require.NoError(t, r.StartRecording("g1", time.Unix(0, 0)))
	ok := r.RecordTick(model.GameTick{GameID: "g1", Tick: 1, Price: decimal.RequireFromString("1.0")})
	require.False(t, ok)
}

func TestStop_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := New(DefaultConfig(dir), nil)
	require.NoError(t, r.StartRecording("g1", time.Unix(0, 0)))

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
}

func TestStartRecording_RejectsDoubleStart(t *testing.T) {
	dir := t.TempDir()
	r := New(DefaultConfig(dir), nil)
	require.NoError(t, r.StartRecording("g1", time.Unix(0, 0)))

	err := r.StartRecording("g1", time.Unix(0, 0))
	require.ErrorIs(t, err, ErrAlreadyRecording)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}
