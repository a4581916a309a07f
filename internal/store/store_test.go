package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	return s
}

func TestSaveSession_RoundTripsThroughRecentSessions(t *testing.T) {
	s := newTestStore(t)
	rugTick := int64(42)

	require.NoError(t, s.SaveSession(model.GameSession{
		GameID:       "g1",
		StartTick:    0,
		EndTick:      42,
		PeakPrice:    decimal.RequireFromString("3.5"),
		RuggedAtTick: &rugTick,
	}))

	sessions, err := s.RecentSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "g1", sessions[0].GameID)
	require.True(t, sessions[0].PeakPrice.Equal(decimal.RequireFromString("3.5")))
	require.Equal(t, rugTick, *sessions[0].RuggedAtTick)
}

func TestSavePosition_PersistsTradeRecord(t *testing.T) {
	s := newTestStore(t)
	pos := model.Position{
		AmountSOL:      decimal.RequireFromString("0.01"),
		EntryPrice:     decimal.RequireFromString("1.0"),
		ExitPrice:      decimal.RequireFromString("2.0"),
		RealizedPnLSOL: decimal.RequireFromString("0.01"),
		CloseReason:    model.CloseManual,
	}
	require.NoError(t, s.SavePosition("g1", pos))

	var recs []TradeRecord
	require.NoError(t, s.db.Find(&recs).Error)
	require.Len(t, recs, 1)
	require.Equal(t, "position", recs[0].Kind)
	require.Equal(t, "g1", recs[0].GameID)
}

func TestSubscribe_TracksCurrentGameIDAndPersistsOnEvents(t *testing.T) {
	s := newTestStore(t)
	b := bus.New(nil)
	s.Subscribe(b)

	b.Publish(bus.GameStart, model.GameStartPayload{GameID: "g7", StartedAt: time.Now()})

	require.Eventually(t, func() bool {
		return s.gameID() == "g7"
	}, time.Second, 5*time.Millisecond)

	b.Publish(bus.PositionClosed, ledger.PositionEventPayload{
		Position: model.Position{
			AmountSOL:      decimal.RequireFromString("0.01"),
			EntryPrice:     decimal.RequireFromString("1.0"),
			ExitPrice:      decimal.RequireFromString("1.5"),
			RealizedPnLSOL: decimal.RequireFromString("0.005"),
			CloseReason:    model.CloseManual,
		},
		Reason: model.CloseManual,
	})

	require.Eventually(t, func() bool {
		var recs []TradeRecord
		_ = s.db.Where("game_id = ?", "g7").Find(&recs).Error
		return len(recs) == 1
	}, time.Second, 5*time.Millisecond)
}
