package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InitialBalanceSOL = decimal.RequireFromString("0.100")
	return New(cfg, nil, nil)
}

func tick(gameID string, n int64, price string, phase model.Phase, rugged bool) model.GameTick {
	return model.GameTick{
		GameID: gameID,
		Tick:   n,
		Price:  decimal.RequireFromString(price),
		Phase:  phase,
		Active: phase == model.PhaseActiveGameplay,
		Rugged: rugged,
	}
}

func TestOpenOrAdd_WeightedAverageTwoEqualBuys(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))

	require.NoError(t, l.OpenOrAdd(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))
	require.NoError(t, l.OpenOrAdd(decimal.RequireFromString("0.01"), decimal.RequireFromString("2.0"), 2))

	snap := l.Snapshot()
	require.NotNil(t, snap.Position)
	require.True(t, snap.Position.EntryPrice.Equal(decimal.RequireFromString("1.5")))
	require.True(t, snap.Position.AmountSOL.Equal(decimal.RequireFromString("0.02")))
}

func TestClosePosition_RealizedPnL(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.OpenOrAdd(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))

	require.NoError(t, l.ClosePosition(2, decimal.RequireFromString("2.0"), model.CloseManual))

	snap := l.Snapshot()
	require.Nil(t, snap.Position)
	require.Len(t, snap.ClosedPositions, 1)
	require.True(t, snap.ClosedPositions[0].RealizedPnLSOL.Equal(decimal.RequireFromString("0.01")))
}

func TestRugLiquidation_FixedPrice(t *testing.T) {
	l := newTestLedger(t)
	require.Equal(t, decimal.RequireFromString("0.02"), l.RugLiquidationPrice())
}

func TestSidebet_WonExactlyAtWindowBoundary(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.PlaceSidebet(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))

	snap := l.Snapshot()
	require.Equal(t, int64(1+model.SidebetWindowTicks), snap.Sidebet.ExpiresAtTick)

	require.NoError(t, l.ResolveSidebet(snap.Sidebet.ExpiresAtTick, model.SidebetWon))
	after := l.Snapshot()
	require.Len(t, after.ClosedSidebets, 1)
	require.Equal(t, model.SidebetWon, after.ClosedSidebets[0].Status)
	require.True(t, after.ClosedSidebets[0].SidebetPnL.Equal(decimal.RequireFromString("0.04")))
}

func TestSidebet_LostOneTickPastWindow(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.PlaceSidebet(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))

	snap := l.Snapshot()
	require.NoError(t, l.ResolveSidebet(snap.Sidebet.ExpiresAtTick+1, model.SidebetLost))

	after := l.Snapshot()
	require.True(t, after.ClosedSidebets[0].SidebetPnL.Equal(decimal.RequireFromString("0.01").Neg()))
}

func TestCheckInvariants_NegativeBalanceIsViolation(t *testing.T) {
	l := newTestLedger(t)
	l.state.Wallet.BalanceSOL = decimal.RequireFromString("-0.001")
	require.ErrorIs(t, l.CheckInvariants(), model.ErrInvariantViolation)
}

func TestReset_KeepBalanceCarriesWalletForward(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.OpenOrAdd(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))
	require.NoError(t, l.ClosePosition(2, decimal.RequireFromString("2.0"), model.CloseManual))

	balanceBefore := l.Snapshot().Wallet.BalanceSOL

	require.NoError(t, l.Reset(true))
	snap := l.Snapshot()
	require.True(t, snap.Wallet.BalanceSOL.Equal(balanceBefore))
	require.Nil(t, snap.Position)
	require.Empty(t, snap.ClosedPositions)
}

func TestReset_FreshWalletWhenNotKeepingBalance(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.OpenOrAdd(decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0"), 1))

	require.NoError(t, l.Reset(false))
	snap := l.Snapshot()
	require.True(t, snap.Wallet.BalanceSOL.Equal(decimal.RequireFromString("0.100")))
}

func TestApplyTick_PresaleToActiveGameplaySkipIsPermitted(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.ApplyTick(tick("g1", 1, "1.0", model.PhasePresale, false)))
	require.NoError(t, l.ApplyTick(tick("g1", 2, "1.0", model.PhaseActiveGameplay, false)))
	require.Equal(t, model.PhaseActiveGameplay, l.Snapshot().CurrentPhase)
}
