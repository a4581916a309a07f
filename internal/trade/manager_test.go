package trade

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

func newTestManager(t *testing.T) (*Manager, *ledger.Ledger) {
	t.Helper()
	lcfg := ledger.DefaultConfig()
	lcfg.InitialBalanceSOL = decimal.RequireFromString("0.100")
	l := ledger.New(lcfg, nil, nil)
	m := New(DefaultConfig(), l)
	return m, l
}

func tick(n int64, price string, phase model.Phase, rugged bool) model.GameTick {
	return model.GameTick{
		GameID: "g1",
		Tick:   n,
		Price:  decimal.RequireFromString(price),
		Phase:  phase,
		Active: phase == model.PhaseActiveGameplay,
		Rugged: rugged,
	}
}

func TestBuy_AmountBelowMinimumRejected(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))

	_, err := m.Buy(decimal.RequireFromString("0.0009999"))
	require.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestBuy_AmountAtMinimumAccepted(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))

	_, err := m.Buy(decimal.RequireFromString("0.001"))
	require.NoError(t, err)
}

func TestBuy_ExactBalanceAccepted(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))

	_, err := m.Buy(decimal.RequireFromString("0.1"))
	require.NoError(t, err)
}

func TestBuy_OneSatoshiOverBalanceRejected(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))

	_, err := m.Buy(decimal.RequireFromString("0.100000001"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBuy_BlockedDuringCooldownAndRugEvent(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseCooldown, false)))
	_, err := m.Buy(decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, l.ApplyTick(tick(2, "1.0", model.PhaseRugEvent, true)))
	_, err = m.Buy(decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestSell_PartialCloseUnsupported(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))
	_, err := m.Buy(decimal.RequireFromString("0.01"))
	require.NoError(t, err)

	_, err = m.Sell(0.5)
	require.ErrorIs(t, err, ErrPartialCloseUnsupported)
}

func TestSell_NoActivePosition(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))
	_, err := m.Sell(1.0)
	require.ErrorIs(t, err, ErrNoActivePosition)
}

func TestOnTick_RugLiquidatesPositionAtFixedPrice(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))
	_, err := m.Buy(decimal.RequireFromString("0.01"))
	require.NoError(t, err)

	rugTick := tick(2, "5.0", model.PhaseRugEvent, true)
	require.NoError(t, l.ApplyTick(rugTick))
	require.NoError(t, m.OnTick(rugTick))

	snap := l.Snapshot()
	require.Nil(t, snap.Position)
	require.Len(t, snap.ClosedPositions, 1)
	require.True(t, snap.ClosedPositions[0].ExitPrice.Equal(l.RugLiquidationPrice()))
	require.Equal(t, model.CloseRug, snap.ClosedPositions[0].CloseReason)
}

func TestSidebet_CooldownBlocksImmediateRePlacement(t *testing.T) {
	m, l := newTestManager(t)
	require.NoError(t, l.ApplyTick(tick(1, "1.0", model.PhaseActiveGameplay, false)))
	_, err := m.Sidebet(decimal.RequireFromString("0.01"))
	require.NoError(t, err)

	snap := l.Snapshot()
	expiresAt := snap.Sidebet.ExpiresAtTick
	require.NoError(t, l.ApplyTick(tick(expiresAt, "1.0", model.PhaseActiveGameplay, false)))
	require.NoError(t, l.ResolveSidebet(expiresAt, model.SidebetWon))

	// Cooldown is 5 ticks by default; re-placing immediately after
	// resolution must be rejected even though the phase allows betting.
	require.NoError(t, l.ApplyTick(tick(expiresAt+1, "1.0", model.PhaseActiveGameplay, false)))
	_, err = m.Sidebet(decimal.RequireFromString("0.01"))
	require.ErrorIs(t, err, ErrSidebetCooldown)
}
