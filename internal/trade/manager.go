// Package trade is a stateless coordinator that validates and issues
// commands against the game state ledger, generalized from the teacher's
// core.Engine validate-then-execute chain (risk manager gate → size →
// execute) down to the rules this single-ledger, single-wallet game
// actually needs.
package trade

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

type Config struct {
	MinBetSOL decimal.Decimal
	MaxBetSOL decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		MinBetSOL: decimal.RequireFromString("0.001"),
		MaxBetSOL: decimal.RequireFromString("1.0"),
	}
}

// Receipt is returned by every successful command.
type Receipt struct {
	Kind string
	Tick int64
}

type Manager struct {
	cfg    Config
	ledger *ledger.Ledger
}

func New(cfg Config, l *ledger.Ledger) *Manager {
	return &Manager{cfg: cfg, ledger: l}
}

func amountInRange(cfg Config, amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(cfg.MinBetSOL) && amount.LessThanOrEqual(cfg.MaxBetSOL)
}

func phaseBlocked(phase model.Phase) bool {
	return phase == model.PhaseCooldown || phase == model.PhaseRugEvent
}

// Buy adds to (or opens) the position. Valid iff phase isn't
// {COOLDOWN,RUG_EVENT}, 0.001 <= amount <= 1.0, and amount <= balance.
func (m *Manager) Buy(amount decimal.Decimal) (Receipt, error) {
	snap := m.ledger.Snapshot()

	if phaseBlocked(snap.CurrentPhase) {
		return Receipt{}, ErrWrongPhase
	}
	if !amountInRange(m.cfg, amount) {
		return Receipt{}, ErrAmountOutOfRange
	}
	if amount.GreaterThan(snap.Wallet.BalanceSOL) {
		return Receipt{}, ErrInsufficientBalance
	}

	if err := m.ledger.OpenOrAdd(amount, snap.CurrentPrice, snap.CurrentTick); err != nil {
		return Receipt{}, translateLedgerErr(err)
	}
	return Receipt{Kind: "BUY", Tick: snap.CurrentTick}, nil
}

// Sell closes the active position. Only fraction==1.0 (full close) is
// supported in the core; fraction<1 is reserved for a future partial-close
// extension and currently returns ErrPartialCloseUnsupported.
func (m *Manager) Sell(fraction float64) (Receipt, error) {
	if fraction < 1.0 {
		return Receipt{}, ErrPartialCloseUnsupported
	}

	snap := m.ledger.Snapshot()
	if snap.Position == nil || snap.Position.Status != model.PositionActive {
		return Receipt{}, ErrNoActivePosition
	}

	if err := m.ledger.ClosePosition(snap.CurrentTick, snap.CurrentPrice, model.CloseManual); err != nil {
		return Receipt{}, translateLedgerErr(err)
	}
	return Receipt{Kind: "SELL", Tick: snap.CurrentTick}, nil
}

// Sidebet places a wager that the rug occurs within the configured
// window. Valid iff phase isn't {COOLDOWN,RUG_EVENT}, amount in range,
// amount <= balance, no active sidebet, and the cooldown since the last
// resolution has elapsed.
func (m *Manager) Sidebet(amount decimal.Decimal) (Receipt, error) {
	snap := m.ledger.Snapshot()

	if phaseBlocked(snap.CurrentPhase) {
		return Receipt{}, ErrWrongPhase
	}
	if !amountInRange(m.cfg, amount) {
		return Receipt{}, ErrAmountOutOfRange
	}
	if amount.GreaterThan(snap.Wallet.BalanceSOL) {
		return Receipt{}, ErrInsufficientBalance
	}
	if snap.Sidebet != nil && snap.Sidebet.Status == model.SidebetActiveStatus {
		return Receipt{}, ErrSidebetActive
	}
	// The cooldown only applies once a sidebet has been resolved.
	resolvedBefore := len(snap.ClosedSidebets) > 0 || snap.LastSidebetResolvedTick > 0
	if resolvedBefore && snap.CurrentTick-snap.LastSidebetResolvedTick < m.ledger.SidebetCooldownTicks() {
		return Receipt{}, ErrSidebetCooldown
	}

	if err := m.ledger.PlaceSidebet(amount, snap.CurrentPrice, snap.CurrentTick); err != nil {
		return Receipt{}, translateLedgerErr(err)
	}
	return Receipt{Kind: "SIDEBET", Tick: snap.CurrentTick}, nil
}

// OnTick is called by the replay engine for every tick after ApplyTick.
// It resolves rug liquidation and sidebet expiry in the order the spec
// requires: position liquidation, then rug-triggered sidebet resolution,
// then (on non-rug ticks) timeout-triggered sidebet resolution.
func (m *Manager) OnTick(tick model.GameTick) error {
	snap := m.ledger.Snapshot()

	if tick.Rugged {
		if snap.Position != nil && snap.Position.Status == model.PositionActive {
			if err := m.ledger.ClosePosition(tick.Tick, m.ledger.RugLiquidationPrice(), model.CloseRug); err != nil {
				return translateLedgerErr(err)
			}
		}
		if snap.Sidebet != nil && snap.Sidebet.Status == model.SidebetActiveStatus {
			outcome := model.SidebetLost
			if tick.Tick <= snap.Sidebet.ExpiresAtTick {
				outcome = model.SidebetWon
			}
			if err := m.ledger.ResolveSidebet(tick.Tick, outcome); err != nil {
				return translateLedgerErr(err)
			}
		}
		return nil
	}

	if snap.Sidebet != nil && snap.Sidebet.Status == model.SidebetActiveStatus && tick.Tick > snap.Sidebet.ExpiresAtTick {
		if err := m.ledger.ResolveSidebet(tick.Tick, model.SidebetLost); err != nil {
			return translateLedgerErr(err)
		}
	}
	return nil
}

func translateLedgerErr(err error) error {
	switch err {
	case ledger.ErrLockTimeout:
		return ErrLedgerLockTimeout
	case ledger.ErrNoActivePosition:
		return ErrNoActivePosition
	case ledger.ErrSidebetActive:
		return ErrSidebetActive
	default:
		return err
	}
}
