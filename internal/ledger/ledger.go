// Package ledger implements the single authoritative model of wallet
// balance, positions, sidebets, and game phase. Generalized from the
// teacher's core.Engine position map and equity bookkeeping, but unlike
// the teacher's multi-position-per-market model, this ledger enforces
// "at most one open position, at most one active sidebet" throughout.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// Gauges is the narrow telemetry surface the ledger pushes to, kept as an
// interface so this package doesn't import internal/telemetry directly.
type Gauges interface {
	SetBalance(sol float64)
	SetOpenPositions(n int)
}

type Config struct {
	InitialBalanceSOL    decimal.Decimal
	RugLiquidationPrice  decimal.Decimal
	SidebetMultiplier    decimal.Decimal
	SidebetCooldownTicks int64
	SidebetWindowTicks   int64
	LockTimeout          time.Duration
}

func DefaultConfig() Config {
	return Config{
		InitialBalanceSOL:    model.DefaultInitialBalanceSOL,
		RugLiquidationPrice:  decimal.RequireFromString("0.02"),
		SidebetMultiplier:    decimal.RequireFromString("5.0"),
		SidebetCooldownTicks: 5,
		SidebetWindowTicks:   model.SidebetWindowTicks,
		LockTimeout:          5 * time.Second,
	}
}

// Ledger is a single instance shared by the replay engine and trade
// manager. Mutators and Snapshot share one timed exclusive lock, so reads
// are serialized with writes and with each other; a stuck caller never
// deadlocks the whole engine — it returns ErrLockTimeout instead.
type Ledger struct {
	cfg    Config
	bus    *bus.Bus
	gauges Gauges
	sem    chan struct{}
	state  State
}

func New(cfg Config, b *bus.Bus, gauges Gauges) *Ledger {
	l := &Ledger{
		cfg:    cfg,
		bus:    b,
		gauges: gauges,
		sem:    make(chan struct{}, 1),
		state: State{
			CurrentPhase: model.PhaseUnknown,
			Wallet:       model.NewWallet(cfg.InitialBalanceSOL),
		},
	}
	l.sem <- struct{}{}
	return l
}

func (l *Ledger) lock() error {
	select {
	case <-l.sem:
		return nil
	case <-time.After(l.cfg.LockTimeout):
		return ErrLockTimeout
	}
}

func (l *Ledger) unlock() {
	select {
	case l.sem <- struct{}{}:
	default:
	}
}

// Snapshot returns an immutable copy of the current state. O(1) in the
// common case (no open position/sidebet); the clone of closed-position
// history is the only allocation proportional to session length.
func (l *Ledger) Snapshot() State {
	if err := l.lock(); err != nil {
		return l.state.clone()
	}
	defer l.unlock()
	return l.state.clone()
}

func (l *Ledger) publish(kind bus.Kind, payload any) {
	if l.bus != nil {
		l.bus.Publish(kind, payload)
	}
}

func (l *Ledger) publishStateChanged() {
	if l.bus == nil {
		return
	}
	l.bus.Publish(bus.StateChanged, l.state.clone())
}

func (l *Ledger) publishBalanceChanged(old, new decimal.Decimal) {
	if l.bus != nil {
		l.bus.Publish(bus.BalanceChanged, BalanceChangedPayload{Old: old, New: new})
	}
	if l.gauges != nil {
		f, _ := new.Float64()
		l.gauges.SetBalance(f)
	}
}

func (l *Ledger) updateOpenPositionGauge() {
	if l.gauges == nil {
		return
	}
	n := 0
	if l.state.Position != nil && l.state.Position.Status == model.PositionActive {
		n = 1
	}
	l.gauges.SetOpenPositions(n)
}

// BalanceChangedPayload is the BALANCE_CHANGED event payload.
type BalanceChangedPayload struct {
	Old decimal.Decimal
	New decimal.Decimal
}

// PositionEventPayload is the POSITION_OPENED/POSITION_CLOSED payload.
type PositionEventPayload struct {
	Position model.Position
	Reason   model.CloseReason
}

// SidebetEventPayload is the SIDEBET_PLACED/SIDEBET_RESOLVED payload.
type SidebetEventPayload struct {
	Sidebet model.Sidebet
	Outcome model.SidebetStatus
}
