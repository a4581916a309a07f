package model

import "github.com/shopspring/decimal"

type SidebetStatus int

const (
	SidebetActiveStatus SidebetStatus = iota
	SidebetWon
	SidebetLost
)

func (s SidebetStatus) String() string {
	switch s {
	case SidebetWon:
		return "won"
	case SidebetLost:
		return "lost"
	default:
		return "active"
	}
}

// SidebetWindowTicks is the default number of ticks a sidebet covers.
const SidebetWindowTicks = 40

// Sidebet is at most one active per wallet.
type Sidebet struct {
	AmountSOL     decimal.Decimal
	PlacedTick    int64
	PlacedPrice   decimal.Decimal
	ExpiresAtTick int64
	Status        SidebetStatus
	// SidebetPnL is 4*amount on win, -amount on loss; populated on resolution.
	SidebetPnL decimal.Decimal
}
