package model

import "github.com/shopspring/decimal"

type PositionStatus int

const (
	PositionActive PositionStatus = iota
	PositionClosed
)

func (s PositionStatus) String() string {
	if s == PositionClosed {
		return "closed"
	}
	return "active"
}

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseManual        CloseReason = "manual"
	CloseRug           CloseReason = "rug"
	CloseSidebetIgnore CloseReason = "sidebet_ignored"
)

// Position is at most one open per wallet.
type Position struct {
	AmountSOL      decimal.Decimal
	EntryPrice     decimal.Decimal
	EntryTick      int64
	Status         PositionStatus
	ExitTick       int64
	ExitPrice      decimal.Decimal
	RealizedPnLSOL decimal.Decimal
	CloseReason    CloseReason
}
