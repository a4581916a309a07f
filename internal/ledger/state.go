package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// State is an immutable snapshot of the ledger at a point in time.
// Handlers invoked off the event bus receive one of these by value —
// they must never be handed a pointer into live ledger state.
type State struct {
	GameID                  string
	CurrentTick             int64
	CurrentPrice            decimal.Decimal
	CurrentPhase            model.Phase
	GameActive              bool
	Rugged                  bool
	Wallet                  model.Wallet
	Position                *model.Position
	Sidebet                 *model.Sidebet
	LastSidebetResolvedTick int64
	ClosedPositions         []model.Position
	ClosedSidebets          []model.Sidebet
}

func (s State) clone() State {
	out := s
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	if s.Sidebet != nil {
		sb := *s.Sidebet
		out.Sidebet = &sb
	}
	out.ClosedPositions = append([]model.Position(nil), s.ClosedPositions...)
	out.ClosedSidebets = append([]model.Sidebet(nil), s.ClosedSidebets...)
	return out
}

// Metrics is computed from closed positions only, never from balance
// deltas, so sidebet outcomes never contaminate trading performance
// figures.
type Metrics struct {
	WinRate      decimal.Decimal
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	ROI          decimal.Decimal
	MaxDrawdown  decimal.Decimal
}
