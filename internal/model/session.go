package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStartPayload is the GAME_START event payload.
type GameStartPayload struct {
	GameID    string
	StartedAt time.Time
}

// GameSession is a bounded record of one completed (or in-progress) game,
// held in memory by the ring buffer and optionally archived to the audit
// store once it closes.
type GameSession struct {
	GameID       string
	StartTick    int64
	EndTick      int64
	PeakPrice    decimal.Decimal
	RuggedAtTick *int64
	Ticks        []GameTick
	Truncated    bool
}

// Summary is the GAME_END event payload.
type Summary struct {
	GameID       string
	TotalTicks   int64
	PeakPrice    decimal.Decimal
	RuggedAtTick *int64
}
