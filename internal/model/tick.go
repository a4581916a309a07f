package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameTick is an immutable snapshot of one backend frame.
type GameTick struct {
	GameID          string          `json:"game_id"`
	Tick            int64           `json:"tick"`
	Timestamp       time.Time       `json:"timestamp"`
	Price           decimal.Decimal `json:"price"`
	Phase           Phase           `json:"-"`
	PhaseRaw        string          `json:"phase"`
	Active          bool            `json:"active"`
	Rugged          bool            `json:"rugged"`
	CooldownTimerMs int64           `json:"cooldown_timer_ms"`
	TradeCount      int64           `json:"trade_count"`
}

// Key identifies a tick uniquely for duplicate-suppression purposes.
type TickKey struct {
	GameID string
	Tick   int64
}

func (t GameTick) Key() TickKey {
	return TickKey{GameID: t.GameID, Tick: t.Tick}
}
