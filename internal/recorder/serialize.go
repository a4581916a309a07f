package recorder

import (
	"encoding/json"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// wireTickOut mirrors source.wireTick on the way out: decimals serialize
// as strings to preserve precision, per the spec's serialization rule.
type wireTickOut struct {
	Event           string `json:"event"`
	GameID          string `json:"game_id"`
	Tick            int64  `json:"tick"`
	Timestamp       string `json:"timestamp"`
	Price           string `json:"price"`
	Phase           string `json:"phase"`
	Active          bool   `json:"active"`
	Rugged          bool   `json:"rugged"`
	CooldownTimerMs int64  `json:"cooldown_timer_ms"`
	TradeCount      int64  `json:"trade_count"`
}

func marshalTick(t model.GameTick) ([]byte, error) {
	out := wireTickOut{
		Event:           "tick",
		GameID:          t.GameID,
		Tick:            t.Tick,
		Timestamp:       t.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Price:           t.Price.String(),
		Phase:           t.Phase.String(),
		Active:          t.Active,
		Rugged:          t.Rugged,
		CooldownTimerMs: t.CooldownTimerMs,
		TradeCount:      t.TradeCount,
	}
	return json.Marshal(out)
}

type wireGameStartOut struct {
	Event     string `json:"event"`
	GameID    string `json:"game_id"`
	Timestamp string `json:"timestamp"`
}

func marshalGameStart(gameID string, ts string) ([]byte, error) {
	return json.Marshal(wireGameStartOut{Event: "game_start", GameID: gameID, Timestamp: ts})
}

type wireGameEndOut struct {
	Event        string `json:"event"`
	GameID       string `json:"game_id"`
	TotalTicks   int64  `json:"total_ticks"`
	PeakPrice    string `json:"peak_price"`
	RuggedAtTick *int64 `json:"rugged_at_tick,omitempty"`
}

func marshalGameEnd(summary model.Summary) ([]byte, error) {
	return json.Marshal(wireGameEndOut{
		Event:        "game_end",
		GameID:       summary.GameID,
		TotalTicks:   summary.TotalTicks,
		PeakPrice:    summary.PeakPrice.String(),
		RuggedAtTick: summary.RuggedAtTick,
	})
}
