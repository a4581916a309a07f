package source

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// wireEnvelope is the outer shape of every line in a .jsonl tick file:
// {"event": "game_start"|"tick"|"game_end", ...}. Unknown events are
// ignored with a warning at the call site.
type wireEnvelope struct {
	Event string `json:"event"`
}

type wireGameStart struct {
	Event     string    `json:"event"`
	GameID    string    `json:"game_id"`
	Timestamp time.Time `json:"timestamp"`
}

// wireTick.Price accepts either a quoted string or a bare JSON number —
// decimal.Decimal's UnmarshalJSON handles both — since the source is not
// guaranteed to always quote price fields.
type wireTick struct {
	Event           string          `json:"event"`
	GameID          string          `json:"game_id"`
	Tick            int64           `json:"tick"`
	Timestamp       time.Time       `json:"timestamp"`
	Price           decimal.Decimal `json:"price"`
	Phase           string          `json:"phase"`
	Active          bool            `json:"active"`
	Rugged          bool            `json:"rugged"`
	CooldownTimerMs int64           `json:"cooldown_timer_ms"`
	TradeCount      int64           `json:"trade_count"`
}

type wireGameEnd struct {
	Event        string          `json:"event"`
	GameID       string          `json:"game_id"`
	TotalTicks   int64           `json:"total_ticks"`
	PeakPrice    decimal.Decimal `json:"peak_price"`
	RuggedAtTick *int64          `json:"rugged_at_tick"`
}

// parseLine decodes one jsonl line into the appropriate wire type. The
// returned `kind` is "game_start", "tick", "game_end", or "" for unknown.
func parseLine(line []byte) (kind string, tick *model.GameTick, start *wireGameStart, end *wireGameEnd, err error) {
	var env wireEnvelope
	if err = json.Unmarshal(line, &env); err != nil {
		return "", nil, nil, nil, err
	}

	switch env.Event {
	case "game_start":
		var s wireGameStart
		if err = json.Unmarshal(line, &s); err != nil {
			return "", nil, nil, nil, err
		}
		return "game_start", nil, &s, nil, nil

	case "tick":
		var w wireTick
		if err = json.Unmarshal(line, &w); err != nil {
			return "", nil, nil, nil, err
		}
		t := &model.GameTick{
			GameID:          w.GameID,
			Tick:            w.Tick,
			Timestamp:       w.Timestamp,
			Price:           w.Price,
			Phase:           model.ParsePhase(w.Phase),
			PhaseRaw:        w.Phase,
			Active:          w.Active,
			Rugged:          w.Rugged,
			CooldownTimerMs: w.CooldownTimerMs,
			TradeCount:      w.TradeCount,
		}
		return "tick", t, nil, nil, nil

	case "game_end":
		var e wireGameEnd
		if err = json.Unmarshal(line, &e); err != nil {
			return "", nil, nil, nil, err
		}
		return "game_end", nil, nil, &e, nil

	default:
		return "", nil, nil, nil, nil
	}
}
