package ledger

import (
	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// ApplyTick updates current_tick/price/phase/game_active/rugged/game_id
// from an incoming tick, validates the phase transition, and emits
// STATE_CHANGED when any field changed. It does not itself resolve rug
// liquidation or sidebet expiry — that's the trade manager's OnTick, run
// immediately after. The STATE_CHANGED published here therefore precedes
// any OnTick mutation; each mutation OnTick makes publishes its own
// STATE_CHANGED, so the last one of a tick reflects all of its mutations.
func (l *Ledger) ApplyTick(tick model.GameTick) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	from := l.state.CurrentPhase
	to := tick.Phase

	changed := l.state.CurrentTick != tick.Tick ||
		!l.state.CurrentPrice.Equal(tick.Price) ||
		l.state.CurrentPhase != to ||
		l.state.GameActive != tick.Active ||
		l.state.Rugged != tick.Rugged ||
		l.state.GameID != tick.GameID

	if !model.ValidTransition(from, to) {
		log.Warn().
			Str("from", from.String()).
			Str("to", to.String()).
			Str("game_id", tick.GameID).
			Int64("tick", tick.Tick).
			Msg("ledger: unexpected phase transition, clamping to reported phase")
	}

	l.state.CurrentTick = tick.Tick
	l.state.CurrentPrice = tick.Price
	l.state.CurrentPhase = to
	l.state.GameActive = tick.Active
	l.state.Rugged = tick.Rugged
	l.state.GameID = tick.GameID

	if to == model.PhaseRugEvent {
		l.publish(bus.RugDetected, tick)
	}

	if changed {
		l.publishStateChanged()
	}
	return nil
}
