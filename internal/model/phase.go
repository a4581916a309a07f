package model

// Phase is the coarse state of a game round.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseCooldown
	PhasePresale
	PhaseGameActivation
	PhaseActiveGameplay
	PhaseRugEvent
)

func (p Phase) String() string {
	switch p {
	case PhaseCooldown:
		return "COOLDOWN"
	case PhasePresale:
		return "PRESALE"
	case PhaseGameActivation:
		return "GAME_ACTIVATION"
	case PhaseActiveGameplay:
		return "ACTIVE_GAMEPLAY"
	case PhaseRugEvent:
		return "RUG_EVENT"
	default:
		return "UNKNOWN"
	}
}

// ParsePhase maps the wire string onto a Phase, defaulting to PhaseUnknown
// for anything not in the permitted set rather than erroring — callers
// decide whether an unknown phase is fatal.
func ParsePhase(s string) Phase {
	switch s {
	case "COOLDOWN":
		return PhaseCooldown
	case "PRESALE":
		return PhasePresale
	case "GAME_ACTIVATION":
		return PhaseGameActivation
	case "ACTIVE_GAMEPLAY":
		return PhaseActiveGameplay
	case "RUG_EVENT":
		return PhaseRugEvent
	default:
		return PhaseUnknown
	}
}

// validTransitions encodes the permitted edges from spec: COOLDOWN -> PRESALE
// -> {GAME_ACTIVATION|ACTIVE_GAMEPLAY} -> ACTIVE_GAMEPLAY -> RUG_EVENT ->
// COOLDOWN. PRESALE -> ACTIVE_GAMEPLAY direct is permitted (observed upstream).
var validTransitions = map[Phase]map[Phase]bool{
	PhaseCooldown: {
		PhasePresale: true,
	},
	PhasePresale: {
		PhaseGameActivation: true,
		PhaseActiveGameplay: true,
	},
	PhaseGameActivation: {
		PhaseActiveGameplay: true,
	},
	PhaseActiveGameplay: {
		PhaseActiveGameplay: true,
		PhaseRugEvent:       true,
	},
	PhaseRugEvent: {
		PhaseCooldown: true,
	},
}

// ValidTransition reports whether moving from `from` to `to` is a permitted
// edge. Staying in the same phase is always valid (no transition occurred).
func ValidTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	edges, ok := validTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}
