package travel

import "time"

type QuoteConfig struct {
	CostBase        int64
	CostPerDistance int64
	CostPerLevel    int64
	SecPerDistance  int64
	MinSeconds      int64
}

// SailQuote prices a voyage. Bigger ships cost more to run but cross
// the same distance faster.
func SailQuote(distance, shipLevel int, cfg QuoteConfig) (cost int64, duration time.Duration) {
	if shipLevel < 1 {
		shipLevel = 1
	}
	cost = cfg.CostBase + cfg.CostPerDistance*int64(distance) + cfg.CostPerLevel*int64(shipLevel-1)

	seconds := cfg.SecPerDistance * int64(distance) / int64(shipLevel)
	if seconds < cfg.MinSeconds {
		seconds = cfg.MinSeconds
	}
	return cost, time.Duration(seconds) * time.Second
}

type EncounterConfig struct {
	Chance     float64
	RewardMax  int
	PenaltyMax int
}

// RollEncounter pre-rolls the voyage event. Half the triggered
// encounters reward, half penalize; the rest of the odds are an
// uneventful crossing.
func RollEncounter(roll float64, intn func(int) int, cfg EncounterConfig) (text string, delta int64) {
	if roll >= cfg.Chance {
		return "", 0
	}

	if roll < cfg.Chance/2 {
		amount := 1
		if cfg.RewardMax > 1 {
			amount = 1 + intn(cfg.RewardMax)
		}
		return "You salvage a drifting cargo pod.", int64(amount)
	}

	amount := 1
	if cfg.PenaltyMax > 1 {
		amount = 1 + intn(cfg.PenaltyMax)
	}
	return "Pirates shake you down at a choke point.", -int64(amount)
}

type MoveEventConfig struct {
	PositiveChance float64
	NegativeChance float64
	FlavorChance   float64
	RewardMax      int
	PenaltyMax     int
}

// MoveEvent is the rolled outcome of one hex step.
type MoveEvent struct {
	Text  string
	Delta int64
}

// RollMoveEvent rolls the per-step event. Revisited tiles halve every
// probability so farming a known hex decays.
func RollMoveEvent(roll float64, intn func(int) int, cfg MoveEventConfig, revisit bool) MoveEvent {
	pPos, pNeg, pFlavor := cfg.PositiveChance, cfg.NegativeChance, cfg.FlavorChance
	if revisit {
		pPos /= 2
		pNeg /= 2
		pFlavor /= 2
	}

	switch {
	case roll < pPos:
		amount := 1
		if cfg.RewardMax > 1 {
			amount = 1 + intn(cfg.RewardMax)
		}
		return MoveEvent{Text: "A cache of supplies drifts within reach.", Delta: int64(amount)}
	case roll < pPos+pNeg:
		amount := 1
		if cfg.PenaltyMax > 1 {
			amount = 1 + intn(cfg.PenaltyMax)
		}
		return MoveEvent{Text: "Debris scrapes the hull on the way through.", Delta: -int64(amount)}
	case roll < pPos+pNeg+pFlavor:
		return MoveEvent{Text: "The void hums faintly against the viewport."}
	default:
		return MoveEvent{}
	}
}
