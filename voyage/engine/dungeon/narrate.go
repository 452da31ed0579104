package dungeon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Proposal is the narration collaborator's suggested resolution of one
// action. Deltas are advisory; the engine adds its own cost terms and
// clamps the sum.
type Proposal struct {
	Narration   string `json:"narration"`
	NextRoom    string `json:"next_room,omitempty"`
	SanityDelta int    `json:"sanity_delta"`
	HealthDelta int    `json:"health_delta"`
}

// ParseProposal extracts the first JSON object from a model response.
// Models wrap JSON in prose or code fences often enough that a strict
// unmarshal of the whole body is useless.
func ParseProposal(raw string) (Proposal, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Proposal{}, fmt.Errorf("no JSON object in response")
	}

	var p Proposal
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return Proposal{}, fmt.Errorf("failed to parse proposal: %w", err)
	}
	if strings.TrimSpace(p.Narration) == "" {
		return Proposal{}, fmt.Errorf("proposal missing narration")
	}
	return p, nil
}

// BoundProposal caps the collaborator's deltas so a runaway model
// cannot heal or kill beyond the configured band.
func BoundProposal(p Proposal, bound int) Proposal {
	p.SanityDelta = clampInt(p.SanityDelta, -bound, bound)
	p.HealthDelta = clampInt(p.HealthDelta, -bound, bound)
	return p
}

// FallbackProposal is the deterministic resolution used when the
// collaborator is unavailable.
func FallbackProposal(action string, depth int) Proposal {
	switch action {
	case ActionMove:
		return Proposal{
			Narration:   "You press deeper into the wreck. The corridor narrows.",
			NextRoom:    fmt.Sprintf("A dim chamber at depth %d, walls slick with condensation.", depth+1),
			SanityDelta: -2,
			HealthDelta: 0,
		}
	case ActionSearch:
		return Proposal{
			Narration:   "You pick through the debris by torchlight.",
			SanityDelta: -1,
			HealthDelta: -1,
		}
	case ActionAttack:
		return Proposal{
			Narration:   "Something lunges from the dark. You drive it back.",
			SanityDelta: -3,
			HealthDelta: -4,
		}
	default:
		return Proposal{Narration: "Nothing happens."}
	}
}

// CostConfig holds the fixed terms layered on top of every proposal.
type CostConfig struct {
	Base          int
	PerAction     map[string]int
	PerDifficulty int
	PerDepth      int
	ClampMax      int
}

// ActionCost is the fixed drain for one action, always non-negative.
func ActionCost(cfg CostConfig, action string, difficulty, depth int) int {
	cost := cfg.Base + cfg.PerAction[action] + cfg.PerDifficulty*difficulty + cfg.PerDepth*depth
	if cost < 0 {
		cost = 0
	}
	return cost
}

// CombineAndClamp merges the proposal delta with the fixed cost and
// clamps the sum. A generous proposal can cancel the cost entirely;
// the clamp bounds the result, not the parts.
func CombineAndClamp(proposalDelta, fixedCost, clampMax int) int {
	return clampInt(proposalDelta-fixedCost, -clampMax, clampMax)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clampStat keeps sanity and health inside the playable range.
func clampStat(v int) int {
	return clampInt(v, 0, 100)
}
