package dungeon

import (
	"testing"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Proposal
		wantErr bool
	}{
		{
			name: "clean JSON",
			raw:  `{"narration":"The hull groans.","sanity_delta":-3,"health_delta":-1}`,
			want: Proposal{Narration: "The hull groans.", SanityDelta: -3, HealthDelta: -1},
		},
		{
			name: "fenced JSON with prose",
			raw:  "Here you go:\n```json\n{\"narration\":\"Dust settles.\",\"next_room\":\"A flooded bay.\",\"sanity_delta\":1,\"health_delta\":0}\n```",
			want: Proposal{Narration: "Dust settles.", NextRoom: "A flooded bay.", SanityDelta: 1},
		},
		{"no object", "the model rambled instead", Proposal{}, true},
		{"empty narration", `{"narration":"  ","sanity_delta":0,"health_delta":0}`, Proposal{}, true},
		{"broken JSON", `{"narration": "unterminated`, Proposal{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProposal(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBoundProposal(t *testing.T) {
	p := BoundProposal(Proposal{Narration: "x", SanityDelta: 40, HealthDelta: -99}, 10)
	if p.SanityDelta != 10 || p.HealthDelta != -10 {
		t.Errorf("got sanity %d health %d, want 10 and -10", p.SanityDelta, p.HealthDelta)
	}
}

func TestActionCost(t *testing.T) {
	cfg := CostConfig{
		Base:          1,
		PerAction:     map[string]int{ActionMove: 1, ActionAttack: 2},
		PerDifficulty: 1,
		PerDepth:      1,
	}

	tests := []struct {
		name       string
		action     string
		difficulty int
		depth      int
		want       int
	}{
		{"move shallow easy", ActionMove, 1, 0, 3},
		{"attack deep hard", ActionAttack, 3, 4, 10},
		{"search has no per-action term", ActionSearch, 2, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActionCost(cfg, tt.action, tt.difficulty, tt.depth); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCombineAndClamp(t *testing.T) {
	tests := []struct {
		name     string
		proposal int
		cost     int
		clamp    int
		want     int
	}{
		{"cost dominates", -3, 5, 25, -8},
		{"generous proposal cancels cost", 6, 5, 25, 1},
		{"clamped at negative bound", -20, 20, 25, -25},
		{"clamped at positive bound", 30, 0, 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineAndClamp(tt.proposal, tt.cost, tt.clamp); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClampStat(t *testing.T) {
	if got := clampStat(-5); got != 0 {
		t.Errorf("clampStat(-5) = %d, want 0", got)
	}
	if got := clampStat(140); got != 100 {
		t.Errorf("clampStat(140) = %d, want 100", got)
	}
	if got := clampStat(37); got != 37 {
		t.Errorf("clampStat(37) = %d, want 37", got)
	}
}

func TestRollLoot(t *testing.T) {
	table := []models.LootEntry{
		{Type: LootTypeMoney, Chance: 0.5, Min: 10, Max: 30},
		{Type: LootTypeItem, GoodID: 3, Chance: 0.5, Min: 1, Max: 3},
		{Type: LootTypeItem, GoodID: 3, Chance: 1.0, Min: 2, Max: 2},
		{Type: LootTypeItem, GoodID: 9, Chance: 0.0, Min: 5, Max: 5},
	}

	t.Run("all eligible rolls hit", func(t *testing.T) {
		roll := func() float64 { return 0.1 }
		intn := func(n int) int { return 0 }
		money, items := RollLoot(table, roll, intn)
		if money != 10 {
			t.Errorf("money = %d, want 10", money)
		}
		if len(items) != 1 || items[0].GoodID != 3 || items[0].Delta != 3 {
			t.Errorf("items = %+v, want one entry good 3 qty 3", items)
		}
	})

	t.Run("high roll keeps only the guaranteed entry", func(t *testing.T) {
		roll := func() float64 { return 0.99 }
		intn := func(n int) int { return 0 }
		money, items := RollLoot(table, roll, intn)
		if money != 0 {
			t.Errorf("money = %d, want 0", money)
		}
		if len(items) != 1 || items[0].GoodID != 3 || items[0].Delta != 2 {
			t.Errorf("items = %+v, want only the chance-1.0 entry", items)
		}
	})

	t.Run("all chanced rolls miss", func(t *testing.T) {
		roll := func() float64 { return 0.99 }
		intn := func(n int) int { return 0 }
		money, items := RollLoot(table[:2], roll, intn)
		if money != 0 || len(items) != 0 {
			t.Errorf("got money %d items %+v, want nothing", money, items)
		}
	})

	t.Run("intn spans the quantity range", func(t *testing.T) {
		roll := func() float64 { return 0.0 }
		intn := func(n int) int { return n - 1 }
		money, _ := RollLoot(table[:1], roll, intn)
		if money != 30 {
			t.Errorf("money = %d, want 30", money)
		}
	})
}

func TestFallbackProposalCoversActions(t *testing.T) {
	for _, action := range []string{ActionMove, ActionSearch, ActionAttack} {
		p := FallbackProposal(action, 2)
		if p.Narration == "" {
			t.Errorf("%s fallback has empty narration", action)
		}
		if action == ActionMove && p.NextRoom == "" {
			t.Errorf("MOVE fallback missing next room")
		}
	}
}
