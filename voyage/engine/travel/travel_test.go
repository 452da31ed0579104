package travel

import (
	"testing"
	"time"
)

func TestSailQuote(t *testing.T) {
	cfg := QuoteConfig{
		CostBase:        50,
		CostPerDistance: 25,
		CostPerLevel:    20,
		SecPerDistance:  60,
		MinSeconds:      30,
	}

	tests := []struct {
		name         string
		distance     int
		shipLevel    int
		wantCost     int64
		wantDuration time.Duration
	}{
		{"one hex level one", 1, 1, 75, 60 * time.Second},
		{"three hexes level one", 3, 1, 125, 180 * time.Second},
		{"level discount on time not cost", 3, 2, 145, 90 * time.Second},
		{"minimum duration floor", 1, 4, 135, 30 * time.Second},
		{"zero level treated as one", 2, 0, 100, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, duration := SailQuote(tt.distance, tt.shipLevel, cfg)
			if cost != tt.wantCost {
				t.Errorf("cost = %d, want %d", cost, tt.wantCost)
			}
			if duration != tt.wantDuration {
				t.Errorf("duration = %v, want %v", duration, tt.wantDuration)
			}
		})
	}
}

func TestRollEncounter(t *testing.T) {
	cfg := EncounterConfig{Chance: 0.4, RewardMax: 150, PenaltyMax: 100}
	fixedIntn := func(n int) int { return n / 2 }

	tests := []struct {
		name      string
		roll      float64
		wantText  bool
		wantDelta int64
	}{
		{"above chance is calm", 0.5, false, 0},
		{"at chance boundary is calm", 0.4, false, 0},
		{"low roll rewards", 0.1, true, 76},
		{"upper half penalizes", 0.3, true, -51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, delta := RollEncounter(tt.roll, fixedIntn, cfg)
			if (text != "") != tt.wantText {
				t.Errorf("text = %q, wantText = %v", text, tt.wantText)
			}
			if delta != tt.wantDelta {
				t.Errorf("delta = %d, want %d", delta, tt.wantDelta)
			}
		})
	}
}

func TestRollEncounterSmallBounds(t *testing.T) {
	cfg := EncounterConfig{Chance: 1.0, RewardMax: 1, PenaltyMax: 1}
	intn := func(n int) int { t.Fatal("intn should not be called for max <= 1"); return 0 }

	if _, delta := RollEncounter(0.0, intn, cfg); delta != 1 {
		t.Errorf("reward delta = %d, want 1", delta)
	}
	if _, delta := RollEncounter(0.6, intn, cfg); delta != -1 {
		t.Errorf("penalty delta = %d, want -1", delta)
	}
}

func TestRollMoveEvent(t *testing.T) {
	cfg := MoveEventConfig{
		PositiveChance: 0.2,
		NegativeChance: 0.2,
		FlavorChance:   0.2,
		RewardMax:      60,
		PenaltyMax:     40,
	}
	zeroIntn := func(n int) int { return 0 }

	tests := []struct {
		name      string
		roll      float64
		revisit   bool
		wantDelta int64
		wantText  bool
	}{
		{"positive bucket", 0.1, false, 1, true},
		{"negative bucket", 0.3, false, -1, true},
		{"flavor bucket", 0.5, false, 0, true},
		{"quiet step", 0.7, false, 0, false},
		{"revisit halves positive range", 0.15, true, -1, true},
		{"revisit shifts flavor window", 0.25, true, 0, true},
		{"revisit quiet past shrunken window", 0.35, true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := RollMoveEvent(tt.roll, zeroIntn, cfg, tt.revisit)
			if ev.Delta != tt.wantDelta {
				t.Errorf("delta = %d, want %d", ev.Delta, tt.wantDelta)
			}
			if (ev.Text != "") != tt.wantText {
				t.Errorf("text = %q, wantText = %v", ev.Text, tt.wantText)
			}
		})
	}
}

func TestUpgradeCost(t *testing.T) {
	tests := []struct {
		level  int
		base   int64
		growth float64
		want   int64
	}{
		{1, 500, 2.0, 500},
		{2, 500, 2.0, 1000},
		{4, 500, 2.0, 4000},
		{3, 100, 1.5, 225},
	}

	for _, tt := range tests {
		if got := UpgradeCost(tt.level, tt.base, tt.growth); got != tt.want {
			t.Errorf("UpgradeCost(%d, %d, %v) = %d, want %d", tt.level, tt.base, tt.growth, got, tt.want)
		}
	}
}
