package world

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Coord
		want int
	}{
		{name: "same hex", a: Coord{0, 0}, b: Coord{0, 0}, want: 0},
		{name: "east neighbor", a: Coord{0, 0}, b: Coord{1, 0}, want: 1},
		{name: "southwest neighbor", a: Coord{0, 0}, b: Coord{-1, 1}, want: 1},
		{name: "diagonal", a: Coord{0, 0}, b: Coord{2, -1}, want: 2},
		{name: "far", a: Coord{-3, 2}, b: Coord{4, -1}, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			// Distance is symmetric
			if got := Distance(tt.b, tt.a); got != tt.want {
				t.Errorf("Distance(%v, %v) = %d, want %d", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestIsAdjacent(t *testing.T) {
	center := Coord{0, 0}
	neighbors := []Coord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, -1}, {-1, 1}}
	for _, n := range neighbors {
		if !IsAdjacent(center, n) {
			t.Errorf("expected %v adjacent to origin", n)
		}
	}

	notNeighbors := []Coord{{0, 0}, {2, 0}, {1, 1}, {-1, -1}}
	for _, n := range notNeighbors {
		if IsAdjacent(center, n) {
			t.Errorf("expected %v not adjacent to origin", n)
		}
	}
}

func TestTileTypeOriginIsSafeZone(t *testing.T) {
	if got := TileType(Coord{0, 0}, DefaultWeights); got != TileSafeZone {
		t.Fatalf("TileType(origin) = %q, want SAFE_ZONE", got)
	}
	// Even with degenerate weights
	if got := TileType(Coord{0, 0}, Weights{}); got != TileSafeZone {
		t.Fatalf("TileType(origin, zero weights) = %q, want SAFE_ZONE", got)
	}
}

func TestTileTypeDeterministic(t *testing.T) {
	coords := []Coord{{1, 0}, {-4, 7}, {13, -2}, {100, 100}, {-50, -3}}
	for _, c := range coords {
		first := TileType(c, DefaultWeights)
		if first == TileSafeZone {
			t.Errorf("TileType(%v) produced SAFE_ZONE off-origin", c)
		}
		for i := 0; i < 10; i++ {
			if got := TileType(c, DefaultWeights); got != first {
				t.Fatalf("TileType(%v) not deterministic: %q then %q", c, first, got)
			}
		}
	}
}

func TestTileTypeRespectsWeights(t *testing.T) {
	// All weight on one bucket forces that type everywhere off-origin.
	onlyVoid := Weights{Void: 1}
	onlyAnomaly := Weights{Anomaly: 1}
	for q := -5; q <= 5; q++ {
		for r := -5; r <= 5; r++ {
			if q == 0 && r == 0 {
				continue
			}
			c := Coord{q, r}
			if got := TileType(c, onlyVoid); got != TileVoid {
				t.Fatalf("TileType(%v, onlyVoid) = %q", c, got)
			}
			if got := TileType(c, onlyAnomaly); got != TileAnomaly {
				t.Fatalf("TileType(%v, onlyAnomaly) = %q", c, got)
			}
		}
	}
}

func TestTileTypeZeroWeightsFallBack(t *testing.T) {
	c := Coord{3, -1}
	if got, want := TileType(c, Weights{}), TileType(c, DefaultWeights); got != want {
		t.Errorf("zero weights should fall back to defaults: got %q, want %q", got, want)
	}
}
