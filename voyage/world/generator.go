package world

import "math"

// Tile types.
const (
	TileSafeZone = "SAFE_ZONE"
	TileVoid     = "VOID"
	TileAsteroid = "ASTEROID"
	TileNebula   = "NEBULA"
	TileAnomaly  = "ANOMALY"
)

// Weights is the tile distribution used off-origin. SAFE_ZONE never
// appears outside (0,0) regardless of input.
type Weights struct {
	Void     float64 `json:"VOID"`
	Asteroid float64 `json:"ASTEROID"`
	Nebula   float64 `json:"NEBULA"`
	Anomaly  float64 `json:"ANOMALY"`
}

// DefaultWeights is used when no tuning row overrides the distribution.
var DefaultWeights = Weights{
	Void:     0.40,
	Asteroid: 0.30,
	Nebula:   0.20,
	Anomaly:  0.10,
}

// hash maps a coordinate into [0, 1). Same input, same output; there
// is no hidden randomness in tile typing.
func hash(c Coord) float64 {
	v := math.Sin(float64(c.Q)*12.9898+float64(c.R)*78.233) * 43758.5453
	return v - math.Floor(v)
}

// TileType returns the generated tile for a coordinate. Overrides from
// map_chunks rows are resolved by the caller before consulting the
// generator.
func TileType(c Coord, w Weights) string {
	if c.Q == 0 && c.R == 0 {
		return TileSafeZone
	}

	total := w.Void + w.Asteroid + w.Nebula + w.Anomaly
	if total <= 0 {
		w = DefaultWeights
		total = w.Void + w.Asteroid + w.Nebula + w.Anomaly
	}

	roll := hash(c) * total
	if roll < w.Void {
		return TileVoid
	}
	roll -= w.Void
	if roll < w.Asteroid {
		return TileAsteroid
	}
	roll -= w.Asteroid
	if roll < w.Nebula {
		return TileNebula
	}
	return TileAnomaly
}
