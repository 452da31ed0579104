// Package world provides hex-grid geometry and deterministic tile
// typing for the explorable map. Axial coordinates (q, r) with the
// implicit cube coordinate s = -q-r.
package world

// Coord is an axial hex coordinate.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

// Distance is the cube distance between two hexes.
func Distance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return (dq + dr + ds) / 2
}

// IsAdjacent reports whether two hexes are exactly one step apart.
func IsAdjacent(a, b Coord) bool {
	return Distance(a, b) == 1
}

// ManhattanDistance is the grid metric used for inter-port sailing
// costs; ports live on the same axial plane but sail along lanes, not
// across hexes.
func ManhattanDistance(aq, ar, bq, br int) int {
	return abs(aq-bq) + abs(ar-br)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
