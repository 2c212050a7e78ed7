package scatter

// LCG constants (Numerical Recipes). Any implementation that wants to re-derive
// a layer must use exactly these values with 32-bit wrapping arithmetic.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223

	// twoTo32 maps a 32-bit state onto [0, 1).
	twoTo32 = 4294967296.0
)

// LCG is a 32-bit linear congruential generator.
//
// The zero value is a valid generator seeded with 0. An LCG is not safe for
// concurrent use; each Generate call owns its own.
type LCG struct {
	state uint32
}

// NewLCG returns a generator whose state starts at seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the state once and returns it.
func (g *LCG) Next() uint32 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// Float64 advances the state once and returns a value in [0, 1).
// The division is exact: every uint32 is representable in a float64.
func (g *LCG) Float64() float64 {
	return float64(g.Next()) / twoTo32
}

// State returns the current state without advancing it.
func (g *LCG) State() uint32 {
	return g.state
}
