// Package scatter generates deterministic decorative particle layouts.
//
// A layout is a fixed, ordered sequence of particles derived only from a seed,
// a count and a set of ranges. The same inputs always produce the same bits,
// so a layout rendered by a server can be re-derived by a client (or by a
// different implementation) without any mismatch:
//   - the effective seed mixes the count in, so layers sharing a base seed
//     but using different counts do not alias
//   - a 32-bit LCG drives every draw, seven draws per particle in field order
//   - each field is an affine map base + draw*width of its draw
//
// Nothing here reads the clock, OS entropy or map iteration order.
package scatter

// SeedStride is the multiplier applied to the count when deriving the
// effective seed.
const SeedStride = 31

// Config selects a layout.
type Config struct {
	// Seed is the layer's base seed. Any value is valid.
	Seed int64 `json:"seed" yaml:"seed"`

	// Count is the number of particles to generate.
	Count uint `json:"count" yaml:"count"`
}

// Particle is one decorative element.
type Particle struct {
	Left     float64 `json:"left"`     // percent of container width
	Top      float64 `json:"top"`      // percent of container height
	Delay    float64 `json:"delay"`    // seconds
	Duration float64 `json:"duration"` // seconds
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacity"`
	Blur     float64 `json:"blur"` // pixels
}

// Fields returns the particle's values in draw order, aligned with FieldNames.
func (p Particle) Fields() [7]float64 {
	return [7]float64{p.Left, p.Top, p.Delay, p.Duration, p.Scale, p.Opacity, p.Blur}
}

// EffectiveSeed combines a base seed with the count: seed + count*SeedStride,
// truncated to 32 bits with wrapping.
func EffectiveSeed(seed int64, count uint) uint32 {
	return uint32(uint64(seed) + uint64(count)*SeedStride)
}

// Effective returns the effective seed for c.
func (c Config) Effective() uint32 {
	return EffectiveSeed(c.Seed, c.Count)
}

// Generate returns c.Count particles using DefaultRanges.
func Generate(c Config) []Particle {
	return GenerateRanges(c, DefaultRanges())
}

// GenerateRanges returns c.Count particles mapped onto r.
func GenerateRanges(c Config, r Ranges) []Particle {
	return Scatter(c.Effective(), c.Count, r)
}

// Scatter generates count particles from an already-mixed effective seed.
// Draw order per particle is left, top, delay, duration, scale, opacity, blur.
func Scatter(effective uint32, count uint, r Ranges) []Particle {
	rng := NewLCG(effective)
	out := make([]Particle, count)

	for i := range out {
		out[i] = Particle{
			Left:     r.Left.At(rng.Float64()),
			Top:      r.Top.At(rng.Float64()),
			Delay:    r.Delay.At(rng.Float64()),
			Duration: r.Duration.At(rng.Float64()),
			Scale:    r.Scale.At(rng.Float64()),
			Opacity:  r.Opacity.At(rng.Float64()),
			Blur:     r.Blur.At(rng.Float64()),
		}
	}

	return out
}
