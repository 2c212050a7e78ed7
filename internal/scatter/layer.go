package scatter

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownLayer is returned when a layer name is not in a LayerSet.
var ErrUnknownLayer = errors.New("unknown layer")

// Preset layer names.
const (
	LayerMist      = "mist"
	LayerFireflies = "fireflies"
)

// MistSeed is the base seed of the hero mist band.
const MistSeed = 20251222

// Layer is one decorative band: a named config plus the ranges its particles
// are mapped onto.
type Layer struct {
	Name   string `json:"name" yaml:"name"`
	Config `yaml:",inline"`
	Ranges Ranges `json:"ranges" yaml:"ranges"`
}

// Particles generates the layer's particles.
func (l Layer) Particles() []Particle {
	return GenerateRanges(l.Config, l.Ranges)
}

// With returns a copy of l using a different seed and count.
func (l Layer) With(seed int64, count uint) Layer {
	l.Seed = seed
	l.Count = count
	return l
}

// MistLayer is the dense mist field from the hero section: twelve large soft
// sprites drifting in the 6-76% vertical band.
func MistLayer() Layer {
	r := DefaultRanges()
	r.Opacity = Span{Base: 0.1, Width: 0.18}
	r.Blur = Span{Base: 10, Width: 18}

	return Layer{
		Name:   LayerMist,
		Config: Config{Seed: MistSeed, Count: 12},
		Ranges: r,
	}
}

// FirefliesLayer is a sparse set of small, brighter points.
func FirefliesLayer() Layer {
	return Layer{
		Name:   LayerFireflies,
		Config: Config{Seed: MistSeed + 1, Count: 10},
		Ranges: Ranges{
			Left:     Span{Base: 0, Width: 100},
			Top:      Span{Base: 20, Width: 60},
			Delay:    Span{Base: 0, Width: 6},
			Duration: Span{Base: 18, Width: 14},
			Scale:    Span{Base: 0.7, Width: 0.6},
			Opacity:  Span{Base: 0.2, Width: 0.16},
			Blur:     Span{Base: 10, Width: 6},
		},
	}
}

// LayerSet is a name-indexed collection of layers.
type LayerSet struct {
	layers map[string]Layer
}

// NewLayerSet returns a set holding the given layers. Later layers replace
// earlier ones with the same name.
func NewLayerSet(layers ...Layer) *LayerSet {
	s := &LayerSet{layers: make(map[string]Layer, len(layers))}
	for _, l := range layers {
		s.layers[l.Name] = l
	}
	return s
}

// DefaultLayerSet returns the built-in presets.
func DefaultLayerSet() *LayerSet {
	return NewLayerSet(MistLayer(), FirefliesLayer())
}

// Add inserts or replaces a layer.
func (s *LayerSet) Add(l Layer) {
	s.layers[l.Name] = l
}

// Get looks up a layer by name.
func (s *LayerSet) Get(name string) (Layer, error) {
	l, ok := s.layers[name]
	if !ok {
		return Layer{}, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return l, nil
}

// Names returns layer names sorted alphabetically.
func (s *LayerSet) Names() []string {
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the layers sorted by name.
func (s *LayerSet) All() []Layer {
	names := s.Names()
	out := make([]Layer, len(names))
	for i, name := range names {
		out[i] = s.layers[name]
	}
	return out
}

// Len returns the number of layers.
func (s *LayerSet) Len() int {
	return len(s.layers)
}
