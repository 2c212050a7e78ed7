package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"go.yaml.in/yaml/v2"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// layerNamePattern keeps names safe as a URL path segment and inside CSS
// class selectors.
var layerNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// layerFile is the on-disk layout of a -layers file.
type layerFile struct {
	Layers []layerSpec `yaml:"layers"`
}

type layerSpec struct {
	Name   string        `yaml:"name"`
	Seed   int64         `yaml:"seed"`
	Count  *int          `yaml:"count"`
	Ranges spanOverrides `yaml:"ranges"`
}

// spanOverrides leaves a span nil when the file omits it, so it can inherit
// from scatter.DefaultRanges.
type spanOverrides struct {
	Left     *scatter.Span `yaml:"left"`
	Top      *scatter.Span `yaml:"top"`
	Delay    *scatter.Span `yaml:"delay"`
	Duration *scatter.Span `yaml:"duration"`
	Scale    *scatter.Span `yaml:"scale"`
	Opacity  *scatter.Span `yaml:"opacity"`
	Blur     *scatter.Span `yaml:"blur"`
}

func (o spanOverrides) apply(r scatter.Ranges) scatter.Ranges {
	pairs := []struct {
		src *scatter.Span
		dst *scatter.Span
	}{
		{o.Left, &r.Left},
		{o.Top, &r.Top},
		{o.Delay, &r.Delay},
		{o.Duration, &r.Duration},
		{o.Scale, &r.Scale},
		{o.Opacity, &r.Opacity},
		{o.Blur, &r.Blur},
	}
	for _, p := range pairs {
		if p.src != nil {
			*p.dst = *p.src
		}
	}
	return r
}

// LoadLayers reads layer definitions from a YAML file.
func LoadLayers(path string) ([]scatter.Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layers file: %w", err)
	}
	layers, err := ParseLayers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layers, nil
}

// ParseLayers decodes and validates YAML layer definitions. Unknown keys are
// rejected.
func ParseLayers(data []byte) ([]scatter.Layer, error) {
	var file layerFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("parse layers: %w", err)
	}

	var errs []error
	seen := make(map[string]bool, len(file.Layers))
	layers := make([]scatter.Layer, 0, len(file.Layers))

	for i, spec := range file.Layers {
		prefix := fmt.Sprintf("layers[%d]", i)

		if spec.Name == "" {
			errs = append(errs, ValidationError{Field: prefix + ".name", Message: "is required"})
		} else if !layerNamePattern.MatchString(spec.Name) {
			errs = append(errs, ValidationError{Field: prefix + ".name", Message: fmt.Sprintf("%q must match %s", spec.Name, layerNamePattern)})
		} else if seen[spec.Name] {
			errs = append(errs, ValidationError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate layer %q", spec.Name)})
		}
		seen[spec.Name] = true

		var count uint
		switch {
		case spec.Count == nil:
			errs = append(errs, ValidationError{Field: prefix + ".count", Message: "is required"})
		case *spec.Count < 0:
			errs = append(errs, ValidationError{Field: prefix + ".count", Message: fmt.Sprintf("must be >= 0 (got %d)", *spec.Count)})
		default:
			count = uint(*spec.Count)
		}

		ranges := spec.Ranges.apply(scatter.DefaultRanges())
		if err := ranges.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: prefix + ".ranges", Message: err.Error()})
		}

		layers = append(layers, scatter.Layer{
			Name:   spec.Name,
			Config: scatter.Config{Seed: spec.Seed, Count: count},
			Ranges: ranges,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return layers, nil
}

// LayerSet returns the built-in layers plus any loaded from cfg.LayersFile.
// File layers replace built-ins with the same name.
func LayerSet(cfg *Config) (*scatter.LayerSet, error) {
	set := scatter.DefaultLayerSet()
	if cfg.LayersFile == "" {
		return set, nil
	}

	layers, err := LoadLayers(cfg.LayersFile)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		set.Add(l)
	}
	return set, nil
}

// SelectLayers resolves cfg.Layers against set (all layers when empty) and
// applies the -seed and -count overrides.
func SelectLayers(cfg *Config, set *scatter.LayerSet) ([]scatter.Layer, error) {
	var selected []scatter.Layer
	if len(cfg.Layers) == 0 {
		selected = set.All()
	} else {
		for _, name := range cfg.Layers {
			l, err := set.Get(name)
			if err != nil {
				return nil, err
			}
			selected = append(selected, l)
		}
	}

	count, hasCount := cfg.CountOverride()
	for i := range selected {
		if cfg.SeedSet {
			selected[i].Seed = cfg.Seed
		}
		if hasCount {
			selected[i].Count = count
		}
	}

	return selected, nil
}
