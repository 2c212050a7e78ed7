// Package stats summarises generated layouts.
//
// A layout is only useful if its particles actually spread across the
// configured ranges. This package reports, per particle field:
//   - min, max and mean
//   - P50/P95/P99 from a T-Digest
//   - how many values fall outside the field's span
package stats

import (
	"math"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// digestCompression keeps ~100 centroids per field, plenty for layer sizes.
const digestCompression = 100

// FieldSummary describes the distribution of one particle field.
type FieldSummary struct {
	Field string
	Span  scatter.Span

	Min  float64
	Max  float64
	Mean float64

	// Percentiles (from T-Digest)
	P50 float64
	P95 float64
	P99 float64

	// Violations counts values outside Span.
	Violations int
}

// Coverage returns the observed spread (Max-Min) as a fraction of the span
// width. Zero-width spans report 1.
func (f FieldSummary) Coverage() float64 {
	if f.Span.Width == 0 {
		return 1
	}
	return (f.Max - f.Min) / f.Span.Width
}

// LayerSummary is a snapshot of a generated layer.
type LayerSummary struct {
	Layer         string
	Seed          int64
	Count         uint
	EffectiveSeed uint32
	Fields        []FieldSummary
}

// Violations returns the total number of out-of-range values.
func (s LayerSummary) Violations() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Violations
	}
	return n
}

// Field returns the summary for a field name.
func (s LayerSummary) Field(name string) (FieldSummary, bool) {
	for _, f := range s.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldSummary{}, false
}

// Summarize computes per-field statistics for particles generated from l.
func Summarize(l scatter.Layer, particles []scatter.Particle) LayerSummary {
	spans := l.Ranges.Spans()

	summary := LayerSummary{
		Layer:         l.Name,
		Seed:          l.Seed,
		Count:         l.Count,
		EffectiveSeed: l.Effective(),
		Fields:        make([]FieldSummary, len(spans)),
	}

	for i, span := range spans {
		summary.Fields[i] = summarizeField(scatter.FieldNames[i], span, i, particles)
	}

	return summary
}

func summarizeField(name string, span scatter.Span, index int, particles []scatter.Particle) FieldSummary {
	fs := FieldSummary{Field: name, Span: span}
	if len(particles) == 0 {
		return fs
	}

	digest := tdigest.NewWithCompression(digestCompression)
	fs.Min = math.Inf(1)
	fs.Max = math.Inf(-1)
	sum := 0.0

	for _, p := range particles {
		v := p.Fields()[index]
		digest.Add(v, 1)
		sum += v
		fs.Min = math.Min(fs.Min, v)
		fs.Max = math.Max(fs.Max, v)
		if !span.Contains(v) {
			fs.Violations++
		}
	}

	fs.Mean = sum / float64(len(particles))
	fs.P50 = digest.Quantile(0.50)
	fs.P95 = digest.Quantile(0.95)
	fs.P99 = digest.Quantile(0.99)

	return fs
}

// Violation is one out-of-range value.
type Violation struct {
	Index int
	Field string
	Value float64
	Span  scatter.Span
}

// Audit lists every particle field that falls outside r.
func Audit(particles []scatter.Particle, r scatter.Ranges) []Violation {
	spans := r.Spans()
	var out []Violation

	for i, p := range particles {
		for j, v := range p.Fields() {
			if !spans[j].Contains(v) {
				out = append(out, Violation{
					Index: i,
					Field: scatter.FieldNames[j],
					Value: v,
					Span:  spans[j],
				})
			}
		}
	}

	return out
}
