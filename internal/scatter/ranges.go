package scatter

import (
	"errors"
	"fmt"
	"math"
)

// Span is the half-open interval [Base, Base+Width).
type Span struct {
	Base  float64 `json:"base" yaml:"base"`
	Width float64 `json:"width" yaml:"width"`
}

// At maps a draw in [0, 1) onto the span.
func (s Span) At(draw float64) float64 {
	// The explicit conversion forces the product to be rounded before the add,
	// so no architecture fuses it into an FMA and changes the low bits.
	return s.Base + float64(draw*s.Width)
}

// Max returns the exclusive upper bound.
func (s Span) Max() float64 {
	return s.Base + s.Width
}

// Contains reports whether v lies in [Base, Base+Width). A zero-width span
// contains only its base.
func (s Span) Contains(v float64) bool {
	if s.Width == 0 {
		return v == s.Base
	}
	return v >= s.Base && v < s.Max()
}

func (s Span) String() string {
	return fmt.Sprintf("[%g, %g)", s.Base, s.Max())
}

// Ranges holds one span per particle field. Field order here is the draw order.
type Ranges struct {
	Left     Span `json:"left" yaml:"left"`
	Top      Span `json:"top" yaml:"top"`
	Delay    Span `json:"delay" yaml:"delay"`
	Duration Span `json:"duration" yaml:"duration"`
	Scale    Span `json:"scale" yaml:"scale"`
	Opacity  Span `json:"opacity" yaml:"opacity"`
	Blur     Span `json:"blur" yaml:"blur"`
}

// DefaultRanges returns the representative ranges used when a layer does not
// specify its own.
func DefaultRanges() Ranges {
	return Ranges{
		Left:     Span{Base: 0, Width: 100},
		Top:      Span{Base: 6, Width: 70},
		Delay:    Span{Base: 0, Width: 6},
		Duration: Span{Base: 18, Width: 22},
		Scale:    Span{Base: 0.7, Width: 1.1},
		Opacity:  Span{Base: 0.09, Width: 0.27},
		Blur:     Span{Base: 10, Width: 22},
	}
}

// FieldNames lists particle fields in draw order.
var FieldNames = [...]string{"left", "top", "delay", "duration", "scale", "opacity", "blur"}

// Spans returns the spans in draw order, aligned with FieldNames.
func (r Ranges) Spans() [7]Span {
	return [7]Span{r.Left, r.Top, r.Delay, r.Duration, r.Scale, r.Opacity, r.Blur}
}

// RangeError describes one invalid span.
type RangeError struct {
	Field   string
	Message string
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that every span is finite with a non-negative width and
// that opacity stays inside [0, 1]. All problems are reported together.
func (r Ranges) Validate() error {
	var errs []error

	for i, s := range r.Spans() {
		name := FieldNames[i]
		if !finite(s.Base) || !finite(s.Width) {
			errs = append(errs, RangeError{Field: name, Message: "bounds must be finite"})
			continue
		}
		if s.Width < 0 {
			errs = append(errs, RangeError{
				Field:   name,
				Message: fmt.Sprintf("width must be >= 0 (got %g)", s.Width),
			})
		}
	}

	if o := r.Opacity; finite(o.Base) && finite(o.Width) {
		if o.Base < 0 || o.Max() > 1 {
			errs = append(errs, RangeError{
				Field:   "opacity",
				Message: fmt.Sprintf("must stay within [0, 1] (got %s)", o),
			})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
