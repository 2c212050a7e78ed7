package render

import "math"

// Float keyframe peak: mistFloat reaches translate3d(26px, -12px, 0) at 50%.
const (
	FloatPeakX = 26.0
	FloatPeakY = -12.0
)

// FloatOffset returns the mistFloat translation, in CSS pixels, of a particle
// at t seconds after the page starts. Before its delay a particle rests at the
// origin; afterwards it loops out to the peak and back every Duration seconds.
func FloatOffset(delay, duration, t float64) (dx, dy float64) {
	if duration <= 0 || t < delay {
		return 0, 0
	}
	phase := math.Mod(t-delay, duration) / duration

	// 0 -> 1 over the first half, 1 -> 0 over the second, each eased.
	half := phase * 2
	if half > 1 {
		half = 2 - half
	}
	e := easeInOut(half)
	return FloatPeakX * e, FloatPeakY * e
}

// easeInOut approximates CSS ease-in-out (cubic-bezier(0.42, 0, 0.58, 1))
// with a smoothstep; both are symmetric and flat at the ends.
func easeInOut(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return x * x * (3 - 2*x)
}
