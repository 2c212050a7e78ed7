// Package render turns particle layouts into things a page can display:
// inline CSS declarations, a stylesheet, the mist sprite, and PNG previews.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// Sprite describes the element each particle is drawn with.
type Sprite struct {
	Width     float64 // CSS pixels before scale
	Height    float64
	Animation string // keyframes name
	Easing    string
	Image     string // background-image URL; empty omits the background
}

// MistSprite is the 520x220 floating mist element.
func MistSprite() Sprite {
	return Sprite{
		Width:     520,
		Height:    220,
		Animation: "mistFloat",
		Easing:    "ease-in-out",
		Image:     MistSpriteDataURI(),
	}
}

// Number formats v the way a JavaScript template literal would for values in
// [1e-6, 1e21): shortest round-trip digits, never an exponent. Server-side
// markup must match what a client derives or the page re-renders.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OuterStyle returns the positioning declarations for a particle's wrapper:
// placement, size, opacity, blur and scale.
func OuterStyle(p scatter.Particle, s Sprite) string {
	decls := []string{
		"left:" + Number(p.Left) + "%",
		"top:" + Number(p.Top) + "%",
		"width:" + Number(s.Width) + "px",
		"height:" + Number(s.Height) + "px",
		"opacity:" + Number(p.Opacity),
		"filter:blur(" + Number(p.Blur) + "px)",
		"transform:translate3d(0,0,0) scale(" + Number(p.Scale) + ")",
	}
	return strings.Join(decls, ";")
}

// InnerStyle returns the animated inner element's declarations. Scale and
// blur live on the wrapper so the animation's transform does not clobber them.
func InnerStyle(p scatter.Particle, s Sprite) string {
	var decls []string
	if s.Image != "" {
		decls = append(decls,
			`background-image:url("`+s.Image+`")`,
			"background-repeat:no-repeat",
			"background-size:cover",
		)
	}
	decls = append(decls, Animation(p, s))
	return strings.Join(decls, ";")
}

// Animation returns the animation shorthand for a particle.
func Animation(p scatter.Particle, s Sprite) string {
	return fmt.Sprintf("animation:%s %ss %s %ss infinite",
		s.Animation, Number(p.Duration), s.Easing, Number(p.Delay))
}

// ClassName returns the class for particle i of a layer.
func ClassName(layer string, i int) string {
	return fmt.Sprintf("scatter-%s-%d", layer, i)
}

// mistFloatKeyframes is the float cycle every mist particle runs.
const mistFloatKeyframes = `@keyframes mistFloat {
  0% { transform: translate3d(0, 0, 0); }
  50% { transform: translate3d(26px, -12px, 0); }
  100% { transform: translate3d(0, 0, 0); }
}
`

// Stylesheet renders one rule per particle (wrapper and inner span) plus the
// keyframes and a reduced-motion override.
func Stylesheet(layer string, particles []scatter.Particle, s Sprite) string {
	var b strings.Builder

	fmt.Fprintf(&b, "/* layer %s: %d particles */\n", layer, len(particles))
	for i, p := range particles {
		class := ClassName(layer, i)
		fmt.Fprintf(&b, ".%s{position:absolute;pointer-events:none;%s}\n", class, OuterStyle(p, s))
		fmt.Fprintf(&b, ".%s>span{display:block;width:100%%;height:100%%;%s}\n", class, InnerStyle(p, s))
	}

	if s.Animation == "mistFloat" {
		b.WriteString(mistFloatKeyframes)
	}
	fmt.Fprintf(&b, "@media (prefers-reduced-motion: reduce){[class^=\"scatter-%s-\"]>span{animation:none !important}}\n", layer)

	return b.String()
}
