package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

const (
	// ReferenceWidth is the viewport width sprite sizes are expressed against.
	ReferenceWidth = 1200

	// MaxImageSide bounds either PNG dimension.
	MaxImageSide = 4096

	// blurSteps is how many concentric rings approximate a CSS blur.
	blurSteps = 8
)

// ErrImageSize is returned for PNG dimensions outside [1, MaxImageSide].
var ErrImageSize = errors.New("image size out of range")

// PNGOptions controls preview rendering.
type PNGOptions struct {
	Width  int
	Height int
	Sprite Sprite
	Top    color.Color // background gradient, top edge
	Bottom color.Color // background gradient, bottom edge
}

// DefaultPNGOptions returns a 1200x630 preview on the page's night palette.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:  1200,
		Height: 630,
		Sprite: MistSprite(),
		Top:    color.RGBA{R: 0x06, G: 0x09, B: 0x13, A: 0xff},
		Bottom: color.RGBA{R: 0x05, G: 0x06, B: 0x0d, A: 0xff},
	}
}

// Validate checks the image dimensions.
func (o PNGOptions) Validate() error {
	if o.Width < 1 || o.Width > MaxImageSide || o.Height < 1 || o.Height > MaxImageSide {
		return fmt.Errorf("%w: %dx%d (max %d)", ErrImageSize, o.Width, o.Height, MaxImageSide)
	}
	return nil
}

// Image draws particles as soft white ellipses, each at its wrapper's center,
// sized by the sprite and scale, faded by opacity and widened by blur.
func Image(particles []scatter.Particle, opts PNGOptions) (image.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	w, h := float64(opts.Width), float64(opts.Height)
	k := w / ReferenceWidth

	dc := gg.NewContext(opts.Width, opts.Height)
	if opts.Top != nil && opts.Bottom != nil {
		grad := gg.NewLinearGradient(0, 0, 0, h)
		grad.AddColorStop(0, opts.Top)
		grad.AddColorStop(1, opts.Bottom)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	} else {
		dc.SetColor(color.Black)
		dc.Clear()
	}

	for _, p := range particles {
		drawParticle(dc, p, opts.Sprite, w, h, k)
	}

	return dc.Image(), nil
}

func drawParticle(dc *gg.Context, p scatter.Particle, s Sprite, w, h, k float64) {
	cx := p.Left/100*w + s.Width*k/2
	cy := p.Top/100*h + s.Height*k/2
	rx := s.Width * k * p.Scale / 2
	ry := s.Height * k * p.Scale / 2
	spread := p.Blur * k
	if rx <= 0 || ry <= 0 {
		return
	}

	alpha := p.Opacity / blurSteps
	for i := 0; i < blurSteps; i++ {
		grow := spread * float64(blurSteps-i) / blurSteps
		dc.SetRGBA(1, 1, 1, alpha)
		dc.DrawEllipse(cx, cy, rx+grow, ry+grow*ry/rx)
		dc.Fill()
	}
}

// WritePNG renders particles and encodes them as PNG to w.
func WritePNG(w io.Writer, particles []scatter.Particle, opts PNGOptions) error {
	img, err := Image(particles, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG renders particles to a PNG file at path.
func SavePNG(path string, particles []scatter.Particle, opts PNGOptions) error {
	img, err := Image(particles, opts)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}
