package theme

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math/rand/v2"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
	"github.com/gogpu/gg"
)

// Confetti dot color, in HSL.
const (
	confettiSaturation = 0.7
	confettiLightness  = 0.6
)

// ErrNoTheme is returned when Paint is given a nil config.
var ErrNoTheme = errors.New("theme: no theme configured")

// Rand is the random source used for confetti placement and hue.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// globalRand draws from the process-wide generator, so two renders
// never share a sequence.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Renderer paints theme backgrounds onto a drawing context.
type Renderer struct {
	rand Rand
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRand replaces the confetti random source (tests use a seeded or
// scripted source).
func WithRand(r Rand) Option {
	return func(rd *Renderer) {
		if r != nil {
			rd.rand = r
		}
	}
}

// NewRenderer creates a renderer using the global random source.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{rand: globalRand{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Paint fills the full strip bounds of dc according to cfg.
func (r *Renderer) Paint(dc *gg.Context, s layout.Strip, cfg Config) error {
	w, h := float64(s.Width), float64(s.Height)

	switch c := cfg.(type) {
	case Solid:
		dc.ClearWithColor(gg.FromColor(c.Color))
		return nil

	case Gradient:
		brush := gg.NewLinearGradientBrush(0, 0, 0, h).
			AddColorStop(0, gg.FromColor(c.Top)).
			AddColorStop(1, gg.FromColor(c.Bottom))
		dc.SetFillBrush(brush)
		dc.DrawRectangle(0, 0, w, h)
		return dc.Fill()

	case Confetti:
		return r.confetti(dc, w, h, c)

	case Custom:
		if c.Background == nil {
			debug.Verbose("Theme: custom background missing, skipped")
			return nil
		}
		dc.DrawImageEx(gg.ImageBufFromImage(c.Background.Image()), gg.DrawImageOptions{
			DstWidth:      w,
			DstHeight:     h,
			Interpolation: gg.InterpBilinear,
			Opacity:       1,
		})
		return nil

	case nil:
		return ErrNoTheme

	default:
		return fmt.Errorf("theme: unsupported config %T", cfg)
	}
}

func (r *Renderer) confetti(dc *gg.Context, w, h float64, c Confetti) error {
	dots, radius := c.DotCount, c.Radius
	if dots <= 0 {
		dots = DefaultDotCount
	}
	if radius <= 0 {
		radius = DefaultDotRadius
	}

	dc.ClearWithColor(gg.White)
	for i := 0; i < dots; i++ {
		x := r.rand.Float64() * w
		y := r.rand.Float64() * h
		hue := r.rand.Float64() * 360
		dc.SetFillBrush(gg.Solid(gg.HSL(hue, confettiSaturation, confettiLightness)))
		dc.DrawCircle(x, y, radius)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("confetti dot %d: %w", i, err)
		}
	}
	debug.Verbose("Theme: %d confetti dots (r=%.1f)", dots, radius)
	return nil
}

// Background renders cfg on its own and returns exactly s.Width x
// s.Height pixels.
func (r *Renderer) Background(s layout.Strip, cfg Config) (*image.RGBA, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("theme: empty strip %dx%d", s.Width, s.Height)
	}
	dc := gg.NewContext(s.Width, s.Height)
	if err := r.Paint(dc, s, cfg); err != nil {
		return nil, err
	}
	return ToRGBA(dc.Image()), nil
}

// ToRGBA returns img as *image.RGBA, converting when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
