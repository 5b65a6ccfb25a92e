// Package strip composites captured photos into the final strip image.
//
// Drawing follows a fixed list of layers, bottom to top:
//
//	background -> tiles -> caption -> logo
package strip

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrSurfaceUnavailable is returned when no drawing surface can be
// created for the strip. No partial result is produced.
var ErrSurfaceUnavailable = errors.New("strip: drawing surface unavailable")

// Result is a rendered strip.
type Result struct {
	Image      *image.RGBA
	Layout     layout.Strip
	PhotoCount int
}

// SurfaceFactory creates the drawing context for a strip.
type SurfaceFactory func(width, height int) (*gg.Context, error)

func newSurface(width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", width, height)
	}
	return gg.NewContext(width, height), nil
}

var goRegular = sync.OnceValues(func() (*text.FontSource, error) {
	return text.NewFontSource(goregular.TTF)
})

// Compositor renders session snapshots.
type Compositor struct {
	layout  layout.Options
	themes  *theme.Renderer
	surface   SurfaceFactory
	font      *text.FontSource
	fallbacks []*text.FontSource
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLayout bounds the strip width.
func WithLayout(o layout.Options) Option {
	return func(c *Compositor) { c.layout = o }
}

// WithThemeRenderer replaces the background renderer.
func WithThemeRenderer(r *theme.Renderer) Option {
	return func(c *Compositor) {
		if r != nil {
			c.themes = r
		}
	}
}

// WithSurface replaces the drawing surface factory.
func WithSurface(f SurfaceFactory) Option {
	return func(c *Compositor) {
		if f != nil {
			c.surface = f
		}
	}
}

// WithFont replaces the caption font (Go Regular by default).
func WithFont(src *text.FontSource) Option {
	return func(c *Compositor) {
		if src != nil {
			c.font = src
		}
	}
}

// WithFallbackFonts adds faces used for caption runes the caption font
// has no glyph for (emoji, symbols), tried in order.
func WithFallbackFonts(srcs ...*text.FontSource) Option {
	return func(c *Compositor) {
		for _, src := range srcs {
			if src != nil {
				c.fallbacks = append(c.fallbacks, src)
			}
		}
	}
}

// NewCompositor creates a compositor with the default layout, theme
// renderer and caption font.
func NewCompositor(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		themes:  theme.NewRenderer(),
		surface: newSurface,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.font == nil {
		src, err := goRegular()
		if err != nil {
			return nil, fmt.Errorf("load caption font: %w", err)
		}
		c.font = src
	}
	return c, nil
}

// Layout returns the strip geometry Render would use.
func (c *Compositor) Layout(viewportWidth, photoCount int) (layout.Strip, error) {
	return layout.Calculate(c.layout, viewportWidth, photoCount)
}

// Layers returns the draw list for snap, in z-order. The logo layer is
// only present when the snapshot has a logo.
func (c *Compositor) Layers(snap session.Snapshot) []Layer {
	layers := []Layer{
		BackgroundLayer{Renderer: c.themes, Theme: snap.Theme},
		TilesLayer{Photos: snap.Photos},
		CaptionLayer{Text: snap.Caption, Font: c.font, Fallbacks: c.fallbacks},
	}
	if snap.Logo != nil {
		layers = append(layers, LogoLayer{Logo: snap.Logo})
	}
	return layers
}

// Render draws snap for a viewport of the given width.
func (c *Compositor) Render(ctx context.Context, snap session.Snapshot, viewportWidth int) (*Result, error) {
	s, err := c.Layout(viewportWidth, len(snap.Photos))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}
	dc, err := c.surface(s.Width, s.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}
	defer dc.Close()

	debug.Section("Compositing strip")
	for i, l := range c.Layers(snap) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		debug.Layer(i, l.Name())
		if err := l.Draw(dc, s); err != nil {
			return nil, fmt.Errorf("strip: layer %s: %w", l.Name(), err)
		}
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("strip: flush: %w", err)
	}

	debug.Strip(s.Width, s.Height, len(snap.Photos))
	return &Result{
		Image:      theme.ToRGBA(dc.Image()),
		Layout:     s,
		PhotoCount: len(snap.Photos),
	}, nil
}
