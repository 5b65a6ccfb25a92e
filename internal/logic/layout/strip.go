package layout

import (
	"errors"
	"fmt"
	"math"
)

// Fixed strip proportions and offsets (in pixels unless stated).
const (
	DefaultMaxWidth = 480 // widest strip ever produced
	DefaultMargin   = 40  // viewport space left around the strip

	PhotoWidthRatio  = 0.9  // photo width / strip width
	PhotoAspectRatio = 0.72 // photo height / photo width
	BorderRatio      = 0.05 // tile border / strip width
	FontRatio        = 0.05 // caption font size / strip width
	LogoRatio        = 0.15 // logo side / strip width

	FooterMargin  = 120 // space below the last tile for caption and logo
	CaptionOffset = 50  // caption baseline, measured up from the bottom
	LogoOffset    = 110 // logo top edge, measured up from the bottom
)

// ErrTooNarrow is returned when the viewport leaves no room for a strip.
var ErrTooNarrow = errors.New("layout: viewport too narrow for a strip")

// Options bounds the strip width.
type Options struct {
	MaxWidth int // 0 = DefaultMaxWidth
	Margin   int // 0 = DefaultMargin
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	return o
}

// Strip is the derived geometry of a photo strip. It is computed on
// demand from the photo count and viewport width and never stored.
type Strip struct {
	Width       int // strip width
	Height      int // strip height
	PhotoWidth  int // drawn photo width
	PhotoHeight int // drawn photo height
	Border      int // white border around each photo
	PhotoCount  int // number of tiles
	FontSize    int // caption font size
	LogoSize    int // logo side length
}

// Calculate derives the strip geometry for photoCount photos shown in a
// viewport of the given width. Every derived length is floored to whole
// pixels.
func Calculate(opts Options, viewportWidth, photoCount int) (Strip, error) {
	opts = opts.withDefaults()
	if photoCount < 0 {
		return Strip{}, fmt.Errorf("layout: negative photo count %d", photoCount)
	}

	width := min(opts.MaxWidth, viewportWidth-opts.Margin)
	if width <= 0 {
		return Strip{}, fmt.Errorf("%w (viewport %d, margin %d)", ErrTooNarrow, viewportWidth, opts.Margin)
	}

	photoWidth := floor(float64(width) * PhotoWidthRatio)
	photoHeight := floor(float64(photoWidth) * PhotoAspectRatio)
	border := floor(float64(width) * BorderRatio)

	s := Strip{
		Width:       width,
		PhotoWidth:  photoWidth,
		PhotoHeight: photoHeight,
		Border:      border,
		PhotoCount:  photoCount,
		FontSize:    floor(float64(width) * FontRatio),
		LogoSize:    floor(float64(width) * LogoRatio),
	}
	s.Height = s.TileHeight()*photoCount + FooterMargin
	return s, nil
}

// TileWidth is the width of a bordered tile.
func (s Strip) TileWidth() int { return s.PhotoWidth + 2*s.Border }

// TileHeight is the height of a bordered tile (the per-photo pitch).
func (s Strip) TileHeight() int { return s.PhotoHeight + 2*s.Border }

// Tile returns the top-left corner and size of the i-th bordered tile.
func (s Strip) Tile(i int) (x, y, w, h float64) {
	x = float64(s.Width-s.TileWidth()) / 2
	y = float64(i * s.TileHeight())
	return x, y, float64(s.TileWidth()), float64(s.TileHeight())
}

// Photo returns the top-left corner and size of the i-th photo,
// centered inside its tile.
func (s Strip) Photo(i int) (x, y, w, h float64) {
	x = float64(s.Width-s.PhotoWidth) / 2
	y = float64(i*s.TileHeight() + s.Border)
	return x, y, float64(s.PhotoWidth), float64(s.PhotoHeight)
}

// CaptionAnchor returns the caption center x and baseline y.
func (s Strip) CaptionAnchor() (x, y float64) {
	return float64(s.Width) / 2, float64(s.Height - CaptionOffset)
}

// Logo returns the top-left corner and side length of the logo square.
func (s Strip) Logo() (x, y, size float64) {
	size = float64(s.LogoSize)
	return float64(s.Width)/2 - size/2, float64(s.Height - LogoOffset), size
}

func floor(v float64) int {
	return int(math.Floor(v))
}
