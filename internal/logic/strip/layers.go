package strip

import (
	"image/color"
	"strings"
	"unicode"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
)

// Layer is one step of the strip draw order.
type Layer interface {
	Name() string
	Draw(dc *gg.Context, s layout.Strip) error
}

// BackgroundLayer fills the whole strip with the theme.
type BackgroundLayer struct {
	Renderer *theme.Renderer
	Theme    theme.Config
}

func (BackgroundLayer) Name() string { return "background" }

func (l BackgroundLayer) Draw(dc *gg.Context, s layout.Strip) error {
	return l.Renderer.Paint(dc, s, l.Theme)
}

// TilesLayer draws each photo on a white bordered tile, top to bottom in
// capture order.
type TilesLayer struct {
	Photos []*frame.Frame
}

func (TilesLayer) Name() string { return "tiles" }

func (l TilesLayer) Draw(dc *gg.Context, s layout.Strip) error {
	for i, p := range l.Photos {
		dc.SetColor(color.White)
		dc.DrawRectangle(s.Tile(i))
		if err := dc.Fill(); err != nil {
			return err
		}
		if p == nil {
			continue
		}
		x, y, w, h := s.Photo(i)
		drawStretched(dc, p, x, y, w, h)
		debug.Trace("Tile %d at y=%.0f", i, y)
	}
	return nil
}

// CaptionLayer writes the caption centered near the bottom. A rune Font
// lacks is drawn with the first of Fallbacks that has it; runes no face
// covers are left out rather than drawn as missing-glyph boxes.
type CaptionLayer struct {
	Text      string
	Font      *text.FontSource
	Fallbacks []*text.FontSource
}

func (CaptionLayer) Name() string { return "caption" }

func (l CaptionLayer) Draw(dc *gg.Context, s layout.Strip) error {
	if l.Text == "" || l.Font == nil || s.FontSize <= 0 {
		return nil
	}
	size := float64(s.FontSize)
	faces := []text.Face{l.Font.Face(size)}
	for _, src := range l.Fallbacks {
		if src != nil {
			faces = append(faces, src.Face(size))
		}
	}

	runs := splitRuns(l.Text, faces)
	widths := make([]float64, len(runs))
	total := 0.0
	for i, r := range runs {
		widths[i], _ = text.Measure(r.text, r.face)
		total += widths[i]
	}

	dc.SetColor(color.Black)
	x, y := s.CaptionAnchor()
	x -= total / 2
	for i, r := range runs {
		dc.SetFont(r.face)
		dc.DrawString(r.text, x, y)
		x += widths[i]
	}
	return nil
}

// captionRun is a stretch of caption drawn with one face.
type captionRun struct {
	face text.Face
	text string
}

// splitRuns assigns every rune of s to the first face that has a glyph
// for it and groups neighbours sharing a face. When runes were dropped,
// whitespace left at either end is trimmed so the rest stays centered.
func splitRuns(s string, faces []text.Face) []captionRun {
	var runs []captionRun
	dropped := false
	for _, r := range s {
		var face text.Face
		for _, f := range faces {
			if f.HasGlyph(r) {
				face = f
				break
			}
		}
		if face == nil {
			dropped = true
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].face == face {
			runs[n-1].text += string(r)
		} else {
			runs = append(runs, captionRun{face: face, text: string(r)})
		}
	}
	if !dropped || len(runs) == 0 {
		return runs
	}
	runs[0].text = strings.TrimLeftFunc(runs[0].text, unicode.IsSpace)
	last := len(runs) - 1
	runs[last].text = strings.TrimRightFunc(runs[last].text, unicode.IsSpace)
	out := runs[:0]
	for _, r := range runs {
		if r.text != "" {
			out = append(out, r)
		}
	}
	return out
}

// LogoLayer draws the logo square above the caption.
type LogoLayer struct {
	Logo *frame.Frame
}

func (LogoLayer) Name() string { return "logo" }

func (l LogoLayer) Draw(dc *gg.Context, s layout.Strip) error {
	if l.Logo == nil || s.LogoSize <= 0 {
		return nil
	}
	x, y, size := s.Logo()
	drawStretched(dc, l.Logo, x, y, size, size)
	return nil
}

func drawStretched(dc *gg.Context, f *frame.Frame, x, y, w, h float64) {
	dc.DrawImageEx(gg.ImageBufFromImage(f.Image()), gg.DrawImageOptions{
		X:             x,
		Y:             y,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}
