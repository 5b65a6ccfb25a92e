package theme

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/cjeanneret/BoothGo/internal/logic/frame"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
)

// scriptedRand returns values from a fixed list, cycling, and counts calls.
type scriptedRand struct {
	values []float64
	calls  int
}

func (s *scriptedRand) Float64() float64 {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v
}

func testStrip(t *testing.T, photos int) layout.Strip {
	t.Helper()
	s, err := layout.Calculate(layout.Options{}, 1280, photos)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func assertNear(t *testing.T, what string, got color.RGBA, want color.RGBA, tol int) {
	t.Helper()
	if !near(got.R, want.R, tol) || !near(got.G, want.G, tol) || !near(got.B, want.B, tol) || !near(got.A, want.A, tol) {
		t.Errorf("%s = %v, want %v (±%d)", what, got, want, tol)
	}
}

func TestBackground_ExactSize(t *testing.T) {
	r := NewRenderer()
	s := testStrip(t, 3)
	for _, cfg := range []Config{
		Default(),
		Gradient{Top: GradientTop, Bottom: GradientBottom},
		Confetti{DotCount: 10, Radius: 4},
		Custom{},
	} {
		img, err := r.Background(s, cfg)
		if err != nil {
			t.Fatalf("%s: %v", cfg.Name(), err)
		}
		if img.Bounds() != image.Rect(0, 0, s.Width, s.Height) {
			t.Errorf("%s: bounds = %v, want %dx%d", cfg.Name(), img.Bounds(), s.Width, s.Height)
		}
	}
}

func TestSolid_UniformAndDeterministic(t *testing.T) {
	r := NewRenderer()
	s := testStrip(t, 1)
	cfg := Solid{Color: color.RGBA{R: 10, G: 120, B: 230, A: 255}}

	a, err := r.Background(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Background(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("solid renders differ")
	}
	for _, p := range []image.Point{{0, 0}, {s.Width - 1, 0}, {s.Width / 2, s.Height / 2}, {s.Width - 1, s.Height - 1}} {
		assertNear(t, "solid pixel", a.RGBAAt(p.X, p.Y), color.RGBA{R: 10, G: 120, B: 230, A: 255}, 1)
	}
}

func TestGradient_TopToBottom(t *testing.T) {
	r := NewRenderer()
	s := testStrip(t, 2)
	cfg := Gradient{Top: GradientTop, Bottom: GradientBottom}

	a, err := r.Background(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Background(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("gradient renders differ")
	}

	x := s.Width / 2
	assertNear(t, "top pixel", a.RGBAAt(x, 0), GradientTop, 4)
	assertNear(t, "bottom pixel", a.RGBAAt(x, s.Height-1), GradientBottom, 4)

	// Green rises from 0x9a to 0xd0 down the strip, and every row is flat.
	prev := -1
	for y := 0; y < s.Height; y += 17 {
		g := int(a.RGBAAt(x, y).G)
		if g < prev {
			t.Fatalf("green decreased at y=%d: %d < %d", y, g, prev)
		}
		prev = g
		if a.RGBAAt(0, y) != a.RGBAAt(s.Width-1, y) {
			t.Errorf("row %d is not uniform", y)
		}
	}
}

func TestCustom_StretchesAndIsDeterministic(t *testing.T) {
	// 2x2 source: red, green / blue, yellow.
	pix := []uint8{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 0, 255,
	}
	bg, err := frame.New(2, 2, pix)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer()
	s := testStrip(t, 1)

	a, err := r.Background(s, Custom{Background: bg})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Background(s, Custom{Background: bg})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("custom renders differ")
	}

	assertNear(t, "top-left", a.RGBAAt(2, 2), color.RGBA{R: 255, A: 255}, 40)
	assertNear(t, "top-right", a.RGBAAt(s.Width-3, 2), color.RGBA{G: 255, A: 255}, 40)
	assertNear(t, "bottom-left", a.RGBAAt(2, s.Height-3), color.RGBA{B: 255, A: 255}, 40)
	assertNear(t, "bottom-right", a.RGBAAt(s.Width-3, s.Height-3), color.RGBA{R: 255, G: 255, A: 255}, 40)
}

func TestCustom_MissingImageDrawsNothing(t *testing.T) {
	r := NewRenderer()
	img, err := r.Background(testStrip(t, 1), Custom{})
	if err != nil {
		t.Fatalf("missing custom image should be skipped, got %v", err)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatalf("expected transparent output, found alpha %d at byte %d", img.Pix[i], i)
		}
	}
}

func TestConfetti_DotCountAndColor(t *testing.T) {
	// Every dot lands at the strip center with hue 180.
	src := &scriptedRand{values: []float64{0.5}}
	r := NewRenderer(WithRand(src))
	s := testStrip(t, 2)

	img, err := r.Background(s, Confetti{DotCount: 100, Radius: 4})
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 300 {
		t.Errorf("random draws = %d, want 300 (x, y, hue per dot)", src.calls)
	}

	// hsl(180, 70%, 60%) = rgb(82, 224, 224)
	assertNear(t, "dot center", img.RGBAAt(s.Width/2, s.Height/2), color.RGBA{R: 82, G: 224, B: 224, A: 255}, 3)
	// Everything away from the dot is the white base.
	assertNear(t, "corner", img.RGBAAt(0, 0), color.RGBA{R: 255, G: 255, B: 255, A: 255}, 0)
	assertNear(t, "outside radius", img.RGBAAt(s.Width/2+10, s.Height/2), color.RGBA{R: 255, G: 255, B: 255, A: 255}, 0)
}

func TestConfetti_FixedSaturationAndLightness(t *testing.T) {
	// One dot at (0.25w, 0.25h) with hue 0.
	src := &scriptedRand{values: []float64{0.25, 0.25, 0}}
	r := NewRenderer(WithRand(src))
	s := testStrip(t, 1)

	img, err := r.Background(s, Confetti{DotCount: 1, Radius: 4})
	if err != nil {
		t.Fatal(err)
	}
	// hsl(0, 70%, 60%) = rgb(224, 82, 82)
	x, y := int(float64(s.Width)*0.25), int(float64(s.Height)*0.25)
	assertNear(t, "red dot", img.RGBAAt(x, y), color.RGBA{R: 224, G: 82, B: 82, A: 255}, 3)
}

func TestConfetti_DefaultsWhenZero(t *testing.T) {
	src := &scriptedRand{values: []float64{0.1, 0.9, 0.3}}
	r := NewRenderer(WithRand(src))
	if _, err := r.Background(testStrip(t, 1), Confetti{}); err != nil {
		t.Fatal(err)
	}
	if src.calls != 3*DefaultDotCount {
		t.Errorf("random draws = %d, want %d", src.calls, 3*DefaultDotCount)
	}
}

func TestConfetti_SameSeedSameOutput(t *testing.T) {
	s := testStrip(t, 2)
	render := func() []byte {
		r := NewRenderer(WithRand(rand.New(rand.NewPCG(7, 11))))
		img, err := r.Background(s, Confetti{DotCount: 100, Radius: 4})
		if err != nil {
			t.Fatal(err)
		}
		return img.Pix
	}
	if !bytes.Equal(render(), render()) {
		t.Error("seeded confetti renders should match")
	}
}

func TestConfetti_NonDeterministicByDefault(t *testing.T) {
	r := NewRenderer()
	s := testStrip(t, 2)
	cfg := Confetti{DotCount: 100, Radius: 4}

	// 100 random dots over ~170k pixels: two identical renders are
	// practically impossible. Allow a few attempts anyway.
	differ := false
	for attempt := 0; attempt < 3 && !differ; attempt++ {
		a, err := r.Background(s, cfg)
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.Background(s, cfg)
		if err != nil {
			t.Fatal(err)
		}
		differ = !bytes.Equal(a.Pix, b.Pix)
	}
	if !differ {
		t.Error("confetti renders with the default source should differ")
	}
}

func TestPaint_NilConfig(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Background(testStrip(t, 1), nil); !errors.Is(err, ErrNoTheme) {
		t.Errorf("err = %v, want ErrNoTheme", err)
	}
}

func TestBackground_EmptyStrip(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Background(layout.Strip{}, Default()); err == nil {
		t.Error("expected error for empty strip")
	}
}

func TestWithRand_NilKeepsDefault(t *testing.T) {
	r := NewRenderer(WithRand(nil))
	if r.rand == nil {
		t.Fatal("nil WithRand should keep the default source")
	}
}
