// Package theme describes and paints the strip backgrounds.
package theme

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/cjeanneret/BoothGo/internal/logic/frame"
)

// Preset names accepted by Parse (and shown in the web UI).
const (
	NameWhite    = "white"
	NameGradient = "gradient"
	NameConfetti = "confetti"
	NameCustom   = "custom"
)

// Confetti defaults.
const (
	DefaultDotCount  = 100
	DefaultDotRadius = 4.0
)

// Gradient preset colors (#ff9a9e to #fad0c4).
var (
	GradientTop    = color.RGBA{R: 0xff, G: 0x9a, B: 0x9e, A: 0xff}
	GradientBottom = color.RGBA{R: 0xfa, G: 0xd0, B: 0xc4, A: 0xff}
)

// Config is one of Solid, Gradient, Confetti or Custom.
// Solid reports the white preset name whatever its color.
type Config interface {
	// Name returns the preset name the config corresponds to.
	Name() string
	isTheme()
}

// Solid fills the background with one color.
type Solid struct {
	Color color.Color
}

// Gradient interpolates vertically from Top (y=0) to Bottom (y=height).
type Gradient struct {
	Top, Bottom color.Color
}

// Confetti scatters DotCount random-hue dots of Radius on white.
type Confetti struct {
	DotCount int
	Radius   float64
}

// Custom stretches Background over the whole strip. A nil Background
// draws nothing.
type Custom struct {
	Background *frame.Frame
}

func (Solid) Name() string { return NameWhite }
func (Gradient) Name() string { return NameGradient }
func (Confetti) Name() string { return NameConfetti }
func (Custom) Name() string { return NameCustom }

func (Solid) isTheme() {}
func (Gradient) isTheme() {}
func (Confetti) isTheme() {}
func (Custom) isTheme() {}

// Default is the theme a new session starts with.
func Default() Config {
	return Solid{Color: color.White}
}

// Names lists the presets in display order.
func Names() []string {
	return []string{NameWhite, NameGradient, NameConfetti, NameCustom}
}

// Parse maps a preset name to its config. The custom preset takes the
// background image, which may be nil when none was uploaded yet.
func Parse(name string, background *frame.Frame) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameWhite, "":
		return Default(), nil
	case NameGradient:
		return Gradient{Top: GradientTop, Bottom: GradientBottom}, nil
	case NameConfetti:
		return Confetti{DotCount: DefaultDotCount, Radius: DefaultDotRadius}, nil
	case NameCustom:
		return Custom{Background: background}, nil
	default:
		return nil, fmt.Errorf("unknown theme %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}
