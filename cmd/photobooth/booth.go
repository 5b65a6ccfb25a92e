package main

import (
	"fmt"
	"slices"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/flash"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/hw/trigger"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/export"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
	"github.com/gogpu/gg/text"
)

// booth bundles the hardware and core components built from config.
type booth struct {
	cfg        *config.Config
	gpio       gpio.Driver
	flash      *flash.GPIOFlash // nil when no lamp is wired
	button     *trigger.Button  // nil when no push button is wired
	source     camera.FrameSource
	session    *session.Session
	sequencer  *capture.Sequencer
	compositor *strip.Compositor
	encoder    *export.Encoder
}

// newBooth wires every component described by cfg.
func newBooth(cfg *config.Config) (*booth, error) {
	b := &booth{cfg: cfg, session: session.New(), encoder: export.NewEncoder()}

	debug.Step(1, "Initializing frame source")
	src, err := newFrameSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("init camera failed: %w", err)
	}
	b.source = src
	debug.Value("Camera ready", src.Ready())

	opts := []capture.Option{capture.WithParams(capture.Params{
		Tick:     cfg.TickInterval(),
		Pause:    cfg.ShotPause(),
		MaxShots: cfg.Capture.MaxShots,
	})}

	if cfg.Flash.Enabled || cfg.Trigger.Enabled {
		debug.Step(2, "Initializing GPIO")
		drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("init GPIO failed: %w", err)
		}
		b.gpio = drv
	}
	if cfg.Flash.Enabled {
		b.flash = flash.NewGPIOFlash(b.gpio, cfg.Flash.Pin, cfg.FlashDuration())
		opts = append(opts, capture.WithFlash(b.flash))
		debug.Value("Flash pin", cfg.Flash.Pin)
		debug.Value("Flash duration", cfg.FlashDuration())
	}
	if cfg.Trigger.Enabled {
		b.button, err = trigger.NewButton(b.gpio, cfg.Trigger.Pin, cfg.Trigger.ActiveLow, cfg.TriggerPoll())
		if err != nil {
			b.Close()
			return nil, err
		}
		debug.Value("Trigger pin", cfg.Trigger.Pin)
	}
	b.sequencer = capture.NewSequencer(src, opts...)

	debug.Step(3, "Loading compositor")
	compOpts := []strip.Option{strip.WithLayout(layout.Options{
		MaxWidth: cfg.Strip.MaxWidth,
		Margin:   cfg.Strip.Margin,
	})}
	for _, path := range cfg.Strip.FallbackFonts {
		src, err := text.NewFontSourceFromFile(path)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("load fallback font %s: %w", path, err)
		}
		compOpts = append(compOpts, strip.WithFallbackFonts(src))
		debug.Value("Fallback font", path)
	}
	b.compositor, err = strip.NewCompositor(compOpts...)
	if err != nil {
		b.Close()
		return nil, err
	}

	if err := b.session.SelectTheme(cfg.Strip.Theme); err != nil {
		b.Close()
		return nil, err
	}
	if cfg.Strip.Caption != "" {
		b.session.SetCaption(cfg.Strip.Caption)
	}
	return b, nil
}

// Close turns the flash off and releases the GPIO driver.
func (b *booth) Close() error {
	if b.flash != nil {
		if err := b.flash.Close(); err != nil {
			debug.Error(err)
		}
	}
	if b.gpio != nil {
		return b.gpio.Close()
	}
	return nil
}

// shotCounts lists the shot counts offered to the user (1..max).
func (b *booth) shotCounts() []int {
	counts := make([]int, 0, b.cfg.Capture.MaxShots)
	for n := 1; n <= b.cfg.Capture.MaxShots; n++ {
		counts = append(counts, n)
	}
	return counts
}

// newFrameSource selects a frame source implementation based on configuration.
func newFrameSource(cfg *config.Config) (camera.FrameSource, error) {
	switch cfg.Camera.Type {
	case config.CameraPattern:
		return camera.NewPatternSource(cfg.Camera.Width, cfg.Camera.Height), nil
	case config.CameraCommand:
		return camera.NewCommandSource(cfg.Camera.Command, cfg.Camera.Args, cfg.SourceTimeout()), nil
	case config.CameraDirectory:
		return camera.NewDirectorySource(cfg.Camera.Directory), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// Overrides holds CLI values that replace config defaults.
// Zero values mean "use config".
type Overrides struct {
	Shots    int
	Theme    string
	Caption  string
	Viewport int
	OutDir   string
}

// validateOverrides checks that non-zero overrides are within valid ranges.
func validateOverrides(cfg *config.Config, o Overrides) error {
	if o.Shots != 0 && (o.Shots < 1 || o.Shots > cfg.Capture.MaxShots) {
		return fmt.Errorf("shots must be between 1 and %d, got %d", cfg.Capture.MaxShots, o.Shots)
	}
	if o.Theme != "" && !slices.Contains(theme.Names(), o.Theme) {
		return fmt.Errorf("theme must be one of %v, got %q", theme.Names(), o.Theme)
	}
	if o.Viewport != 0 && o.Viewport <= cfg.Strip.Margin {
		return fmt.Errorf("viewport must exceed the strip margin (%d), got %d", cfg.Strip.Margin, o.Viewport)
	}
	return nil
}

// applyOverridesToCopy returns a new config with overrides applied.
func applyOverridesToCopy(base *config.Config, o Overrides) *config.Config {
	cfg := *base
	if o.Shots > 0 {
		cfg.Capture.DefaultShots = o.Shots
	}
	if o.Theme != "" {
		cfg.Strip.Theme = o.Theme
	}
	if o.Caption != "" {
		cfg.Strip.Caption = o.Caption
	}
	if o.Viewport > 0 {
		cfg.Strip.ViewportWidth = o.Viewport
	}
	if o.OutDir != "" {
		cfg.Defaults.OutputDir = o.OutDir
	}
	return &cfg
}
