package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Camera (frame source) types.
const (
	CameraPattern   = "pattern"   // synthetic frames, no hardware
	CameraCommand   = "command"   // external capture command writing an image to stdout
	CameraDirectory = "directory" // replay images from a directory
)

var cameraTypes = []string{CameraPattern, CameraCommand, CameraDirectory}

// MaxShotLimit is the largest shot count a booth may offer.
const MaxShotLimit = 4

// Known theme presets (kept in sync with the theme package).
var themeNames = []string{"white", "gradient", "confetti", "custom"}

// CameraConfig selects and configures the frame source.
type CameraConfig struct {
	Type      string   `yaml:"type"`       // pattern, command or directory
	Command   string   `yaml:"command"`    // e.g. "libcamera-still" (type=command)
	Args      []string `yaml:"args"`       // command arguments
	TimeoutMs int      `yaml:"timeout_ms"` // bound on one grab (ms). 0 = no timeout
	Directory string   `yaml:"directory"`  // image directory (type=directory)
	Width     int      `yaml:"width"`      // pattern frame width (px)
	Height    int      `yaml:"height"`     // pattern frame height (px)
}

// FlashConfig describes the flash lamp wired on a GPIO pin.
type FlashConfig struct {
	Enabled    bool `yaml:"enabled"`
	Pin        int  `yaml:"pin"`         // BCM pin driving the relay/LED
	DurationMs int  `yaml:"duration_ms"` // how long the lamp stays lit (ms)
}

// TriggerConfig describes a physical push button starting a capture.
type TriggerConfig struct {
	Enabled   bool `yaml:"enabled"`
	Pin       int  `yaml:"pin"`        // BCM pin the button is wired to
	ActiveLow bool `yaml:"active_low"` // button pulls the pin to ground (internal pull-up)
	PollMs    int  `yaml:"poll_ms"`    // sampling period (ms)
}

// CaptureConfig holds the sequence timing. The countdown is always 3-2-1.
type CaptureConfig struct {
	TickMs       int `yaml:"tick_ms"`       // delay between countdown values (ms)
	PauseMs      int `yaml:"pause_ms"`      // delay after each shot (ms)
	MaxShots     int `yaml:"max_shots"`     // largest shot count accepted (1-4)
	DefaultShots int `yaml:"default_shots"` // shot count preselected in the UI
}

// StripConfig holds the composite defaults.
type StripConfig struct {
	MaxWidth      int      `yaml:"max_width"`      // widest strip (px)
	Margin        int      `yaml:"margin"`         // viewport margin around the strip (px)
	ViewportWidth int      `yaml:"viewport_width"` // viewport used when the client gives none
	Theme         string   `yaml:"theme"`          // initial theme preset
	Caption       string   `yaml:"caption"`        // initial caption; empty keeps the default
	FallbackFonts []string `yaml:"fallback_fonts"` // TTF/OTF files for caption glyphs Go Regular lacks (emoji)
}

// WebConfig configures the HTTP booth.
type WebConfig struct {
	Addr              string `yaml:"addr"`                // listen address, e.g. ":8080"
	CaptureCooldownMs int    `yaml:"capture_cooldown_ms"` // minimum delay between two capture requests (ms)
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool   `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	OutputDir  string `yaml:"output_dir"`  // where the CLI writes strips
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Flash    FlashConfig    `yaml:"flash"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Capture  CaptureConfig  `yaml:"capture"`
	Strip    StripConfig    `yaml:"strip"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files located directly in a
// directory named "configs", without any ".." element.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file %q must be in a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given: mock
// camera, mock GPIO, booth timing of the original kiosk.
func Default() *Config {
	var cfg Config
	cfg.Defaults.MockGPIO = true
	cfg.Defaults.DebugLevel = 1
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Camera.Type == "" {
		c.Camera.Type = CameraPattern
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width, c.Camera.Height = 1280, 720
	}
	if c.Flash.DurationMs <= 0 {
		c.Flash.DurationMs = 200
	}
	if c.Trigger.PollMs <= 0 {
		c.Trigger.PollMs = 20
	}
	if c.Capture.TickMs <= 0 {
		c.Capture.TickMs = 1000
	}
	if c.Capture.PauseMs <= 0 {
		c.Capture.PauseMs = 1000
	}
	if c.Capture.MaxShots <= 0 {
		c.Capture.MaxShots = 4
	}
	if c.Capture.DefaultShots <= 0 {
		c.Capture.DefaultShots = 1
	}
	if c.Strip.MaxWidth <= 0 {
		c.Strip.MaxWidth = 480
	}
	if c.Strip.Margin <= 0 {
		c.Strip.Margin = 40
	}
	if c.Strip.ViewportWidth <= 0 {
		c.Strip.ViewportWidth = 1280
	}
	if c.Strip.Theme == "" {
		c.Strip.Theme = "white"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Web.CaptureCooldownMs <= 0 {
		c.Web.CaptureCooldownMs = 1000
	}
	if c.Defaults.OutputDir == "" {
		c.Defaults.OutputDir = "."
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if !slices.Contains(cameraTypes, c.Camera.Type) {
		return fmt.Errorf("camera.type must be one of %v, got %q", cameraTypes, c.Camera.Type)
	}
	if c.Camera.Type == CameraCommand && c.Camera.Command == "" {
		return errors.New("camera.command is required for camera.type \"command\"")
	}
	if c.Camera.Type == CameraDirectory && c.Camera.Directory == "" {
		return errors.New("camera.directory is required for camera.type \"directory\"")
	}
	if c.Camera.TimeoutMs < 0 {
		return fmt.Errorf("camera.timeout_ms must be >= 0, got %d", c.Camera.TimeoutMs)
	}
	if c.Flash.Enabled && c.Flash.Pin <= 0 {
		return fmt.Errorf("flash.pin must be > 0 when the flash is enabled, got %d", c.Flash.Pin)
	}
	if c.Trigger.Enabled && c.Trigger.Pin <= 0 {
		return fmt.Errorf("trigger.pin must be > 0 when the trigger is enabled, got %d", c.Trigger.Pin)
	}
	if c.Trigger.Enabled && c.Flash.Enabled && c.Trigger.Pin == c.Flash.Pin {
		return fmt.Errorf("trigger.pin and flash.pin must differ, both are %d", c.Flash.Pin)
	}
	if c.Capture.MaxShots < 1 || c.Capture.MaxShots > MaxShotLimit {
		return fmt.Errorf("capture.max_shots must be between 1 and %d, got %d", MaxShotLimit, c.Capture.MaxShots)
	}
	if c.Capture.DefaultShots > c.Capture.MaxShots {
		return fmt.Errorf("capture.default_shots (%d) exceeds capture.max_shots (%d)", c.Capture.DefaultShots, c.Capture.MaxShots)
	}
	if c.Strip.ViewportWidth <= c.Strip.Margin {
		return fmt.Errorf("strip.viewport_width (%d) must exceed strip.margin (%d)", c.Strip.ViewportWidth, c.Strip.Margin)
	}
	if !slices.Contains(themeNames, c.Strip.Theme) {
		return fmt.Errorf("strip.theme must be one of %v, got %q", themeNames, c.Strip.Theme)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// TickInterval returns the delay between two countdown values.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Capture.TickMs) * time.Millisecond
}

// ShotPause returns the delay after each shot.
func (c *Config) ShotPause() time.Duration {
	return time.Duration(c.Capture.PauseMs) * time.Millisecond
}

// FlashDuration returns how long the flash lamp stays lit.
func (c *Config) FlashDuration() time.Duration {
	return time.Duration(c.Flash.DurationMs) * time.Millisecond
}

// TriggerPoll returns the trigger button sampling period.
func (c *Config) TriggerPoll() time.Duration {
	return time.Duration(c.Trigger.PollMs) * time.Millisecond
}

// SourceTimeout returns the bound on one frame grab (0 = none).
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Camera.TimeoutMs) * time.Millisecond
}

// CaptureCooldown returns the minimum delay between two web capture
// requests.
func (c *Config) CaptureCooldown() time.Duration {
	return time.Duration(c.Web.CaptureCooldownMs) * time.Millisecond
}
