package main

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"golang.org/x/image/font/gofont/gomono"
)

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if w.String() != "0" {
		t.Errorf("String() = %q, want \"0\"", w.String())
	}
	w.Set("9000")
	if w.String() != "9000" {
		t.Errorf("String() = %q, want \"9000\"", w.String())
	}
	if w.Type() != "port" {
		t.Errorf("Type() = %q, want \"port\"", w.Type())
	}
}

func TestServeCmd_WebFlagWithoutValue(t *testing.T) {
	cmd := newServeCmd(nil)
	if err := cmd.ParseFlags([]string{"--web"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if got := cmd.Flags().Lookup("web").Value.String(); got != "8080" {
		t.Errorf("--web alone = %q, want 8080", got)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := config.Default()
	cfg.Web.Addr = "127.0.0.1:9999"
	if got := listenAddr(cfg, &webPortFlag{defaultPort: 8080}); got != "127.0.0.1:9999" {
		t.Errorf("without flag: %q", got)
	}
	if got := listenAddr(cfg, &webPortFlag{val: 8181, defaultPort: 8080}); got != ":8181" {
		t.Errorf("with flag: %q", got)
	}
}

// ---------- config loading ----------

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "default.yaml")
	cfg, err := loadConfig(path, false)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Camera.Type != config.CameraPattern || !cfg.Defaults.MockGPIO {
		t.Errorf("expected built-in defaults, got %+v", cfg)
	}
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "booth.yaml")
	if _, err := loadConfig(path, true); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadConfig_InvalidPath(t *testing.T) {
	if _, err := loadConfig("/etc/passwd", false); err == nil {
		t.Error("expected error for a path outside configs/")
	}
}

// ---------- overrides ----------

func TestValidateOverrides_Valid(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		name string
		o    Overrides
	}{
		{"all_zero", Overrides{}},
		{"shots_min", Overrides{Shots: 1}},
		{"shots_max", Overrides{Shots: 4}},
		{"theme", Overrides{Theme: "confetti"}},
		{"viewport", Overrides{Viewport: 800}},
		{"caption_and_out", Overrides{Caption: "Hello", OutDir: "/tmp/strips"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateOverrides(cfg, tc.o); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOverrides_Invalid(t *testing.T) {
	cfg := config.Default()
	cases := []struct {
		name string
		o    Overrides
	}{
		{"shots_negative", Overrides{Shots: -1}},
		{"shots_above_max", Overrides{Shots: 5}},
		{"theme_unknown", Overrides{Theme: "neon"}},
		{"viewport_below_margin", Overrides{Viewport: 40}},
		{"viewport_negative", Overrides{Viewport: -10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateOverrides(cfg, tc.o); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestApplyOverridesToCopy(t *testing.T) {
	base := config.Default()
	got := applyOverridesToCopy(base, Overrides{
		Shots:    3,
		Theme:    "gradient",
		Caption:  "Wedding",
		Viewport: 900,
		OutDir:   "out",
	})
	if got.Capture.DefaultShots != 3 || got.Strip.Theme != "gradient" ||
		got.Strip.Caption != "Wedding" || got.Strip.ViewportWidth != 900 ||
		got.Defaults.OutputDir != "out" {
		t.Errorf("overrides not applied: %+v", got)
	}
	if base.Capture.DefaultShots != 1 || base.Strip.Theme != "white" || base.Defaults.OutputDir != "." {
		t.Errorf("base config modified: %+v", base)
	}
}

func TestApplyOverridesToCopy_ZeroKeepsConfig(t *testing.T) {
	base := config.Default()
	got := applyOverridesToCopy(base, Overrides{})
	if !reflect.DeepEqual(got, base) {
		t.Errorf("zero overrides changed config: %+v", got)
	}
}

// ---------- booth wiring ----------

func TestNewFrameSource(t *testing.T) {
	cfg := config.Default()

	src, err := newFrameSource(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*camera.PatternSource); !ok {
		t.Errorf("pattern: got %T", src)
	}

	cfg.Camera.Type = config.CameraCommand
	cfg.Camera.Command = "libcamera-still"
	if src, _ = newFrameSource(cfg); src == nil {
		t.Fatal("command: nil source")
	} else if _, ok := src.(*camera.CommandSource); !ok {
		t.Errorf("command: got %T", src)
	}

	cfg.Camera.Type = config.CameraDirectory
	cfg.Camera.Directory = t.TempDir()
	if src, _ = newFrameSource(cfg); src == nil {
		t.Fatal("directory: nil source")
	} else if _, ok := src.(*camera.DirectorySource); !ok {
		t.Errorf("directory: got %T", src)
	}

	cfg.Camera.Type = "webcam"
	if _, err := newFrameSource(cfg); err == nil {
		t.Error("expected error for unknown camera type")
	}
}

func TestNewBooth_WithFlash(t *testing.T) {
	cfg := config.Default()
	cfg.Flash.Enabled = true
	cfg.Flash.Pin = 17
	cfg.Strip.Theme = "confetti"
	cfg.Strip.Caption = "Party"

	b, err := newBooth(cfg)
	if err != nil {
		t.Fatalf("newBooth: %v", err)
	}
	defer b.Close()

	if b.flash == nil || b.gpio == nil {
		t.Error("flash and GPIO driver should be wired")
	}
	if b.session.Caption() != "Party" {
		t.Errorf("caption = %q", b.session.Caption())
	}
	if b.session.Theme().Name() != "confetti" {
		t.Errorf("theme = %q", b.session.Theme().Name())
	}
	if got := b.shotCounts(); len(got) != 4 || got[0] != 1 || got[3] != 4 {
		t.Errorf("shotCounts = %v", got)
	}
}

func TestNewBooth_UnknownTheme(t *testing.T) {
	cfg := config.Default()
	cfg.Strip.Theme = "neon"
	if _, err := newBooth(cfg); err == nil {
		t.Error("expected error for unknown theme")
	}
}

// ---------- shoot ----------

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Defaults.DebugLevel = 0
	cfg.Camera.Width, cfg.Camera.Height = 64, 36
	cfg.Capture.TickMs = 1
	cfg.Capture.PauseMs = 1
	cfg.Capture.DefaultShots = 2
	cfg.Defaults.OutputDir = filepath.Join(t.TempDir(), "strips")
	return cfg
}

func TestRunShoot_WritesStrip(t *testing.T) {
	cfg := fastConfig(t)
	var progress bytes.Buffer

	path, saved, err := runShoot(context.Background(), cfg, &progress)
	if err != nil {
		t.Fatalf("runShoot: %v", err)
	}
	if !saved {
		t.Fatal("strip should be saved")
	}
	if filepath.Base(path) != "photobooth-strip.png" {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(progress.String(), "2/2 shot(s) captured") {
		t.Errorf("progress output: %q", progress.String())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode strip: %v", err)
	}
	// 1280 viewport: strip is 480 wide.
	if img.Bounds().Dx() != 480 {
		t.Errorf("strip width = %d, want 480", img.Bounds().Dx())
	}
	if c := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("white theme corner = %v", c)
	}
}

func TestRunShoot_CameraNotReady(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Camera.Type = config.CameraDirectory
	cfg.Camera.Directory = t.TempDir()

	if _, _, err := runShoot(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error for a camera that is not ready")
	}
	if _, err := os.Stat(cfg.Defaults.OutputDir); !os.IsNotExist(err) {
		t.Error("nothing should be written")
	}
}

func TestRunShoot_Cancelled(t *testing.T) {
	cfg := fastConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, saved, err := runShoot(ctx, cfg, &bytes.Buffer{}); err == nil || saved {
		t.Errorf("saved=%v err=%v, want cancellation error", saved, err)
	}
}

func TestShootCmd_RejectsBadShots(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"shoot", "--shots", "9"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "shots") {
		t.Errorf("err = %v, want shots validation error", err)
	}
}

func TestNewBooth_WithTrigger(t *testing.T) {
	cfg := config.Default()
	cfg.Trigger.Enabled = true
	cfg.Trigger.Pin = 23
	cfg.Trigger.ActiveLow = true

	b, err := newBooth(cfg)
	if err != nil {
		t.Fatalf("newBooth: %v", err)
	}
	defer b.Close()

	if b.button == nil || b.gpio == nil {
		t.Error("trigger button and GPIO driver should be wired")
	}
	if b.flash != nil {
		t.Error("flash should stay unwired")
	}
}

func TestNewBooth_FallbackFonts(t *testing.T) {
	cfg := config.Default()
	cfg.Strip.FallbackFonts = []string{filepath.Join(t.TempDir(), "missing.ttf")}
	if _, err := newBooth(cfg); err == nil {
		t.Error("expected error for a missing fallback font")
	}

	path := filepath.Join(t.TempDir(), "mono.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Strip.FallbackFonts = []string{path}
	b, err := newBooth(cfg)
	if err != nil {
		t.Fatalf("newBooth: %v", err)
	}
	b.Close()
}
