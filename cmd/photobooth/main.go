package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var defaultConfigPath = filepath.Join("configs", "default.yaml")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the photobooth command tree.
func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "photobooth",
		Short:         "Photo booth: timed multi-shot capture composed into a printable strip",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, "path to config file (must be configs/*.yaml)")

	loadCfg := func(cmd *cobra.Command) (*config.Config, error) {
		explicit := cmd.Flags().Changed("config")
		return loadConfig(cfgPath, explicit)
	}

	root.AddCommand(newServeCmd(loadCfg), newShootCmd(loadCfg))
	return root
}

// loadConfig reads the config file. When the default file is missing and
// no path was given explicitly, built-in defaults are used.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config failed: %w", err)
}

// initDebug sets the log level and prints the startup banner.
func initDebug(cfg *config.Config, cmdName string) {
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Command", cmdName)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.PrintStruct("Capture", cfg.Capture)
}
