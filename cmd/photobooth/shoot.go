package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/export"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newShootCmd(loadCfg func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var o Overrides

	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "Run one capture sequence and write the strip as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := loadCfg(cmd)
			if err != nil {
				return err
			}
			if err := validateOverrides(base, o); err != nil {
				return fmt.Errorf("invalid CLI override: %w", err)
			}
			cfg := applyOverridesToCopy(base, o)
			initDebug(cfg, "shoot")

			path, saved, err := runShoot(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !saved {
				fmt.Fprintln(cmd.OutOrStdout(), "No photo captured, nothing saved")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.Shots, "shots", 0, "number of shots (1..capture.max_shots); 0 uses capture.default_shots")
	f.StringVar(&o.Theme, "theme", "", "strip theme (white, gradient, confetti, custom)")
	f.StringVar(&o.Caption, "caption", "", "caption drawn under the photos")
	f.IntVar(&o.Viewport, "viewport", 0, "viewport width the strip is sized for (px)")
	f.StringVar(&o.OutDir, "out", "", "output directory (default defaults.output_dir)")
	return cmd
}

// runShoot runs one capture sequence with the configured booth, renders
// the strip and writes it into cfg.Defaults.OutputDir. progress receives
// the progress bar. saved is false when no photo was captured.
func runShoot(ctx context.Context, cfg *config.Config, progress io.Writer) (path string, saved bool, err error) {
	b, err := newBooth(cfg)
	if err != nil {
		return "", false, err
	}
	defer b.Close()
	if !b.source.Ready() {
		return "", false, fmt.Errorf("camera not ready (type %s)", cfg.Camera.Type)
	}

	shots := cfg.Capture.DefaultShots
	bar := progressbar.NewOptions(shots,
		progressbar.OptionSetDescription("Get ready"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)
	b.sequencer.Subscribe(func(ev capture.Event) {
		switch ev.Type {
		case capture.EventCountdown:
			bar.Describe(fmt.Sprintf("Shot %d/%d in %d", ev.Slot, ev.Total, ev.Count))
		case capture.EventCaptured:
			bar.Describe(fmt.Sprintf("Shot %d/%d", ev.Slot, ev.Total))
			bar.Add(1)
		case capture.EventDropped:
			bar.Describe(fmt.Sprintf("Shot %d/%d dropped", ev.Slot, ev.Total))
			bar.Add(1)
		}
	})

	rep, err := b.sequencer.Start(ctx, b.session, shots)
	bar.Finish()
	fmt.Fprintf(progress, "\n%d/%d shot(s) captured\n", rep.Captured, rep.Attempted)
	if err != nil {
		return "", false, err
	}

	res, err := b.compositor.Render(ctx, b.session.Snapshot(), cfg.Strip.ViewportWidth)
	if err != nil {
		return "", false, fmt.Errorf("render strip failed: %w", err)
	}

	sink := export.DirSink{Dir: cfg.Defaults.OutputDir}
	saved, err = b.encoder.Save(ctx, res, sink)
	if err != nil || !saved {
		return "", saved, err
	}
	return sink.Path(export.Filename), true, nil
}
