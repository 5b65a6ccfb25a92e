package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
	"github.com/cjeanneret/BoothGo/internal/web"
	"github.com/spf13/cobra"
)

// webPortFlag implements pflag.Value for --web: 0 = use config address,
// --web alone → 8080, --web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }

// listenAddr returns the address the web booth binds to.
func listenAddr(cfg *config.Config, w *webPortFlag) string {
	if p := w.port(); p != 0 {
		return ":" + strconv.Itoa(p)
	}
	return cfg.Web.Addr
}

func newServeCmd(loadCfg func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	webPort := &webPortFlag{defaultPort: 8080}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web booth (live preview, capture, strip download)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCfg(cmd)
			if err != nil {
				return err
			}
			initDebug(cfg, "serve")

			b, err := newBooth(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			bc := web.NewStatusBroadcaster()
			debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(bc)))
			defer debug.SetOutput(os.Stdout)

			srv, err := web.NewServer(listenAddr(cfg, webPort), web.Deps{
				Broadcaster: bc,
				Sequencer:   b.sequencer,
				Session:     b.session,
				Compositor:  b.compositor,
				Encoder:     b.encoder,
				Cooldown:    cfg.CaptureCooldown(),
				Booth: web.BoothConfig{
					ShotCounts:    b.shotCounts(),
					DefaultShots:  cfg.Capture.DefaultShots,
					Themes:        theme.Names(),
					Theme:         cfg.Strip.Theme,
					Caption:       b.session.Caption(),
					CountdownFrom: capture.CountdownFrom,
					ViewportWidth: cfg.Strip.ViewportWidth,
				},
			})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if b.button != nil {
				go func() {
					if err := b.button.Watch(ctx, srv.Trigger); err != nil {
						debug.Error(err)
					}
				}()
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().Var(webPort, "web", "listen on port instead of web.addr; --web alone uses 8080")
	cmd.Flags().Lookup("web").NoOptDefVal = strconv.Itoa(webPort.defaultPort)
	return cmd
}
