package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, d Deps) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: sub static fs: %w", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(d, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /config", h.HandleConfig)
	mux.HandleFunc("GET /session", h.HandleSession)
	mux.HandleFunc("POST /capture", h.HandleCapture)
	mux.HandleFunc("POST /cancel", h.HandleCancel)
	mux.HandleFunc("PUT /caption", h.HandleCaption)
	mux.HandleFunc("PUT /theme", h.HandleTheme)
	mux.HandleFunc("POST /background", h.HandleBackground)
	mux.HandleFunc("POST /logo", h.HandleLogo)
	mux.HandleFunc("DELETE /logo", h.HandleDeleteLogo)
	mux.HandleFunc("GET /photos/{index}", h.HandlePhoto)
	mux.HandleFunc("GET /strip", h.HandleStrip)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return mux
}

// Trigger starts a capture with the booth's default shot count.
func (s *Server) Trigger() {
	s.handlers.TriggerCapture()
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
// An active capture run is cancelled on shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web booth listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		s.handlers.runMu.Lock()
		if s.handlers.cancelRun != nil {
			s.handlers.cancelRun()
		}
		s.handlers.runMu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
