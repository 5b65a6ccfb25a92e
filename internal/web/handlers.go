package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/export"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
	"github.com/cjeanneret/BoothGo/internal/logic/layout"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
)

// Request body limits.
const (
	maxJSONBytes   = 1 << 10  // small JSON commands
	maxUploadBytes = 16 << 20 // background / logo images
	maxCaptionLen  = 120      // runes
	maxStripWidth  = 8192     // viewport width accepted by GET /strip
)

// CaptureRequest is the body of POST /capture.
type CaptureRequest struct {
	Shots int `json:"shots"`
}

// ValidateCaptureRequest checks the requested shot count (1..maxShots).
// Zero is valid for the sequencer but meaningless from the UI.
func ValidateCaptureRequest(req CaptureRequest, maxShots int) error {
	if req.Shots < 1 || req.Shots > maxShots {
		return fmt.Errorf("shots must be between 1 and %d", maxShots)
	}
	return nil
}

// BoothConfig holds the booth defaults shown by the UI (from config).
type BoothConfig struct {
	ShotCounts    []int    `json:"shot_counts"`
	DefaultShots  int      `json:"default_shots"`
	Themes        []string `json:"themes"`
	Theme         string   `json:"theme"`
	Caption       string   `json:"caption"`
	CountdownFrom int      `json:"countdown_from"`
	ViewportWidth int      `json:"viewport_width"`
}

// Deps are the booth components served over HTTP.
type Deps struct {
	Broadcaster *StatusBroadcaster
	Sequencer   *capture.Sequencer // nil: POST /capture answers 503
	Session     *session.Session
	Compositor  *strip.Compositor
	Encoder     *export.Encoder
	Booth       BoothConfig
	Cooldown    time.Duration // minimum delay between two capture requests
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Deps
	staticFS fs.FS

	runMu       sync.Mutex
	cancelRun   context.CancelFunc
	lastCapture time.Time
	now         func() time.Time
}

// NewHandlers creates handlers with the given dependencies and forwards
// sequencer events to the broadcaster.
func NewHandlers(d Deps, staticFS fs.FS) *Handlers {
	if d.Broadcaster == nil {
		d.Broadcaster = NewStatusBroadcaster()
	}
	if d.Session == nil {
		d.Session = session.New()
	}
	if d.Encoder == nil {
		d.Encoder = export.NewEncoder()
	}
	if d.Sequencer != nil {
		d.Sequencer.Subscribe(d.Broadcaster.PublishCapture)
	}
	return &Handlers{
		Deps:     d,
		staticFS: staticFS,
		now:      time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// HandleConfig returns the booth defaults as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Booth)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// SessionStatus is the body of GET /session.
type SessionStatus struct {
	ID        string `json:"id"`
	Ready     bool   `json:"ready"`
	Running   bool   `json:"running"`
	State     string `json:"state"`
	Countdown *int   `json:"countdown"`
	Photos    int    `json:"photos"`
	Theme     string `json:"theme"`
	Caption   string `json:"caption"`
	HasLogo   bool   `json:"has_logo"`
}

// HandleSession reports the session and sequencer state.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	snap := h.Session.Snapshot()
	st := SessionStatus{
		ID:      snap.ID,
		State:   capture.Idle.String(),
		Photos:  len(snap.Photos),
		Theme:   snap.Theme.Name(),
		Caption: snap.Caption,
		HasLogo: snap.Logo != nil,
	}
	if h.Sequencer != nil {
		st.Ready = h.Sequencer.Ready()
		st.Running = h.Sequencer.Running()
		st.State = h.Sequencer.State().String()
		if n, ok := h.Sequencer.Countdown(); ok {
			st.Countdown = &n
		}
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleCapture handles POST /capture to start a capture run.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CaptureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if h.Sequencer == nil {
		http.Error(w, "capture not configured", http.StatusServiceUnavailable)
		return
	}
	if err := ValidateCaptureRequest(req, h.Sequencer.Params().MaxShots); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	started, err := h.startRun(req.Shots)
	switch {
	case errors.Is(err, errRunActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case !started:
		writeJSON(w, http.StatusOK, map[string]any{"status": "camera_not_ready", "ready": false})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

var (
	errRunActive   = errors.New("capture already in progress")
	errRateLimited = errors.New("too many capture requests")
)

// startRun launches a background run of shots. started is false when the
// camera was not ready and nothing was launched.
func (h *Handlers) startRun(shots int) (started bool, err error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	if h.Sequencer.Running() {
		return false, errRunActive
	}
	if !h.lastCapture.IsZero() && h.now().Sub(h.lastCapture) < h.Cooldown {
		return false, errRateLimited
	}

	ctx, cancel := context.WithCancel(context.Background())
	started, err = h.Sequencer.Go(ctx, h.Session, shots, func(rep capture.Report, err error) {
		h.finishRun(cancel, rep, err)
	})
	switch {
	case errors.Is(err, capture.ErrBusy):
		cancel()
		return false, errRunActive
	case err != nil || !started:
		cancel()
		return false, err
	}

	h.cancelRun = cancel
	h.lastCapture = h.now()
	return true, nil
}

// TriggerCapture starts a run with the default shot count, as the
// physical button does. Refusals are reported on the status stream.
func (h *Handlers) TriggerCapture() {
	if h.Sequencer == nil {
		return
	}
	shots := h.Booth.DefaultShots
	if shots < 1 {
		shots = 1
	}
	started, err := h.startRun(shots)
	switch {
	case err != nil:
		h.Broadcaster.Broadcast("warn", "Trigger ignored: "+err.Error())
	case !started:
		h.Broadcaster.Broadcast("warn", "Trigger ignored: camera not ready")
	default:
		h.Broadcaster.Broadcast("info", fmt.Sprintf("Trigger: starting %d shot(s)", shots))
	}
}

func (h *Handlers) finishRun(cancel context.CancelFunc, rep capture.Report, err error) {
	cancel()
	h.runMu.Lock()
	h.cancelRun = nil
	h.runMu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		h.Broadcaster.Broadcast("warn", fmt.Sprintf("Sequence cancelled (%d photo(s) kept)", rep.Captured))
	case err != nil:
		h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
		debug.Error(err)
	default:
		h.Broadcaster.Broadcast("info", fmt.Sprintf("Sequence complete: %d/%d photo(s)", rep.Captured, rep.Attempted))
	}
	h.Broadcaster.Publish(StatusEvent{Type: EventDone, Count: rep.Captured, Total: rep.Attempted})
}

// HandleCancel handles POST /cancel to abort the active run.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.runMu.Lock()
	cancel := h.cancelRun
	h.runMu.Unlock()

	if cancel == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
		return
	}
	cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// HandleCaption handles PUT /caption.
func (h *Handlers) HandleCaption(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Caption string `json:"caption"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(body.Caption) > maxCaptionLen {
		http.Error(w, fmt.Sprintf("caption must be at most %d characters", maxCaptionLen), http.StatusBadRequest)
		return
	}
	h.Session.SetCaption(body.Caption)
	debug.Verbose("Caption set to %q", body.Caption)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTheme handles PUT /theme with a preset name.
func (h *Handlers) HandleTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.Session.SelectTheme(body.Theme); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	debug.Verbose("Theme set to %s", body.Theme)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*frame.Frame, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, err := frame.Decode(r.Body)
	if err != nil {
		http.Error(w, "unsupported or corrupt image", http.StatusBadRequest)
		debug.Verbose("Upload rejected: %v", err)
		return nil, false
	}
	return f, true
}

// HandleBackground handles POST /background: the raw image body becomes
// the custom theme.
func (h *Handlers) HandleBackground(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	h.Session.SetTheme(theme.Custom{Background: f})
	debug.Info("Custom background uploaded (%dx%d)", f.Width(), f.Height())
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogo handles POST /logo.
func (h *Handlers) HandleLogo(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	h.Session.SetLogo(f)
	debug.Info("Logo uploaded (%dx%d)", f.Width(), f.Height())
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteLogo handles DELETE /logo.
func (h *Handlers) HandleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	h.Session.SetLogo(nil)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePhoto serves one captured photo as PNG.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid photo index", http.StatusBadRequest)
		return
	}
	f, ok := h.Session.Photo(i)
	if !ok {
		http.Error(w, "no such photo", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, f.Image()); err != nil {
		debug.Error(err)
	}
}

// HandleStrip renders the strip and sends it as a download. 204 when no
// photo was captured.
func (h *Handlers) HandleStrip(w http.ResponseWriter, r *http.Request) {
	width := h.Booth.ViewportWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxStripWidth {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}
	if h.Compositor == nil {
		http.Error(w, "compositor not configured", http.StatusServiceUnavailable)
		return
	}

	snap := h.Session.Snapshot()
	if len(snap.Photos) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, err := h.Compositor.Render(r.Context(), snap, width)
	if err != nil {
		debug.Error(err)
		status := http.StatusInternalServerError
		if errors.Is(err, layout.ErrTooNarrow) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	saved, err := h.Encoder.Save(r.Context(), res, downloadSink{w: w})
	if err != nil {
		debug.Error(err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	if !saved {
		w.WriteHeader(http.StatusNoContent)
	}
}

// downloadSink delivers an export as an HTTP attachment.
type downloadSink struct {
	w http.ResponseWriter
}

func (d downloadSink) Deliver(_ context.Context, name, contentType string, data []byte) error {
	d.w.Header().Set("Content-Type", contentType)
	d.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	d.w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, err := d.w.Write(data)
	return err
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
