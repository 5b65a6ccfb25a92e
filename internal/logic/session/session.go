// Package session holds the state of the one active booth session:
// captured photos, theme, caption and logo.
package session

import (
	"errors"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/logic/frame"
	"github.com/cjeanneret/BoothGo/internal/logic/theme"
	"github.com/google/uuid"
)

// DefaultCaption is shown when the user never set a caption.
const DefaultCaption = "My Photo Booth ✨"

// ErrFull is returned when appending beyond the requested shot count.
var ErrFull = errors.New("session: captured set is full")

// Session is the explicit home of the booth state. The capture sequencer
// appends photos; user actions change theme, caption and logo. The mutex
// only serializes those writers against readers such as the web host.
type Session struct {
	mu       sync.RWMutex
	id       string
	photos   []*frame.Frame
	capacity int
	theme    theme.Config
	caption  *string
	logo     *frame.Frame
	bg       *frame.Frame // last uploaded custom background
}

// Snapshot is an immutable copy of the session state used for rendering.
type Snapshot struct {
	ID      string
	Photos  []*frame.Frame // capture order
	Theme   theme.Config
	Caption string
	Logo    *frame.Frame // nil = no logo
}

// New creates an empty session with the default theme and caption.
func New() *Session {
	return &Session{
		id:    uuid.NewString(),
		theme: theme.Default(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Reset clears the captured set and allows up to capacity new photos.
func (s *Session) Reset(capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = nil
	s.capacity = max(capacity, 0)
}

// Append adds a photo at the end of the captured set.
func (s *Session) Append(f *frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.photos) >= s.capacity {
		return ErrFull
	}
	s.photos = append(s.photos, f)
	return nil
}

// Len returns the number of captured photos.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Photo returns the i-th captured photo.
func (s *Session) Photo(i int) (*frame.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.photos) {
		return nil, false
	}
	return s.photos[i], true
}

// Photos returns the captured set in capture order.
func (s *Session) Photos() []*frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*frame.Frame, len(s.photos))
	copy(out, s.photos)
	return out
}

// SetTheme replaces the background theme. A nil config restores the
// default.
func (s *Session) SetTheme(cfg theme.Config) {
	if cfg == nil {
		cfg = theme.Default()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = cfg
	if c, ok := cfg.(theme.Custom); ok && c.Background != nil {
		s.bg = c.Background
	}
}

// SelectTheme switches to a named preset. Selecting the custom preset
// reuses the last uploaded background, if any.
func (s *Session) SelectTheme(name string) error {
	s.mu.RLock()
	bg := s.bg
	s.mu.RUnlock()

	cfg, err := theme.Parse(name, bg)
	if err != nil {
		return err
	}
	s.SetTheme(cfg)
	return nil
}

// Theme returns the current theme.
func (s *Session) Theme() theme.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetCaption sets the caption text. An empty caption is kept as is.
func (s *Session) SetCaption(caption string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caption = &caption
}

// Caption returns the caption, or DefaultCaption when never set.
func (s *Session) Caption() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.caption == nil {
		return DefaultCaption
	}
	return *s.caption
}

// SetLogo sets the logo; nil removes it.
func (s *Session) SetLogo(logo *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logo = logo
}

// Logo returns the logo, or nil.
func (s *Session) Logo() *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logo
}

// Snapshot copies the state needed by the compositor.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	photos := make([]*frame.Frame, len(s.photos))
	copy(photos, s.photos)
	caption := DefaultCaption
	if s.caption != nil {
		caption = *s.caption
	}
	return Snapshot{
		ID:      s.id,
		Photos:  photos,
		Theme:   s.theme,
		Caption: caption,
		Logo:    s.logo,
	}
}
