// Package capture drives a timed multi-shot capture run:
// countdown, flash, still grab, pause, repeat.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/flash"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
)

var (
	// ErrInvalidShotCount is returned for a shot count outside 0..MaxShots.
	ErrInvalidShotCount = errors.New("capture: invalid shot count")
	// ErrBusy is returned when a run is already active.
	ErrBusy = errors.New("capture: a capture run is already active")
)

// Booth limits. The countdown always runs 3, 2, 1.
const (
	CountdownFrom = 3
	ShotLimit     = 4 // largest shot count any run accepts
)

// Params sets the timing of a run.
type Params struct {
	Tick     time.Duration // delay between countdown values
	Pause    time.Duration // delay after each shot
	MaxShots int           // largest accepted shot count, 1..ShotLimit
}

// DefaultParams returns the booth timing: one second per countdown tick,
// one second between shots, up to 4 shots.
func DefaultParams() Params {
	return Params{
		Tick:     time.Second,
		Pause:    time.Second,
		MaxShots: ShotLimit,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Tick < 0 {
		p.Tick = 0
	}
	if p.Pause < 0 {
		p.Pause = 0
	}
	if p.MaxShots <= 0 || p.MaxShots > ShotLimit {
		p.MaxShots = d.MaxShots
	}
	return p
}

// Report summarizes a run.
type Report struct {
	Attempted int // frame requests issued
	Captured  int // frames appended to the session
	Dropped   int // failed frame requests
}

// Sequencer runs capture sequences against one frame source. Exactly one
// run is active at a time.
type Sequencer struct {
	source camera.FrameSource
	flash  flash.Flash
	clock  Clock
	params Params

	mu        sync.Mutex
	running   bool
	state     State
	countdown int
	subs      []func(Event)
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock (tests use a fake one).
func WithClock(c Clock) Option {
	return func(s *Sequencer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFlash pulses a flash lamp at every capture.
func WithFlash(f flash.Flash) Option {
	return func(s *Sequencer) {
		if f != nil {
			s.flash = f
		}
	}
}

// WithParams overrides the run timing.
func WithParams(p Params) Option {
	return func(s *Sequencer) {
		s.params = p.withDefaults()
	}
}

// NewSequencer creates an idle sequencer pulling frames from src.
func NewSequencer(src camera.FrameSource, opts ...Option) *Sequencer {
	s := &Sequencer{
		source: src,
		flash:  flash.Nop{},
		clock:  RealClock{},
		params: DefaultParams(),
		state:  Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the run timing in use.
func (s *Sequencer) Params() Params {
	return s.params
}

// Subscribe registers fn for every event of every run. fn is called
// synchronously from the run goroutine and must not block.
func (s *Sequencer) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Countdown returns the visible countdown value; ok is false outside
// CountingDown.
func (s *Sequencer) Countdown() (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != CountingDown {
		return 0, false
	}
	return s.countdown, true
}

// Running reports whether a run is active.
func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ready reports whether the frame source can deliver frames.
func (s *Sequencer) Ready() bool {
	return s.source != nil && s.source.Ready()
}

// Start runs shotCount capture cycles into sess and blocks until the run
// ends. The captured set is cleared first. A source that is not ready
// makes Start a no-op. Cancelling ctx stops the run at the next tick,
// pause or frame request; frames captured so far are kept.
func (s *Sequencer) Start(ctx context.Context, sess *session.Session, shotCount int) (Report, error) {
	ok, err := s.claim(sess, shotCount)
	if err != nil || !ok {
		return Report{}, err
	}
	return s.run(ctx, sess, shotCount)
}

// Go is Start without blocking: checks and session reset happen before it
// returns, then the run continues in its own goroutine and done (if not
// nil) receives the outcome. started is false when the source was not
// ready and nothing was launched.
func (s *Sequencer) Go(ctx context.Context, sess *session.Session, shotCount int, done func(Report, error)) (started bool, err error) {
	ok, err := s.claim(sess, shotCount)
	if err != nil || !ok {
		return false, err
	}
	go func() {
		rep, err := s.run(ctx, sess, shotCount)
		if done != nil {
			done(rep, err)
		}
	}()
	return true, nil
}

// claim validates a request and marks the sequencer busy.
func (s *Sequencer) claim(sess *session.Session, shotCount int) (bool, error) {
	if shotCount < 0 || shotCount > s.params.MaxShots {
		return false, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidShotCount, shotCount, s.params.MaxShots)
	}
	if sess == nil {
		return false, errors.New("capture: nil session")
	}
	if !s.Ready() {
		debug.Info("Camera not ready, capture request ignored")
		return false, nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false, ErrBusy
	}
	s.running = true
	s.mu.Unlock()

	sess.Reset(shotCount)
	return true, nil
}

func (s *Sequencer) run(ctx context.Context, sess *session.Session, total int) (rep Report, err error) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.setState(Idle, 0)
		debug.Summary("Capture run")
		debug.Value("attempted", rep.Attempted)
		debug.Value("captured", rep.Captured)
		debug.Value("dropped", rep.Dropped)
	}()

	debug.Section("Capture run")
	debug.Info("Starting capture run: %d shot(s)", total)

	for slot := 1; slot <= total; slot++ {
		for n := CountdownFrom; n >= 1; n-- {
			s.setState(CountingDown, n)
			s.emit(Event{Type: EventCountdown, Slot: slot, Total: total, Count: n})
			debug.Countdown(slot, total, n)
			if err := s.clock.Sleep(ctx, s.params.Tick); err != nil {
				return rep, abort(err)
			}
		}

		s.setState(Capturing, 0)
		if err := ctx.Err(); err != nil {
			return rep, abort(err)
		}
		s.flash.Fire()
		s.emit(Event{Type: EventFlash, Slot: slot, Total: total})

		rep.Attempted++
		f, err := s.source.StillFrame(ctx)
		if err != nil && ctx.Err() != nil {
			return rep, abort(ctx.Err())
		}
		if err == nil && f == nil {
			err = camera.ErrNoFrame
		}
		if err == nil {
			err = sess.Append(frame.Mirror(f))
		}
		if err != nil {
			rep.Dropped++
			debug.Dropped(slot, total, err)
			s.emit(Event{Type: EventDropped, Slot: slot, Total: total, Err: err})
		} else {
			rep.Captured++
			debug.Shot(slot, total, f.Width(), f.Height())
			s.emit(Event{Type: EventCaptured, Slot: slot, Total: total, Count: sess.Len()})
		}

		s.setState(InterShotPause, 0)
		if err := s.clock.Sleep(ctx, s.params.Pause); err != nil {
			return rep, abort(err)
		}
	}
	return rep, nil
}

func abort(err error) error {
	debug.Info("Capture run cancelled: %v", err)
	return fmt.Errorf("capture: run aborted: %w", err)
}

func (s *Sequencer) setState(st State, countdown int) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.countdown = countdown
	s.mu.Unlock()
	if changed {
		debug.Trace("Sequencer: state %s", st)
		s.emit(Event{Type: EventState, State: st})
	}
}

func (s *Sequencer) emit(ev Event) {
	s.mu.Lock()
	if ev.Type != EventState {
		ev.State = s.state
	}
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
