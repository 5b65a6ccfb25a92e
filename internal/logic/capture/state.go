package capture

import (
	"context"
	"time"
)

// State is a step of the capture state machine:
// Idle -> CountingDown -> Capturing -> InterShotPause -> (loop) -> Idle.
type State int

const (
	Idle State = iota
	CountingDown
	Capturing
	InterShotPause
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountingDown:
		return "counting_down"
	case Capturing:
		return "capturing"
	case InterShotPause:
		return "pause"
	default:
		return "unknown"
	}
}

// EventType names what happened during a run.
type EventType string

const (
	EventState     EventType = "state"     // state changed
	EventCountdown EventType = "countdown" // countdown value shown
	EventFlash     EventType = "flash"     // flash fired, frame about to be grabbed
	EventCaptured  EventType = "captured"  // frame appended
	EventDropped   EventType = "dropped"   // frame request failed, slot skipped
)

// Event is delivered to subscribers.
type Event struct {
	Type  EventType
	State State
	Slot  int   // 1-based shot slot, 0 for state events
	Total int   // shots requested
	Count int   // countdown value, or photo count after a capture
	Err   error // dropped only
}

// Clock suspends a run. Sleep returns ctx.Err() when ctx ends first.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a wall-clock timer.
type RealClock struct{}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
