// Package trigger watches a physical push button wired on a GPIO input.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// DefaultPoll is the sampling period used when none is given.
const DefaultPoll = 20 * time.Millisecond

// Button reports presses of a push button by polling its pin. A press is
// a released-to-pressed transition; holding the button fires once.
type Button struct {
	gpio      gpio.Driver
	pin       int
	activeLow bool
	poll      time.Duration
}

// NewButton configures pin as an input. With activeLow the internal
// pull-up is enabled and a Low level means pressed.
func NewButton(g gpio.Driver, pin int, activeLow bool, poll time.Duration) (*Button, error) {
	if poll <= 0 {
		poll = DefaultPoll
	}
	mode := gpio.Input
	if activeLow {
		mode = gpio.InputPullUp
	}
	if err := g.SetupPin(pin, mode); err != nil {
		return nil, fmt.Errorf("trigger: setup pin %d: %w", pin, err)
	}
	return &Button{gpio: g, pin: pin, activeLow: activeLow, poll: poll}, nil
}

func (b *Button) pressed() (bool, error) {
	lvl, err := b.gpio.ReadPin(b.pin)
	if err != nil {
		return false, err
	}
	return (lvl == gpio.High) != b.activeLow, nil
}

// Watch polls the button until ctx is done and calls onPress for every
// press. onPress runs on the polling goroutine.
func (b *Button) Watch(ctx context.Context, onPress func()) error {
	t := time.NewTicker(b.poll)
	defer t.Stop()

	// A button held down at startup must be released first.
	was, err := b.pressed()
	if err != nil {
		return fmt.Errorf("trigger: read pin %d: %w", b.pin, err)
	}
	debug.Verbose("Trigger: watching pin %d every %v", b.pin, b.poll)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		now, err := b.pressed()
		if err != nil {
			return fmt.Errorf("trigger: read pin %d: %w", b.pin, err)
		}
		if now && !was {
			debug.Live("Trigger: button pressed (pin %d)", b.pin)
			onPress()
		}
		was = now
	}
}
