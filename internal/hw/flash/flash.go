package flash

import (
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// DefaultDuration is how long the flash stays lit.
const DefaultDuration = 200 * time.Millisecond

// Flash is the visual cue fired at the moment of each capture. Fire must
// not block the capture: the light is turned off asynchronously.
type Flash interface {
	Fire()
}

// Nop is a Flash that does nothing (on-screen overlay only).
type Nop struct{}

func (Nop) Fire() {}

// GPIOFlash drives a flash relay or LED strip through a GPIO pin:
// - Fire sets the pin HIGH (light on)
// - after the configured duration the pin goes back LOW
//
// Firing again while lit restarts the timer.
type GPIOFlash struct {
	gpio     gpio.Driver
	pin      int
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
	fired int
}

// NewGPIOFlash configures pin as an output held LOW.
// A non-positive duration falls back to DefaultDuration.
func NewGPIOFlash(g gpio.Driver, pin int, duration time.Duration) *GPIOFlash {
	if duration <= 0 {
		duration = DefaultDuration
	}
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)

	return &GPIOFlash{
		gpio:     g,
		pin:      pin,
		duration: duration,
	}
}

// Fire lights the flash and schedules it off.
func (f *GPIOFlash) Fire() {
	f.mu.Lock()
	defer f.mu.Unlock()

	debug.Verbose("Flash: on (pin %d -> HIGH, %v)", f.pin, f.duration)
	if err := f.gpio.WritePin(f.pin, gpio.High); err != nil {
		debug.Error(err)
		return
	}
	f.fired++

	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.duration, f.off)
}

func (f *GPIOFlash) off() {
	f.mu.Lock()
	defer f.mu.Unlock()

	debug.Verbose("Flash: off (pin %d -> LOW)", f.pin)
	if err := f.gpio.WritePin(f.pin, gpio.Low); err != nil {
		debug.Error(err)
	}
}

// Fired returns how many times the flash was lit.
func (f *GPIOFlash) Fired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired
}

// Close stops a pending timer and forces the light off.
func (f *GPIOFlash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	return f.gpio.WritePin(f.pin, gpio.Low)
}
