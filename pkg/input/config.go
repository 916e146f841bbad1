// Package input provides the operator controls: debounced buttons and one
// indicator LED per button.
//
// Backends:
//   - GPIO (Raspberry Pi header via periph.io) - the demo board
//   - Keyboard - keys q,1,2,3,4 on the controlling terminal
//   - Mock - tests and headless runs
//
// Control 0 is "clear", controls 1..4 add examples for classes One..Four.
package input

import (
	"errors"
	"fmt"
	"time"
)

// Backend represents the input backend type.
type Backend string

const (
	// BackendAuto probes GPIO and falls back to the keyboard.
	BackendAuto Backend = "auto"
	// BackendGPIO uses buttons and LEDs wired to the GPIO header.
	BackendGPIO Backend = "gpio"
	// BackendKeyboard reads key presses from the terminal.
	BackendKeyboard Backend = "keyboard"
	// BackendMock uses a scripted device.
	BackendMock Backend = "mock"
)

// DefaultDebounce is the minimum interval between two accepted presses of
// the same control.
const DefaultDebounce = 100 * time.Millisecond

// ErrGPIOUnavailable is returned when the GPIO header cannot be used.
var ErrGPIOUnavailable = errors.New("input: GPIO unavailable")

// Config holds input configuration.
type Config struct {
	Backend Backend

	// Buttons and LEDs are BCM pin numbers, clear first.
	Buttons []int
	LEDs    []int

	// LEDActiveLow inverts the LED output level.
	LEDActiveLow bool

	// Keys are the keyboard keys for each control, clear first.
	Keys string

	Debounce time.Duration
}

// DefaultConfig returns the demo board wiring.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendAuto,
		Buttons:  []int{16, 6, 5, 24, 27},
		LEDs:     []int{20, 13, 12, 25, 22},
		Keys:     "q1234",
		Debounce: DefaultDebounce,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendGPIO, BackendKeyboard, BackendMock:
	default:
		return fmt.Errorf("unsupported input backend: %q", c.Backend)
	}
	if len(c.Buttons) < 2 {
		return fmt.Errorf("need a clear button and at least one class button, got %d", len(c.Buttons))
	}
	if len(c.LEDs) != len(c.Buttons) {
		return fmt.Errorf("got %d LEDs for %d buttons", len(c.LEDs), len(c.Buttons))
	}
	if len(c.Keys) != len(c.Buttons) {
		return fmt.Errorf("got %d keys for %d buttons", len(c.Keys), len(c.Buttons))
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %v", c.Debounce)
	}
	return nil
}

// Device is a set of debounced controls with one indicator per control.
type Device interface {
	// Name returns the backend name.
	Name() string

	// Buttons returns one debounced state per control, clear first.
	Buttons() []bool

	// SetOnlyLED lights indicator idx and turns the others off.
	// A negative idx turns every indicator off.
	SetOnlyLED(idx int)

	// WiggleLEDs flashes every indicator in turn, reps times.
	WiggleLEDs(reps int)

	// Close turns the indicators off and releases the device.
	Close() error
}
