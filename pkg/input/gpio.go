package input

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// wiggleStep is how long each LED stays lit while wiggling.
const wiggleStep = 50 * time.Millisecond

// GPIO reads pull-down buttons and drives LEDs on the GPIO header.
type GPIO struct {
	buttons   []gpio.PinIO
	leds      []gpio.PinIO
	activeLow bool
	debouncer *Debouncer
	logger    *slog.Logger

	mu sync.Mutex // Serializes LED writes
}

// NewGPIO claims the configured pins. Any failure is reported as
// ErrGPIOUnavailable so callers can fall back to another device.
func NewGPIO(cfg Config, logger *slog.Logger) (*GPIO, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGPIOUnavailable, err)
	}

	return claim(cfg, logger, pin)
}

// claim configures every pin through lookup. Pins already configured are
// released again when a later one fails.
func claim(cfg Config, logger *slog.Logger, lookup func(int) (gpio.PinIO, error)) (*GPIO, error) {
	g := &GPIO{
		activeLow: cfg.LEDActiveLow,
		debouncer: NewDebouncer(len(cfg.Buttons), cfg.Debounce),
		logger:    logger.With("component", "gpio"),
	}

	for _, n := range cfg.Buttons {
		p, err := lookup(n)
		if err != nil {
			g.release()
			return nil, err
		}
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			g.release()
			return nil, fmt.Errorf("%w: button GPIO%d: %v", ErrGPIOUnavailable, n, err)
		}
		g.buttons = append(g.buttons, p)
	}

	for _, n := range cfg.LEDs {
		p, err := lookup(n)
		if err != nil {
			g.release()
			return nil, err
		}
		if err := p.Out(g.level(false)); err != nil {
			g.release()
			return nil, fmt.Errorf("%w: LED GPIO%d: %v", ErrGPIOUnavailable, n, err)
		}
		g.leds = append(g.leds, p)
	}

	g.logger.Info("GPIO ready", "buttons", cfg.Buttons, "leds", cfg.LEDs, "active_low", cfg.LEDActiveLow)
	return g, nil
}

func pin(bcm int) (gpio.PinIO, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcm))
	if p == nil {
		return nil, fmt.Errorf("%w: pin GPIO%d not found", ErrGPIOUnavailable, bcm)
	}
	return p, nil
}

func (g *GPIO) level(on bool) gpio.Level {
	return gpio.Level(on != g.activeLow)
}

func (g *GPIO) Name() string { return string(BackendGPIO) }

// Buttons reads every button; a high level means pressed.
func (g *GPIO) Buttons() []bool {
	raw := make([]bool, len(g.buttons))
	for i, p := range g.buttons {
		raw[i] = p.Read() == gpio.High
	}
	return g.debouncer.Filter(raw)
}

func (g *GPIO) set(i int, on bool) {
	if err := g.leds[i].Out(g.level(on)); err != nil {
		g.logger.Debug("LED write failed", "led", i, "error", err)
	}
}

func (g *GPIO) SetOnlyLED(idx int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.leds {
		g.set(i, i == idx)
	}
}

func (g *GPIO) WiggleLEDs(reps int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for r := 0; r < reps; r++ {
		for i := range g.leds {
			g.set(i, true)
			time.Sleep(wiggleStep)
			g.set(i, false)
		}
	}
}

// Close turns every LED off and releases the pins.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
	return nil
}

// release turns the claimed LEDs off and halts every claimed pin.
func (g *GPIO) release() {
	for i := range g.leds {
		g.set(i, false)
	}
	pins := append(append([]gpio.PinIO{}, g.buttons...), g.leds...)
	for _, p := range pins {
		if err := p.Halt(); err != nil {
			g.logger.Debug("pin halt failed", "pin", p.Name(), "error", err)
		}
	}
	g.buttons, g.leds = nil, nil
}

var _ Device = (*GPIO)(nil)
