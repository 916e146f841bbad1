package teachable

import (
	"context"
	"fmt"
	"io"
	"time"
)

// DefaultTestUIInterval is the button poll period in test-UI mode.
const DefaultTestUIInterval = 20 * time.Millisecond

// Indicators is a control set whose LEDs can be flashed.
type Indicators interface {
	Controls
	WiggleLEDs(reps int)
}

// TestUI exercises button and LED wiring without a camera: it flashes the
// LEDs, then lights the LED of every pressed button and reports it on out
// until ctx is cancelled.
func TestUI(ctx context.Context, dev Indicators, out io.Writer, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTestUIInterval
	}

	dev.WiggleLEDs(2)
	fmt.Fprintln(out, "Testing UI: press the buttons (Ctrl-C to exit).")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for i, pressed := range dev.Buttons() {
				if pressed {
					dev.SetOnlyLED(i)
					fmt.Fprintf(out, "button %d OK\n", i)
				}
			}
		}
	}
}
