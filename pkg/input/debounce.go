package input

import (
	"sync"
	"time"
)

// Debouncer accepts a press of a control only if the previous accepted press
// is at least interval old.
type Debouncer struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last []time.Time
}

// NewDebouncer tracks n controls.
func NewDebouncer(n int, interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		now:      time.Now,
		last:     make([]time.Time, n),
	}
}

// Filter turns raw active states into debounced presses.
func (d *Debouncer) Filter(active []bool) []bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	out := make([]bool, len(d.last))
	for i := range d.last {
		if i >= len(active) || !active[i] {
			continue
		}
		if d.last[i].IsZero() || now.Sub(d.last[i]) >= d.interval {
			out[i] = true
			d.last[i] = now
		}
	}
	return out
}
