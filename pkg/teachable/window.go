package teachable

import (
	"time"

	"github.com/teslashibe/go-teachable/pkg/labels"
)

// DefaultWindowSize is the number of raw classifications smoothed over.
const DefaultWindowSize = 4

// Window is a ring buffer of the most recent raw classifications.
type Window struct {
	buf  []labels.Class
	next int
	full bool
}

// NewWindow creates a window holding size entries (DefaultWindowSize if < 1).
func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]labels.Class, size)}
}

// Push records a raw classification, evicting the oldest when full.
func (w *Window) Push(c labels.Class) {
	w.buf[w.next] = c
	w.next = (w.next + 1) % len(w.buf)
	if w.next == 0 {
		w.full = true
	}
}

// Len returns the number of recorded entries.
func (w *Window) Len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// entries returns the contents oldest first.
func (w *Window) entries() []labels.Class {
	if !w.full {
		return w.buf[:w.next]
	}
	out := make([]labels.Class, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	return append(out, w.buf[:w.next]...)
}

// Majority returns the most frequent entry. Among tied entries the one that
// appears first (oldest) wins. An empty window yields labels.None.
func (w *Window) Majority() labels.Class {
	counts := make(map[labels.Class]int, len(w.buf))
	var order []labels.Class
	for _, c := range w.entries() {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best, bestCount := labels.None, 0
	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// Reset empties the window.
func (w *Window) Reset() {
	w.next = 0
	w.full = false
}

// DefaultFPSSamples is the number of frame timestamps the FPS meter keeps.
const DefaultFPSSamples = 40

// FPSMeter smooths the frame rate over the last N frame timestamps.
type FPSMeter struct {
	times []time.Time
	size  int
}

// NewFPSMeter keeps size timestamps (DefaultFPSSamples if < 2).
func NewFPSMeter(size int) *FPSMeter {
	if size < 2 {
		size = DefaultFPSSamples
	}
	return &FPSMeter{size: size}
}

// Tick records a frame at t and returns the smoothed rate. The span is
// floored at 1ms so a single frame reports 1000 fps rather than +Inf.
func (m *FPSMeter) Tick(t time.Time) float64 {
	m.times = append(m.times, t)
	if len(m.times) > m.size {
		m.times = m.times[len(m.times)-m.size:]
	}

	span := m.times[len(m.times)-1].Sub(m.times[0]).Seconds()
	if span < 0.001 {
		span = 0.001
	}
	return float64(len(m.times)) / span
}
