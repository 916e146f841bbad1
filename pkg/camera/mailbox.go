package camera

import (
	"image"
	"sync"
	"sync/atomic"
)

// Mailbox is a single-slot frame handoff between one producer and one
// consumer. Offer never blocks: an unconsumed frame is replaced by the newer
// one and counted as a drop.
type Mailbox struct {
	ch     chan image.Image
	mu     sync.Mutex
	closed bool
	drops  atomic.Uint64
	offers atomic.Uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan image.Image, 1)}
}

// Offer publishes img, replacing any frame not yet consumed. It is a no-op
// after Close.
func (m *Mailbox) Offer(img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.offers.Add(1)
	for {
		select {
		case m.ch <- img:
			return
		default:
		}
		select {
		case <-m.ch:
			m.drops.Add(1)
		default:
		}
	}
}

// Frames returns the consumer side.
func (m *Mailbox) Frames() <-chan image.Image { return m.ch }

// Close closes the consumer channel. Safe to call more than once.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}

// Drops returns the number of frames replaced before being consumed.
func (m *Mailbox) Drops() uint64 { return m.drops.Load() }

// Offers returns the number of frames published.
func (m *Mailbox) Offers() uint64 { return m.offers.Load() }
