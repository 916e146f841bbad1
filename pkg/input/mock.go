package input

import "sync"

// MockDevice is a scripted device for tests and headless runs.
type MockDevice struct {
	mu      sync.Mutex
	n       int
	polls   [][]bool
	led     int
	wiggles int
	closed  bool
}

// NewMockDevice creates a device with n controls and no LED lit.
func NewMockDevice(n int) *MockDevice {
	return &MockDevice{n: n, led: -1}
}

// Press queues one poll in which the given controls read pressed.
func (m *MockDevice) Press(idx ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll := make([]bool, m.n)
	for _, i := range idx {
		if i >= 0 && i < m.n {
			poll[i] = true
		}
	}
	m.polls = append(m.polls, poll)
}

func (m *MockDevice) Name() string { return string(BackendMock) }

// Buttons returns the next queued poll, or nothing pressed.
func (m *MockDevice) Buttons() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.polls) == 0 {
		return make([]bool, m.n)
	}
	poll := m.polls[0]
	m.polls = m.polls[1:]
	return poll
}

func (m *MockDevice) SetOnlyLED(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= m.n {
		idx = -1
	}
	m.led = idx
}

// LED returns the lit indicator, or -1.
func (m *MockDevice) LED() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.led
}

func (m *MockDevice) WiggleLEDs(reps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wiggles += reps
}

// Wiggles returns the total wiggle repetitions requested.
func (m *MockDevice) Wiggles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wiggles
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.led = -1
	return nil
}

// Closed reports whether Close was called.
func (m *MockDevice) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Device = (*MockDevice)(nil)
