package input

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ctrlC is what the terminal delivers for Ctrl-C when signals are not
// generated by the line discipline.
const ctrlC = 0x03

// Keyboard maps key presses to controls. A goroutine reads the terminal and
// records which keys were seen; Buttons consumes them on each poll.
type Keyboard struct {
	keys      string
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[byte]bool
	restore func() error
	closed  bool
}

// NewKeyboard reads key presses from r. It does not touch terminal modes.
func NewKeyboard(r io.Reader, cfg Config, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	k := &Keyboard{
		keys:      cfg.Keys,
		debouncer: NewDebouncer(len(cfg.Keys), cfg.Debounce),
		logger:    logger.With("component", "keyboard"),
		pending:   make(map[byte]bool),
	}
	go k.read(r)
	return k
}

// OpenKeyboard reads from stdin, switching the terminal to cbreak mode
// (unbuffered, no echo) until Close.
func OpenKeyboard(cfg Config, logger *slog.Logger) (*Keyboard, error) {
	fd := int(os.Stdin.Fd())
	var restore func() error

	if term.IsTerminal(fd) {
		state, err := term.GetState(fd)
		if err != nil {
			return nil, fmt.Errorf("read terminal state: %w", err)
		}
		if err := setCbreak(fd); err != nil {
			return nil, fmt.Errorf("set cbreak mode: %w", err)
		}
		restore = func() error { return term.Restore(fd, state) }
	}

	k := NewKeyboard(os.Stdin, cfg, logger)
	k.restore = restore
	k.logger.Info("keyboard input ready", "keys", strings.Split(cfg.Keys, ""))
	return k, nil
}

func (k *Keyboard) read(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == ctrlC {
				interrupt()
				continue
			}
			k.mu.Lock()
			k.pending[buf[0]] = true
			k.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				k.logger.Debug("keyboard read stopped", "error", err)
			}
			return
		}
	}
}

// interrupt re-delivers Ctrl-C as SIGINT when raw mode swallowed it.
func interrupt() {
	if p, err := os.FindProcess(os.Getpid()); err == nil {
		_ = p.Signal(os.Interrupt)
	}
}

func (k *Keyboard) Name() string { return string(BackendKeyboard) }

// Buttons reports the keys typed since the previous poll.
func (k *Keyboard) Buttons() []bool {
	k.mu.Lock()
	raw := make([]bool, len(k.keys))
	for i := 0; i < len(k.keys); i++ {
		raw[i] = k.pending[k.keys[i]]
	}
	k.pending = make(map[byte]bool)
	k.mu.Unlock()

	return k.debouncer.Filter(raw)
}

func (k *Keyboard) pendingKeys() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pending)
}

// SetOnlyLED is a no-op: the terminal has no indicators.
func (k *Keyboard) SetOnlyLED(int) {}

// WiggleLEDs is a no-op.
func (k *Keyboard) WiggleLEDs(int) {}

// Close restores the terminal mode. The reader goroutine ends with stdin.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	if k.restore != nil {
		return k.restore()
	}
	return nil
}

var _ Device = (*Keyboard)(nil)
