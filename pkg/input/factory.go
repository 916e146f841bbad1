package input

import (
	"errors"
	"fmt"
	"log/slog"
)

// GPIOHint is shown when the GPIO header cannot be used.
const GPIOHint = "run on a Raspberry Pi and add your user to the 'gpio' group (usermod -aG gpio $USER)"

// Open creates the configured device. With BackendAuto it probes GPIO first
// and falls back to the keyboard, logging a warning.
func Open(cfg Config, logger *slog.Logger) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMock:
		return NewMockDevice(len(cfg.Buttons)), nil
	case BackendKeyboard:
		return OpenKeyboard(cfg, logger)
	case BackendGPIO:
		return NewGPIO(cfg, logger)
	}

	dev, err := NewGPIO(cfg, logger)
	if err == nil {
		return dev, nil
	}
	if !errors.Is(err, ErrGPIOUnavailable) {
		return nil, err
	}

	logger.Warn("GPIO unavailable, falling back to keyboard", "error", err, "hint", GPIOHint)
	return OpenKeyboard(cfg, logger)
}
