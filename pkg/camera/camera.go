// Package camera defines frame capture for the classifier.
//
// A Camera produces an unbounded stream of fixed-size color frames. Capture
// runs on its own goroutine and hands frames over through a Mailbox, so a
// slow consumer always sees the newest frame and never builds a backlog.
//
// Backends:
//   - opencv: V4L2 index, /dev/videoN or GStreamer pipeline (cvcapture)
//   - libcamera: Raspberry Pi camera stack through GStreamer (cvcapture)
//   - mock: synthetic frames for tests and camera-less demos
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendOpenCV captures through OpenCV VideoCapture.
	BackendOpenCV Backend = "opencv"
	// BackendLibcamera captures from libcamerasrc via GStreamer.
	BackendLibcamera Backend = "libcamera"
	// BackendMock generates synthetic frames.
	BackendMock Backend = "mock"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("camera: unknown backend")

// Camera is a started/stopped frame source.
type Camera interface {
	// Start opens the device and begins capture. Failing to open is fatal.
	Start(ctx context.Context) error

	// Stop ends capture and releases the device. Frames is closed afterwards.
	Stop() error

	// Frames returns the frame stream. It is not restartable.
	Frames() <-chan image.Image

	// Name returns the backend name.
	Name() string
}

// Config holds camera configuration.
type Config struct {
	Backend   Backend `json:"backend"`
	Width     int     `json:"width"`     // Frame width in pixels
	Height    int     `json:"height"`    // Frame height in pixels
	Framerate int     `json:"framerate"` // Target FPS (mock and libcamera)

	// Device selects the source: "0", "/dev/video0" or a GStreamer
	// pipeline ending in appsink.
	Device string `json:"device"`
}

// DefaultConfig returns the VGA configuration.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendOpenCV,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Device:    "0",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendOpenCV, BackendLibcamera, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend))
	}
	if c.Width < 16 || c.Width > 4608 {
		errs = append(errs, fmt.Errorf("width must be between 16 and 4608, got %d", c.Width))
	}
	if c.Height < 16 || c.Height > 2592 {
		errs = append(errs, fmt.Errorf("height must be between 16 and 2592, got %d", c.Height))
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, fmt.Errorf("framerate must be between 1 and 120, got %d", c.Framerate))
	}
	if c.Backend == BackendOpenCV {
		if _, err := ParseDevice(c.Device); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
