// Package cvcapture implements camera backends on top of OpenCV
// VideoCapture: plain V4L2 devices and GStreamer pipelines, including the
// libcamera source used by Raspberry Pi camera modules.
package cvcapture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/teslashibe/go-teachable/pkg/camera"
	"gocv.io/x/gocv"
)

const (
	// retryDelay separates open attempts with different capture APIs.
	retryDelay = 50 * time.Millisecond
	// readBackoff is the pause after a failed frame read.
	readBackoff = 10 * time.Millisecond
)

// Open creates the camera selected by cfg.Backend.
func Open(cfg camera.Config, logger *slog.Logger) (camera.Camera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case camera.BackendMock:
		return camera.NewMockCamera(cfg, logger), nil
	case camera.BackendOpenCV:
		return NewOpenCV(cfg, logger)
	case camera.BackendLibcamera:
		return NewLibcamera(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", camera.ErrUnknownBackend, cfg.Backend)
	}
}

type attempt struct {
	source any
	api    gocv.VideoCaptureAPI
}

// Capture reads frames from an OpenCV VideoCapture on a goroutine.
type Capture struct {
	cfg      camera.Config
	device   camera.Device
	backend  camera.Backend
	logger   *slog.Logger
	attempts []attempt

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	box    *camera.Mailbox
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOpenCV creates a capture for a V4L2 index, a /dev/videoN path or a
// GStreamer pipeline.
func NewOpenCV(cfg camera.Config, logger *slog.Logger) (*Capture, error) {
	dev, err := camera.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	var attempts []attempt
	switch dev.Kind() {
	case camera.KindPipeline:
		attempts = []attempt{{dev.Pipeline, gocv.VideoCaptureGstreamer}}
	case camera.KindPath:
		attempts = []attempt{{dev.Path, gocv.VideoCaptureV4L2}, {dev.Path, gocv.VideoCaptureAny}}
	default:
		attempts = []attempt{{dev.Index, gocv.VideoCaptureV4L2}, {dev.Index, gocv.VideoCaptureAny}}
	}

	return newCapture(cfg, dev, camera.BackendOpenCV, attempts, logger), nil
}

// NewLibcamera creates a capture reading libcamerasrc through GStreamer.
func NewLibcamera(cfg camera.Config, logger *slog.Logger) *Capture {
	dev := camera.Device{Pipeline: LibcameraPipeline(cfg.Width, cfg.Height, cfg.Framerate)}
	attempts := []attempt{{dev.Pipeline, gocv.VideoCaptureGstreamer}}
	return newCapture(cfg, dev, camera.BackendLibcamera, attempts, logger)
}

// LibcameraPipeline builds the GStreamer pipeline for the Pi camera stack.
func LibcameraPipeline(width, height, fps int) string {
	return fmt.Sprintf("libcamerasrc ! video/x-raw,width=%d,height=%d,framerate=%d/1 ! "+
		"videoconvert ! video/x-raw,format=BGR ! appsink drop=true max-buffers=1",
		width, height, fps)
}

func newCapture(cfg camera.Config, dev camera.Device, backend camera.Backend, attempts []attempt, logger *slog.Logger) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		cfg:      cfg,
		device:   dev,
		backend:  backend,
		logger:   logger.With("component", "camera", "backend", backend, "device", dev.String()),
		attempts: attempts,
		box:      camera.NewMailbox(),
	}
}

func (c *Capture) Name() string { return string(c.backend) }

func (c *Capture) Frames() <-chan image.Image { return c.box.Frames() }

// Start opens the device, trying each capture API in turn, and starts the
// reader goroutine.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device.Kind() == camera.KindPath {
		if _, err := os.Stat(c.device.Path); err != nil {
			return &camera.OpenError{Device: c.device.String(), Hints: camera.OpenHints(c.device), Err: err}
		}
	}

	var lastErr error
	for i, a := range c.attempts {
		if i > 0 {
			time.Sleep(retryDelay)
		}
		vc, err := gocv.OpenVideoCaptureWithAPI(a.source, a.api)
		if err == nil && vc.IsOpened() {
			c.vc = vc
			break
		}
		if vc != nil {
			vc.Close()
		}
		lastErr = err
		c.logger.Debug("open attempt failed", "api", int(a.api), "error", err)
	}
	if c.vc == nil {
		return &camera.OpenError{Device: c.device.String(), Hints: camera.OpenHints(c.device), Err: lastErr}
	}

	if c.device.Kind() != camera.KindPipeline {
		c.vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		c.vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.readLoop(ctx, c.vc)

	c.logger.Info("camera started",
		"width", int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(c.vc.Get(gocv.VideoCaptureFrameHeight)))
	return nil
}

// readLoop skips frames that fail to read or convert.
func (c *Capture) readLoop(ctx context.Context, vc *gocv.VideoCapture) {
	defer c.wg.Done()
	defer c.box.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	var failures int
	for ctx.Err() == nil {
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures%100 == 1 {
				c.logger.Warn("frame read failed", "failures", failures)
			}
			time.Sleep(readBackoff)
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			c.logger.Debug("frame conversion failed", "error", err)
			continue
		}
		c.box.Offer(img)
	}
}

// Stop ends capture and releases the device.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
		c.cancel = nil
	}
	c.box.Close()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	c.logger.Info("camera stopped", "frames", c.box.Offers(), "dropped", c.box.Drops())
	return err
}

var _ camera.Camera = (*Capture)(nil)
