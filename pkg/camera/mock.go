package camera

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"
)

// MockCamera produces solid frames at the configured rate, cycling through
// a palette every Period frames. It lets the whole pipeline run without
// hardware.
type MockCamera struct {
	cfg     Config
	logger  *slog.Logger
	palette []color.RGBA
	Period  int

	box    *Mailbox
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMockCamera creates a mock camera.
func NewMockCamera(cfg Config, logger *slog.Logger) *MockCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockCamera{
		cfg:    cfg,
		logger: logger.With("component", "camera", "backend", BackendMock),
		palette: []color.RGBA{
			{R: 200, G: 40, B: 40, A: 255},
			{R: 40, G: 200, B: 40, A: 255},
			{R: 40, G: 40, B: 200, A: 255},
		},
		Period: 90,
		box:    NewMailbox(),
	}
}

func (m *MockCamera) Name() string { return string(BackendMock) }

func (m *MockCamera) Frames() <-chan image.Image { return m.box.Frames() }

// Start begins generating frames until Stop or ctx is done.
func (m *MockCamera) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, m.cancel = context.WithCancel(ctx)

	fps := m.cfg.Framerate
	if fps < 1 {
		fps = 30
	}
	period := m.Period
	if period < 1 {
		period = 1
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.box.Close()

		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()

		for n := 0; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c := m.palette[(n/period)%len(m.palette)]
				m.box.Offer(solidFrame(m.cfg.Width, m.cfg.Height, c))
			}
		}
	}()

	m.logger.Info("camera started", "width", m.cfg.Width, "height", m.cfg.Height, "fps", fps)
	return nil
}

// Stop ends frame generation and closes Frames.
func (m *MockCamera) Stop() error {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.box.Close()
	m.logger.Info("camera stopped", "frames", m.box.Offers(), "dropped", m.box.Drops())
	return nil
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

var _ Camera = (*MockCamera)(nil)
