// Package web provides a real-time dashboard for the classifier: the latest
// status line, host load, recent log lines and a low-rate JPEG preview of
// the camera, over JSON endpoints and websockets.
package web

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-teachable/pkg/hub"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds dashboard configuration.
type Config struct {
	Port string // Listen port; empty disables the dashboard

	StatusRate  float64 // Status broadcasts per second
	FrameRate   float64 // Preview frames per second
	JPEGQuality int
	StaticDir   string // Optional directory served at /

	SampleInterval time.Duration // Host stats refresh period
	MaxLogs        int
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Port:           "8080",
		StatusRate:     10,
		FrameRate:      5,
		JPEGQuality:    70,
		SampleInterval: 2 * time.Second,
		MaxLogs:        200,
	}
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// StatusView is what /api/status and /ws/status deliver.
type StatusView struct {
	teachable.Status
	System SystemStats `json:"system"`
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	cfg     Config
	logger  *slog.Logger
	started time.Time

	status   teachable.Status
	statusMu sync.RWMutex

	sys   SystemStats
	sysMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub

	statusLimiter *rate.Limiter
	frameLimiter  *rate.Limiter
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config, logger *slog.Logger) *Server {
	def := DefaultConfig()
	if cfg.StatusRate <= 0 {
		cfg.StatusRate = def.StatusRate
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.MaxLogs <= 0 {
		cfg.MaxLogs = def.MaxLogs
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		started:       time.Now(),
		logs:          make([]LogEntry, 0, cfg.MaxLogs),
		statusHub:     hub.New("status", logger),
		logHub:        hub.New("logs", logger),
		cameraHub:     hub.New("camera", logger),
		statusLimiter: rate.NewLimiter(rate.Limit(cfg.StatusRate), 1),
		frameLimiter:  rate.NewLimiter(rate.Limit(cfg.FrameRate), 1),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Teachable Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/health", s.handleHealth)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Run serves the dashboard until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, h := range []*hub.Hub{s.statusHub, s.logHub, s.cameraHub} {
		h := h
		g.Go(func() error {
			h.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		s.sampleSystem(ctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info("web dashboard listening", "url", "http://localhost:"+s.cfg.Port)
		if err := s.app.Listen(":" + s.cfg.Port); err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.app.ShutdownWithTimeout(5 * time.Second)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Publish records a status snapshot and broadcasts it, rate limited.
func (s *Server) Publish(st teachable.Status) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()

	if s.statusHub.ClientCount() == 0 || !s.statusLimiter.Allow() {
		return
	}
	if err := s.statusHub.BroadcastJSON(s.view()); err != nil {
		s.logger.Debug("status broadcast failed", "error", err)
	}
}

// PublishFrame sends a JPEG preview to camera clients, rate limited.
func (s *Server) PublishFrame(img image.Image) {
	if img == nil || s.cameraHub.ClientCount() == 0 || !s.frameLimiter.Allow() {
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
		s.logger.Debug("frame encode failed", "error", err)
		return
	}
	s.cameraHub.BroadcastBinary(buf.Bytes())
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.cfg.MaxLogs {
		s.logs = s.logs[len(s.logs)-s.cfg.MaxLogs:]
	}
	s.logsMu.Unlock()

	if s.logHub.ClientCount() > 0 {
		_ = s.logHub.BroadcastJSON(entry)
	}
}

func (s *Server) view() StatusView {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	s.sysMu.RLock()
	defer s.sysMu.RUnlock()
	return StatusView{Status: st, System: s.sys}
}

var (
	_ teachable.StatusSink = (*Server)(nil)
	_ teachable.FrameSink  = (*Server)(nil)
)
