package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-teachable/pkg/hub"
)

// handleStatus returns the latest status snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.view())
}

// handleHealth reports liveness and connected clients
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.statusHub.ClientCount() + s.logHub.ClientCount() + s.cameraHub.ClientCount(),
	})
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleStatusWS sends the current status, then streams updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	c.WriteJSON(s.view())
	client.Run()
}

// handleLogsWS sends the recent log lines, then streams new ones
func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := hub.NewClient(s.logHub, c)
	if client == nil {
		return
	}
	s.logsMu.RLock()
	for _, entry := range s.logs {
		c.WriteJSON(entry)
	}
	s.logsMu.RUnlock()
	client.Run()
}

// handleCameraWS streams JPEG previews
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	if client == nil {
		return
	}
	client.Run()
}
