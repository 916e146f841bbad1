package web

import (
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-teachable/internal/log"
	"github.com/teslashibe/go-teachable/pkg/labels"
	"github.com/teslashibe/go-teachable/pkg/teachable"
)

func newTestServer() *Server {
	cfg := DefaultConfig()
	cfg.Port = "0"
	return NewServer(cfg, log.Discard())
}

func getJSON(t *testing.T, s *Server, path string, v any) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServer_StatusReflectsPublish(t *testing.T) {
	s := newTestServer()
	s.Publish(teachable.Status{
		Session:   "abc",
		Method:    "knn",
		Frame:     12,
		FPS:       29.5,
		Examples:  3,
		Class:     labels.Class(2),
		ClassName: "Two",
	})

	var got map[string]any
	code := getJSON(t, s, "/api/status", &got)
	assert.Equal(t, 200, code)
	assert.Equal(t, "abc", got["session"])
	assert.Equal(t, "knn", got["method"])
	assert.Equal(t, "Two", got["class_name"])
	assert.EqualValues(t, 3, got["examples"])
	assert.Contains(t, got, "system")
}

func TestServer_Health(t *testing.T) {
	s := newTestServer()

	var got map[string]any
	code := getJSON(t, s, "/api/health", &got)
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", got["status"])
	assert.EqualValues(t, 0, got["clients"])
}

func TestServer_LogHandlerFeedsLogs(t *testing.T) {
	s := newTestServer()
	logger := slog.New(s.LogHandler(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("hidden")
	logger.With("component", "loop").Info("loop started", "method", "knn")
	logger.Warn("training failed")

	var got []LogEntry
	getJSON(t, s, "/api/logs", &got)
	require.Len(t, got, 2)
	assert.Equal(t, "info", got[0].Level)
	assert.Equal(t, "loop started component=loop method=knn", got[0].Message)
	assert.Equal(t, "warn", got[1].Level)
}

func TestServer_LogsAreCapped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLogs = 3
	s := NewServer(cfg, nil)

	for _, m := range []string{"a", "b", "c", "d", "e"} {
		s.AddLog("info", m)
	}

	var got []LogEntry
	getJSON(t, s, "/api/logs", &got)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Message)
	assert.Equal(t, "e", got[2].Message)
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s := newTestServer()
	for _, path := range []string{"/ws/status", "/ws/logs", "/ws/camera"} {
		resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, 426, resp.StatusCode, path)
	}
}

func TestServer_PublishFrameWithoutClients(t *testing.T) {
	s := newTestServer()
	assert.NotPanics(t, func() {
		s.PublishFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)))
		s.PublishFrame(nil)
	})
}

func TestNewServer_FillsDefaults(t *testing.T) {
	s := NewServer(Config{Port: "9000", JPEGQuality: 500}, nil)
	def := DefaultConfig()
	assert.Equal(t, def.JPEGQuality, s.cfg.JPEGQuality)
	assert.Equal(t, def.StatusRate, s.cfg.StatusRate)
	assert.Equal(t, def.MaxLogs, s.cfg.MaxLogs)
	assert.Equal(t, "9000", s.cfg.Port)
}
