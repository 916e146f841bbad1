package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-teachable/internal/log"
	"github.com/teslashibe/go-teachable/pkg/camera"
	"github.com/teslashibe/go-teachable/pkg/input"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"github.com/teslashibe/go-teachable/pkg/trainer"
)

func mockConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ModelPath = MockModel
	cfg.LogLevel = "error"
	cfg.OutputModel = filepath.Join(t.TempDir(), "model.json")
	cfg.Camera.Backend = camera.BackendMock
	cfg.Camera.Width, cfg.Camera.Height = 64, 48
	cfg.Camera.Framerate = 100
	cfg.Input.Backend = input.BackendMock
	cfg.Out = &bytes.Buffer{}
	cfg.Logger = log.Discard()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown method", func(c *Config) { c.Method = "svm" }, "Method"},
		{"zero k", func(c *Config) { c.K = 0 }, "K"},
		{"imprinting without output", func(c *Config) { c.Method = trainer.MethodImprinting; c.OutputModel = "" }, "OutputModel"},
		{"no model", func(c *Config) { c.ModelPath = "" }, "ModelPath"},
		{"bad input size", func(c *Config) { c.InputWidth = 0 }, "InputSize"},
		{"bad camera", func(c *Config) { c.Camera.Backend = "v4l" }, "Camera"},
		{"bad input", func(c *Config) { c.Input.Backend = "joystick" }, "Input"},
		{"testui ignores method", func(c *Config) { c.TestUI = true; c.Method = "svm" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("TEACHABLE_MODEL", "/opt/models/extractor.tflite")
	t.Setenv("TEACHABLE_CAMERA_DEVICE", "/dev/video2")
	t.Setenv("TEACHABLE_WEB_PORT", "9090")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()
	assert.Equal(t, "/opt/models/extractor.tflite", cfg.ModelPath)
	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, "9090", cfg.Web.Port)
	assert.Equal(t, DefaultOutputModel, cfg.OutputModel)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Method = "svm"
	_, err := New(cfg)
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}

func runUntilQuit(t *testing.T, cfg Config, presses [][]int) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init())

	dev := a.input.(*input.MockDevice)
	for _, p := range presses {
		dev.Press(p...)
	}
	dev.Press(1, 2, 3, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))
	require.NoError(t, ctx.Err(), "loop did not reach the quit combination")
	return a
}

func TestApp_KNNSession(t *testing.T) {
	cfg := mockConfig(t)
	a := runUntilQuit(t, cfg, [][]int{{1}, {}, {2}, {1}})

	assert.Equal(t, teachable.MethodKNN, a.Strategy().Name())
	assert.Equal(t, 3, a.Strategy().ExampleCount())
	assert.Contains(t, cfg.Out.(*bytes.Buffer).String(), "#examples: 3")

	a.Shutdown()
	dev := a.input.(*input.MockDevice)
	assert.True(t, dev.Closed())
	assert.Equal(t, 2, dev.Wiggles())

	// Idempotent
	a.Shutdown()
	assert.Equal(t, 2, dev.Wiggles())
}

func TestApp_ImprintingSavesOnClear(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Method = trainer.MethodImprinting
	a := runUntilQuit(t, cfg, [][]int{{1}, {1}, {2}, {2}, {}, {0}})
	defer a.Shutdown()

	assert.Equal(t, 0, a.Strategy().ExampleCount())
	m, err := trainer.NewFileStore(cfg.OutputModel).Load()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, trainer.MethodImprinting, m.Method)
	assert.Equal(t, a.Session(), m.Session)
}

func TestApp_TestUI(t *testing.T) {
	cfg := mockConfig(t)
	cfg.TestUI = true
	out := &bytes.Buffer{}
	cfg.Out = out

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init())
	defer a.Shutdown()
	assert.Nil(t, a.Strategy())

	dev := a.input.(*input.MockDevice)
	dev.Press(3)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	assert.True(t, strings.Contains(out.String(), "button 3 OK"))
	assert.Equal(t, 3, dev.LED())
}

func TestApp_CancelledContext(t *testing.T) {
	cfg := mockConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Init())
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.Run(ctx))
}
