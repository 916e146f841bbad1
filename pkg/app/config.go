// Package app wires the camera, the operator controls, the embedding model
// and a classification strategy into a running teachable machine.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/go-teachable/internal/config"
	"github.com/teslashibe/go-teachable/pkg/camera"
	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/embedding/dnn"
	"github.com/teslashibe/go-teachable/pkg/input"
	"github.com/teslashibe/go-teachable/pkg/knn"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"github.com/teslashibe/go-teachable/pkg/trainer"
	"github.com/teslashibe/go-teachable/pkg/web"
)

// MockModel selects the built-in colour-grid extractor instead of a model
// file.
const MockModel = "mock"

// DefaultOutputModel is where trained models are saved.
const DefaultOutputModel = "models/teachable_model.json"

// Config holds all configuration for the application.
// Flag parsing is done in cmd/teachable/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug    bool
	LogLevel string

	// Embedding model.
	ModelPath    string // Model file, or MockModel
	InputWidth   int
	InputHeight  int
	Quantization embedding.Quantization

	// Classification.
	Method      string // knn, imprinting or backprop
	K           int    // k-NN neighbours
	OutputModel string // Save path for trained models
	KeepClasses bool   // Restore the saved model at startup

	Camera camera.Config
	Input  input.Config
	Web    web.Config // Web.Port empty disables the dashboard

	// TestUI runs the button and LED diagnostic instead of the classifier.
	TestUI bool

	// Out receives the status line. nil means stdout.
	Out    io.Writer
	Styled bool

	// Logger is the base logger. nil builds one on stderr at Level().
	Logger *slog.Logger
}

// Level returns the effective log level; Debug overrides LogLevel.
func (c Config) Level() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	d := dnn.DefaultConfig()
	w := web.DefaultConfig()
	w.Port = ""
	return Config{
		LogLevel:    "info",
		ModelPath:   d.ModelPath,
		InputWidth:  d.InputWidth,
		InputHeight: d.InputHeight,
		Method:      teachable.MethodKNN,
		K:           knn.DefaultK,
		OutputModel: DefaultOutputModel,
		Camera:      camera.DefaultConfig(),
		Input:       input.DefaultConfig(),
		Web:         w,
	}
}

// LoadEnvConfig applies environment overrides. cmd/teachable calls it
// before flag parsing so that flags take precedence.
func (c *Config) LoadEnvConfig() {
	c.ModelPath = config.String(config.EnvModel, c.ModelPath)
	c.OutputModel = config.String(config.EnvOutputModel, c.OutputModel)
	c.Camera.Device = config.String(config.EnvDevice, c.Camera.Device)
	c.Web.Port = config.String(config.EnvWebPort, c.Web.Port)
	c.LogLevel = config.String(config.EnvLogLevel, c.LogLevel)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return &ConfigError{Field: "Input", Message: err.Error()}
	}
	if c.TestUI {
		return nil
	}

	switch c.Method {
	case teachable.MethodKNN:
		if c.K < 1 {
			return &ConfigError{Field: "K", Message: fmt.Sprintf("k must be at least 1, got %d", c.K)}
		}
	case trainer.MethodImprinting, trainer.MethodBackprop:
		if c.OutputModel == "" {
			return &ConfigError{Field: "OutputModel", Message: "an output model path is required for " + c.Method}
		}
	default:
		return &ConfigError{Field: "Method", Message: fmt.Sprintf("unknown method %q (want knn, imprinting or backprop)", c.Method)}
	}

	if c.ModelPath == "" {
		return &ConfigError{Field: "ModelPath", Message: "a model path is required"}
	}
	if c.ModelPath != MockModel && (c.InputWidth < 1 || c.InputHeight < 1) {
		return &ConfigError{Field: "InputSize", Message: fmt.Sprintf("invalid model input size %dx%d", c.InputWidth, c.InputHeight)}
	}
	if err := c.Camera.Validate(); err != nil {
		return &ConfigError{Field: "Camera", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
