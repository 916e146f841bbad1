// Teachable - an image classifier taught live with buttons in front of a camera.
// Press a class button to add the current frame as an example, the clear
// button to start over, and all class buttons together to quit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-teachable/internal/log"
	"github.com/teslashibe/go-teachable/pkg/app"
	"github.com/teslashibe/go-teachable/pkg/camera"
	"github.com/teslashibe/go-teachable/pkg/embedding/dnn"
	"github.com/teslashibe/go-teachable/pkg/input"
	"golang.org/x/term"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fatal("Configuration error", err)
	}

	log.Init(cfg.Level())
	cfg.Logger = log.L()

	a, err := app.New(cfg)
	if err != nil {
		fatal("Configuration error", err)
	}

	if err := a.Init(); err != nil {
		a.Shutdown()
		fatal("Initialization failed", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		a.Shutdown()
		fatal("Runtime error", err)
	}
}

// fatal prints err with a remediation hint when one is known and exits.
func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", what, err)

	var openErr *camera.OpenError
	switch {
	case errors.As(err, &openErr):
		for _, h := range openErr.Hints {
			fmt.Fprintf(os.Stderr, "   💡 %s\n", h)
		}
	case errors.Is(err, input.ErrGPIOUnavailable):
		fmt.Fprintf(os.Stderr, "   💡 %s, or pass --keyboard\n", input.GPIOHint)
	case errors.Is(err, dnn.ErrModelNotFound):
		fmt.Fprintln(os.Stderr, "   💡 pass --model with a headless embedding model, or --model mock to try the pipeline")
	}
	os.Exit(1)
}

// parseFlags parses command line flags and returns configuration.
// Environment variables set the defaults; flags override them.
func parseFlags() (app.Config, error) {
	cfg := app.DefaultConfig()
	cfg.LoadEnvConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	model := flag.String("model", cfg.ModelPath, "Embedding extractor model file, or 'mock'")
	inputSize := flag.String("input-size", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight), "Model input size WxH")
	quantScale := flag.Float64("quant-scale", 0, "Output quantization scale (0 = float output)")
	quantZero := flag.Int("quant-zero", 0, "Output quantization zero point")

	backend := flag.String("backend", string(cfg.Camera.Backend), "Camera backend: opencv, libcamera, mock")
	device := flag.String("device", cfg.Camera.Device, "Camera index, /dev/videoN or GStreamer pipeline")
	res := flag.String("res", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height), "Capture resolution WxH or preset (qvga, vga, 720p, 1080p)")
	fps := flag.Int("fps", cfg.Camera.Framerate, "Capture framerate")

	method := flag.String("method", cfg.Method, "Classification method: knn, imprinting, backprop")
	k := flag.Int("k", cfg.K, "Number of neighbours for knn")
	outputModel := flag.String("outputmodel", cfg.OutputModel, "Where trained models are saved on clear")
	keepClasses := flag.Bool("keepclasses", false, "Restore the model saved at --outputmodel on startup")

	keyboard := flag.Bool("keyboard", false, "Use the keyboard (q,1,2,3,4) instead of GPIO buttons")
	ledActiveLow := flag.Bool("led-active-low", false, "LEDs light on a low output")
	testUI := flag.Bool("testui", false, "Test buttons and LEDs, then exit with Ctrl-C")

	webPort := flag.String("web-port", cfg.Web.Port, "Dashboard port (empty disables the dashboard)")
	flag.Parse()

	cfg.Debug, cfg.LogLevel, cfg.ModelPath = *debug, *logLevel, *model
	cfg.Quantization.Scale, cfg.Quantization.ZeroPoint = *quantScale, *quantZero
	cfg.Method, cfg.K, cfg.OutputModel, cfg.KeepClasses = *method, *k, *outputModel, *keepClasses
	cfg.TestUI = *testUI
	cfg.Web.Port = *webPort

	var err error
	if cfg.InputWidth, cfg.InputHeight, err = camera.ParseResolution(*inputSize); err != nil {
		return cfg, fmt.Errorf("--input-size: %w", err)
	}
	if cfg.Camera.Width, cfg.Camera.Height, err = camera.ParseResolution(*res); err != nil {
		return cfg, fmt.Errorf("--res: %w", err)
	}
	cfg.Camera.Backend = camera.Backend(*backend)
	cfg.Camera.Device = *device
	cfg.Camera.Framerate = *fps

	if *keyboard {
		cfg.Input.Backend = input.BackendKeyboard
	}
	cfg.Input.LEDActiveLow = *ledActiveLow

	cfg.Styled = term.IsTerminal(int(os.Stdout.Fd()))
	return cfg, nil
}
