package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/teslashibe/go-teachable/internal/log"
	"github.com/teslashibe/go-teachable/pkg/camera"
	"github.com/teslashibe/go-teachable/pkg/camera/cvcapture"
	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/embedding/dnn"
	"github.com/teslashibe/go-teachable/pkg/input"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"github.com/teslashibe/go-teachable/pkg/trainer"
	"github.com/teslashibe/go-teachable/pkg/web"
	"golang.org/x/sync/errgroup"
)

// teardownWiggles is how often the LEDs flash when a session ends.
const teardownWiggles = 2

// App is the teachable machine.
type App struct {
	config  Config
	session string
	logger  *slog.Logger
	out     io.Writer

	extractor embedding.Extractor
	strategy  teachable.Strategy
	input     input.Device
	camera    camera.Camera
	loop      *teachable.Loop

	// Web dashboard
	webServer *web.Server

	shutdown sync.Once
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, cfg.Level())
	}

	return &App{
		config:  cfg,
		session: uuid.NewString(),
		logger:  logger,
		out:     out,
	}, nil
}

// Session returns the session id shown in logs, status and saved models.
func (a *App) Session() string { return a.session }

// Strategy returns the classification strategy. nil before Init or in
// test-UI mode.
func (a *App) Strategy() teachable.Strategy { return a.strategy }

// Init opens every component.
// Call this after New() and before Run().
func (a *App) Init() error {
	if a.config.Web.Port != "" && !a.config.TestUI {
		a.webServer = web.NewServer(a.config.Web, a.logger)
		a.logger = slog.New(a.webServer.LogHandler(a.logger.Handler()))
	}
	a.logger = a.logger.With("session", a.session)
	slog.SetDefault(a.logger)

	dev, err := input.Open(a.config.Input, a.logger)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	a.input = dev
	a.logger.Info("input ready", "backend", dev.Name())

	if a.config.TestUI {
		return nil
	}

	if err := a.initExtractor(); err != nil {
		return fmt.Errorf("embedding model: %w", err)
	}
	if err := a.initStrategy(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	cam, err := cvcapture.Open(a.config.Camera, a.logger)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.camera = cam

	lc := teachable.LoopConfig{
		Strategy: a.strategy,
		Controls: a.input,
		Printer:  teachable.NewPrinter(a.out, a.config.Styled),
		Logger:   a.logger,
		Session:  a.session,
	}
	if a.webServer != nil {
		lc.Sink = a.webServer
		lc.FrameSink = a.webServer
	}
	a.loop = teachable.NewLoop(lc)
	return nil
}

func (a *App) initExtractor() error {
	if a.config.ModelPath == MockModel {
		a.extractor = embedding.NewMockExtractor()
		a.logger.Warn("using mock embedding extractor")
		return nil
	}

	cfg := dnn.DefaultConfig()
	cfg.ModelPath = a.config.ModelPath
	cfg.InputWidth = a.config.InputWidth
	cfg.InputHeight = a.config.InputHeight
	cfg.Quantization = a.config.Quantization

	ex, err := dnn.New(cfg)
	if err != nil {
		return err
	}
	a.extractor = ex
	a.logger.Info("embedding model loaded", "path", cfg.ModelPath, "input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight))
	return nil
}

func (a *App) initStrategy() error {
	if a.config.Method == teachable.MethodKNN {
		a.strategy = teachable.NewKNN(a.extractor, a.config.K, a.logger)
		a.logger.Info("strategy ready", "method", a.config.Method, "k", a.config.K)
		return nil
	}

	backend, err := trainer.NewBackend(trainer.Options{
		Method:    a.config.Method,
		BatchSize: trainer.DefaultBatchSize,
		Backprop:  trainer.DefaultBackpropConfig(),
	}, a.extractor)
	if err != nil {
		return err
	}

	engine := trainer.NewEngine(backend, a.extractor, trainer.NewFileStore(a.config.OutputModel), a.logger)
	engine.SetSession(a.session)
	if a.config.KeepClasses {
		if err := engine.Restore(); err != nil {
			a.logger.Warn("could not restore saved model", "path", a.config.OutputModel, "error", err)
		}
	}
	a.strategy = engine
	a.logger.Info("strategy ready", "method", a.config.Method, "output", a.config.OutputModel)
	return nil
}

// Run starts the classifier, or the test UI, and blocks until the quit
// combination is pressed or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.config.TestUI {
		return teachable.TestUI(ctx, a.input, a.out, teachable.DefaultTestUIInterval)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if a.webServer != nil {
		g.Go(func() error {
			return a.webServer.Run(gctx)
		})
	}

	if err := a.camera.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("camera: %w", err)
	}

	g.Go(func() error {
		// The quit combination ends the whole session.
		defer cancel()
		err := a.loop.Run(gctx, a.camera.Frames())
		if errors.Is(err, teachable.ErrFramesClosed) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return g.Wait()
}

// Shutdown releases every component. It is safe to call after a failed Init
// and more than once.
func (a *App) Shutdown() {
	a.shutdown.Do(func() {
		if a.camera != nil {
			if err := a.camera.Stop(); err != nil {
				a.logger.Warn("camera stop failed", "error", err)
			}
		}
		if a.input != nil {
			a.input.WiggleLEDs(teardownWiggles)
			if err := a.input.Close(); err != nil {
				a.logger.Warn("input close failed", "error", err)
			}
		}
		if a.extractor != nil {
			a.extractor.Close()
		}
		if a.loop != nil {
			st := a.loop.LastStatus()
			a.logger.Info("session ended", "frames", st.Frame, "examples", st.Examples)
		}
	})
}
