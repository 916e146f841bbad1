package teachable

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/labels"
)

// ErrFramesClosed is returned by Run when the frame source ends on its own.
var ErrFramesClosed = errors.New("teachable: frame source closed")

// Controls is the input side the loop needs: debounced buttons (index 0 is
// clear, 1..N add examples) and the class indicators.
type Controls interface {
	Buttons() []bool
	SetOnlyLED(idx int)
}

// State is the loop state.
type State int

const (
	Running State = iota
	Exiting
)

func (s State) String() string {
	if s == Exiting {
		return "exiting"
	}
	return "running"
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Strategy   Strategy
	Controls   Controls
	Printer    *Printer   // nil disables the status line
	Sink       StatusSink // optional
	FrameSink  FrameSink  // optional
	Logger     *slog.Logger
	Session    string
	WindowSize int
	FPSSamples int
	Now        func() time.Time
}

// Loop is the per-frame state machine. All state is owned by the goroutine
// calling Step or Run.
type Loop struct {
	strategy Strategy
	controls Controls
	printer  *Printer
	sink     StatusSink
	frameOut FrameSink
	logger   *slog.Logger
	session  string
	now      func() time.Time

	window *Window
	fps    *FPSMeter
	frames int64
	state  State
	last   Status
}

// NewLoop creates a loop in the Running state.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		strategy: cfg.Strategy,
		controls: cfg.Controls,
		printer:  cfg.Printer,
		sink:     cfg.Sink,
		frameOut: cfg.FrameSink,
		logger:   cfg.Logger.With("component", "loop"),
		session:  cfg.Session,
		now:      cfg.Now,
		window:   NewWindow(cfg.WindowSize),
		fps:      NewFPSMeter(cfg.FPSSamples),
		state:    Running,
	}
}

// State returns the current state.
func (l *Loop) State() State { return l.state }

// LastStatus returns the most recent status snapshot.
func (l *Loop) LastStatus() Status { return l.last }

// Step processes one frame and returns the resulting state.
func (l *Loop) Step(img image.Image) State {
	if l.state == Exiting {
		return Exiting
	}
	l.frames++
	sample := embedding.NewSample(img)

	raw, err := l.strategy.Classify(sample)
	if err != nil {
		l.logger.Debug("classify failed", "frame", l.frames, "error", err)
		raw = labels.None
	}
	l.window.Push(raw)
	stable := l.window.Majority()

	buttons := l.controls.Buttons()
	l.apply(sample, buttons)

	if quitPressed(buttons) {
		l.logger.Info("quit combination pressed", "frame", l.frames)
		l.state = Exiting
		return Exiting
	}

	if ran, err := l.strategy.Train(); err != nil {
		l.logger.Warn("training failed", "error", err)
	} else if ran {
		l.logger.Debug("training pass ran", "examples", l.strategy.ExampleCount())
	}

	l.controls.SetOnlyLED(stable.LED())
	l.report(stable)
	if l.frameOut != nil {
		l.frameOut.PublishFrame(img)
	}
	return Running
}

// apply handles the button presses of one poll. Clear wins over every
// add-example press in the same poll and also forgets the smoothing window.
func (l *Loop) apply(sample *embedding.Sample, buttons []bool) {
	if len(buttons) == 0 {
		return
	}
	if buttons[0] {
		if err := l.strategy.Clear(); err != nil {
			l.logger.Error("clear failed", "error", err)
		}
		l.window.Reset()
		return
	}
	for i := 1; i < len(buttons); i++ {
		if !buttons[i] {
			continue
		}
		if err := l.strategy.Add(sample, labels.Class(i)); err != nil {
			l.logger.Warn("add example failed", "class", labels.Class(i).String(), "error", err)
		}
	}
}

// quitPressed reports whether every add-example control is pressed and clear
// is not.
func quitPressed(buttons []bool) bool {
	if len(buttons) < 2 || buttons[0] {
		return false
	}
	for _, b := range buttons[1:] {
		if !b {
			return false
		}
	}
	return true
}

func (l *Loop) report(c labels.Class) {
	now := l.now()
	l.last = Status{
		Session:   l.session,
		Method:    l.strategy.Name(),
		Frame:     l.frames,
		FPS:       l.fps.Tick(now),
		Examples:  l.strategy.ExampleCount(),
		Class:     c,
		ClassName: c.String(),
		Time:      now,
	}
	if l.printer != nil {
		l.printer.Print(l.last)
	}
	if l.sink != nil {
		l.sink.Publish(l.last)
	}
}

// Run steps through frames until the quit combination is pressed, ctx is
// cancelled or the frame source closes.
func (l *Loop) Run(ctx context.Context, frames <-chan image.Image) error {
	l.logger.Info("loop started", "method", l.strategy.Name())
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("loop stopped", "reason", "context", "frames", l.frames)
			return nil
		case img, ok := <-frames:
			if !ok {
				return ErrFramesClosed
			}
			if l.Step(img) == Exiting {
				l.logger.Info("loop stopped", "reason", "quit", "frames", l.frames)
				return nil
			}
		}
	}
}
