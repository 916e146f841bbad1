package trainer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/labels"
)

// Engine drives a Backend from control-level events. It is owned by the
// control loop goroutine and is not safe for concurrent use.
type Engine struct {
	backend   Backend
	extractor embedding.Extractor
	store     Store
	logger    *slog.Logger
	session   string

	registry *labels.Registry
	queue    *Queue
	examples int
}

// NewEngine wires a backend to its extractor and model store.
func NewEngine(backend Backend, ex embedding.Extractor, store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewFileStore("")
	}
	return &Engine{
		backend:   backend,
		extractor: ex,
		store:     store,
		logger:    logger.With("component", "trainer", "method", backend.Name()),
		registry:  labels.NewRegistry(),
		queue:     NewQueue(),
	}
}

// SetSession tags saved models with a session id.
func (e *Engine) SetSession(id string) { e.session = id }

// Name returns the backend method name.
func (e *Engine) Name() string { return e.backend.Name() }

// Add queues the frame under control c, assigning an internal label on first use.
func (e *Engine) Add(s *embedding.Sample, c labels.Class) error {
	if !c.Valid() {
		return fmt.Errorf("trainer: invalid class %d", int(c))
	}
	if s.Image == nil || s.Image.Bounds().Empty() {
		return embedding.ErrEmptyImage
	}

	w, h := e.extractor.InputSize()
	id := e.registry.Assign(c)
	e.queue.Push(id, embedding.Resize(s.Image, w, h))
	e.examples++
	e.logger.Debug("example added", "class", c.String(), "label", id, "examples", e.examples)
	return nil
}

// Train runs a pass if the backend says one is due. It reports whether a
// pass ran.
func (e *Engine) Train() (bool, error) {
	if !e.backend.ShouldTrain(e.queue.Len(), e.examples) {
		return false, nil
	}

	start := time.Now()
	err := e.backend.Train(e.queue, TrainState{Classes: e.registry.Len(), Total: e.examples})
	if e.backend.DrainsQueue() {
		e.queue.Reset()
	}
	if err != nil {
		return true, fmt.Errorf("training pass: %w", err)
	}

	e.logger.Info("training pass",
		"examples", e.examples,
		"classes", e.registry.Len(),
		"duration", time.Since(start).Round(time.Millisecond))
	return true, nil
}

// Classify maps the backend's prediction back to a control.
// It returns labels.None while no example has been added since the last
// clear, even when a restored model is loaded.
func (e *Engine) Classify(s *embedding.Sample) (labels.Class, error) {
	if e.examples == 0 {
		return labels.None, nil
	}
	id, ok, err := e.backend.Predict(s)
	if err != nil || !ok {
		return labels.None, err
	}
	c, ok := e.registry.Class(id)
	if !ok {
		return labels.None, nil
	}
	return c, nil
}

// Clear saves the learned state if examples were added since the last clear,
// then empties the queue, the label registry and the backend. State is reset
// even when the save fails.
func (e *Engine) Clear() error {
	var err error
	if e.examples > 0 {
		if err = e.save(); err != nil {
			e.logger.Error("failed to save model", "error", err)
		}
	}

	e.queue.Reset()
	e.examples = 0
	e.backend.Reset()
	e.registry.Reset()
	e.logger.Info("cleared")
	return err
}

func (e *Engine) save() error {
	m := e.backend.Export()
	m.Session = e.session
	m.SavedAt = time.Now().UTC()
	m.Labels = e.registry.Mapping()
	if err := e.store.Save(&m); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	e.logger.Info("model saved", "classes", len(m.Labels))
	return nil
}

// Restore loads a saved model into the backend and label registry.
// A store with no saved model is left untouched.
func (e *Engine) Restore() error {
	m, err := e.store.Load()
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	if m.Method != e.backend.Name() {
		return fmt.Errorf("%w: saved %q, running %q", ErrModelMismatch, m.Method, e.backend.Name())
	}
	if err := e.registry.Restore(m.Labels); err != nil {
		return err
	}
	if err := e.backend.Import(*m); err != nil {
		e.registry.Reset()
		return err
	}
	e.logger.Info("model restored", "classes", e.registry.Len(), "saved_at", m.SavedAt)
	return nil
}

// ExampleCount returns examples added since the last clear.
func (e *Engine) ExampleCount() int { return e.examples }

// Classes returns the number of assigned labels.
func (e *Engine) Classes() int { return e.registry.Len() }
