// Package trainer turns labelled example images into a low-shot classifier.
//
// The Engine owns what every training method shares: the label registry,
// the example queue, the example counter and persistence on clear. A Backend
// owns the learned parameters. Two backends exist:
//
//   - Imprinting: class prototypes built from normalized embeddings, trained
//     whenever a small batch of examples has been queued.
//   - Backprop: a softmax regression over raw embeddings, retrained from
//     scratch on every queued image each time the example count reaches a
//     new multiple of Every.
package trainer

import (
	"errors"
	"time"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/labels"
)

// Method names accepted by NewBackend.
const (
	MethodImprinting = "imprinting"
	MethodBackprop   = "backprop"
)

var (
	// ErrUnknownMethod is returned for an unsupported training method.
	ErrUnknownMethod = errors.New("trainer: unknown method")

	// ErrModelMismatch is returned when a saved model does not fit the backend.
	ErrModelMismatch = errors.New("trainer: saved model does not match backend")
)

// TrainState is what the Engine tells a backend about the session.
type TrainState struct {
	Classes int // labels assigned so far
	Total   int // examples added since the last clear
}

// Backend is a training method.
type Backend interface {
	// Name returns the method name.
	Name() string

	// ShouldTrain reports whether a pass is due.
	ShouldTrain(queued, total int) bool

	// Train runs one pass over the queued images.
	Train(q *Queue, st TrainState) error

	// DrainsQueue reports whether the queue is emptied after a pass.
	DrainsQueue() bool

	// Predict returns the top internal label for a frame. ok is false when
	// nothing has been learned yet.
	Predict(s *embedding.Sample) (label int, ok bool, err error)

	// Reset forgets everything learned.
	Reset()

	// Export and Import move learned parameters in and out of a Model.
	Export() Model
	Import(m Model) error
}

// Model is the persisted form of a trained backend.
type Model struct {
	Session string               `json:"session"`
	Method  string               `json:"method"`
	SavedAt time.Time            `json:"saved_at"`
	Labels  map[int]labels.Class `json:"labels"`
	Weights [][]float64          `json:"weights"`
	Bias    []float64            `json:"bias,omitempty"`
	Counts  []int                `json:"counts,omitempty"`
}

// Options configures NewBackend.
type Options struct {
	Method    string
	BatchSize int
	Backprop  BackpropConfig
}

// NewBackend creates the backend named by opts.Method.
func NewBackend(opts Options, ex embedding.Extractor) (Backend, error) {
	switch opts.Method {
	case MethodImprinting:
		return NewImprinting(ex, opts.BatchSize), nil
	case MethodBackprop:
		return NewBackprop(ex, opts.Backprop), nil
	default:
		return nil, ErrUnknownMethod
	}
}
