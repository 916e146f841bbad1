// Package teachable ties a classification strategy to the input controls:
// the per-frame loop classifies, smooths, reacts to button presses and
// reports status.
package teachable

import (
	"log/slog"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/knn"
	"github.com/teslashibe/go-teachable/pkg/labels"
	"github.com/teslashibe/go-teachable/pkg/trainer"
)

// MethodKNN names the nearest-neighbour strategy.
const MethodKNN = "knn"

// Strategy is a way of learning classes from labelled frames.
type Strategy interface {
	// Name returns the method name ("knn", "imprinting", "backprop").
	Name() string

	// Classify returns the predicted control for a frame, or labels.None.
	Classify(s *embedding.Sample) (labels.Class, error)

	// Add teaches the frame as an example of control c.
	Add(s *embedding.Sample, c labels.Class) error

	// Train runs a training pass if one is due and reports whether it ran.
	Train() (bool, error)

	// Clear forgets the session, persisting learned state where supported.
	Clear() error

	// ExampleCount returns examples added since the last clear.
	ExampleCount() int
}

// KNN classifies with the balanced k-NN store.
type KNN struct {
	store     *knn.Store
	extractor embedding.Extractor
	registry  *labels.Registry
	logger    *slog.Logger
}

// NewKNN creates a k-NN strategy with k neighbours.
func NewKNN(ex embedding.Extractor, k int, logger *slog.Logger) *KNN {
	if logger == nil {
		logger = slog.Default()
	}
	return &KNN{
		store:     knn.New(k),
		extractor: ex,
		registry:  labels.NewRegistry(),
		logger:    logger.With("component", "knn"),
	}
}

func (s *KNN) Name() string { return MethodKNN }

func (s *KNN) Classify(sample *embedding.Sample) (labels.Class, error) {
	if s.store.ExampleCount() == 0 {
		return labels.None, nil
	}
	v, err := sample.Embedding(s.extractor)
	if err != nil {
		return labels.None, err
	}
	id, ok, err := s.store.Query(v)
	if err != nil || !ok {
		return labels.None, err
	}
	c, _ := s.registry.Class(id)
	return c, nil
}

func (s *KNN) Add(sample *embedding.Sample, c labels.Class) error {
	v, err := sample.Embedding(s.extractor)
	if err != nil {
		return err
	}
	// A new control only gets a label once its first example is stored.
	id, ok := s.registry.Internal(c)
	if !ok {
		id = s.registry.Len()
	}
	if err := s.store.AddEmbedding(v, id); err != nil {
		return err
	}
	s.registry.Assign(c)
	s.logger.Debug("example added", "class", c.String(), "label", id, "examples", s.store.ExampleCount())
	return nil
}

// Train is a no-op: the store is updated on every Add.
func (s *KNN) Train() (bool, error) { return false, nil }

// Clear drops every stored example. The k-NN store is never persisted.
func (s *KNN) Clear() error {
	s.store.Clear()
	s.registry.Reset()
	s.logger.Info("cleared")
	return nil
}

func (s *KNN) ExampleCount() int { return s.store.ExampleCount() }

// Store exposes the underlying k-NN store.
func (s *KNN) Store() *knn.Store { return s.store }

var (
	_ Strategy = (*KNN)(nil)
	_ Strategy = (*trainer.Engine)(nil)
)
