package trainer

import (
	"fmt"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"gonum.org/v1/gonum/mat"
)

// BackpropConfig holds softmax training parameters.
type BackpropConfig struct {
	Every        int // retrain when the example count reaches a new multiple of Every
	LearningRate float64
	Iterations   int
	Reg          float64
}

// DefaultBackpropConfig returns the demo defaults.
func DefaultBackpropConfig() BackpropConfig {
	return BackpropConfig{
		Every:        8,
		LearningRate: 0.05,
		Iterations:   200,
		Reg:          1e-4,
	}
}

// Backprop trains a softmax regression over raw embeddings. Every pass starts
// from scratch and re-embeds all images queued since the last clear.
type Backprop struct {
	cfg       BackpropConfig
	extractor embedding.Extractor

	model     *Softmax
	trainedAt int // example total at the last pass
	passes    int
}

// NewBackprop creates a backprop backend. Zero fields in cfg take defaults.
func NewBackprop(ex embedding.Extractor, cfg BackpropConfig) *Backprop {
	def := DefaultBackpropConfig()
	if cfg.Every < 1 {
		cfg.Every = def.Every
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = def.Iterations
	}
	if cfg.Reg < 0 {
		cfg.Reg = def.Reg
	}
	return &Backprop{cfg: cfg, extractor: ex}
}

func (b *Backprop) Name() string { return MethodBackprop }

// ShouldTrain fires once each time total reaches a new multiple of Every.
func (b *Backprop) ShouldTrain(_, total int) bool {
	return total >= b.cfg.Every && total/b.cfg.Every > b.trainedAt/b.cfg.Every
}

func (b *Backprop) DrainsQueue() bool { return false }

// Train re-embeds every queued image and fits a fresh softmax.
func (b *Backprop) Train(q *Queue, st TrainState) error {
	// A failed pass waits for the next multiple rather than retrying per frame.
	b.trainedAt = st.Total

	var rows [][]float64
	var y []int
	for _, label := range q.Labels() {
		for _, img := range q.Images(label) {
			v, err := b.extractor.Embed(img)
			if err != nil {
				return fmt.Errorf("embed label %d: %w", label, err)
			}
			rows = append(rows, v)
			y = append(y, label)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0])
	x := mat.NewDense(len(rows), dim, nil)
	for i, r := range rows {
		if len(r) != dim {
			return fmt.Errorf("embedding %d has %d values, want %d", i, len(r), dim)
		}
		x.SetRow(i, r)
	}

	classes := st.Classes
	if classes < 1 {
		classes = 1
	}
	model, err := TrainSoftmax(x, y, classes, SGDParams{
		LearningRate: b.cfg.LearningRate,
		Iterations:   b.cfg.Iterations,
		Reg:          b.cfg.Reg,
	})
	if err != nil {
		return err
	}
	b.model = model
	b.passes++
	return nil
}

// Passes returns the number of completed training passes.
func (b *Backprop) Passes() int { return b.passes }

// Predict runs a forward pass and returns the arg-max label.
func (b *Backprop) Predict(s *embedding.Sample) (int, bool, error) {
	if b.model == nil {
		return 0, false, nil
	}
	v, err := s.Embedding(b.extractor)
	if err != nil {
		return 0, false, err
	}
	if len(v) != b.model.Dim() {
		return 0, false, fmt.Errorf("embedding has %d values, model expects %d", len(v), b.model.Dim())
	}
	return b.model.Predict(v), true, nil
}

func (b *Backprop) Reset() {
	b.model = nil
	b.trainedAt = 0
	b.passes = 0
}

// Export stores the weight matrix row-major (dim x classes).
func (b *Backprop) Export() Model {
	m := Model{Method: MethodBackprop}
	if b.model == nil {
		return m
	}
	r, _ := b.model.W.Dims()
	for i := 0; i < r; i++ {
		m.Weights = append(m.Weights, mat.Row(nil, i, b.model.W))
	}
	m.Bias = append([]float64(nil), b.model.B...)
	return m
}

func (b *Backprop) Import(m Model) error {
	if m.Method != MethodBackprop {
		return ErrModelMismatch
	}
	b.Reset()
	if len(m.Weights) == 0 {
		return nil
	}
	classes := len(m.Bias)
	w := mat.NewDense(len(m.Weights), classes, nil)
	for i, row := range m.Weights {
		if len(row) != classes {
			return ErrModelMismatch
		}
		w.SetRow(i, row)
	}
	b.model = &Softmax{W: w, B: append([]float64(nil), m.Bias...)}
	return nil
}

var _ Backend = (*Backprop)(nil)
