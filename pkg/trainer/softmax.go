package trainer

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax is a linear classifier: scores = x·W + b.
type Softmax struct {
	W *mat.Dense // dim x classes
	B []float64
}

// SGDParams are the gradient descent hyper-parameters.
type SGDParams struct {
	LearningRate float64
	Iterations   int
	Reg          float64 // L2 weight penalty
}

// TrainSoftmax fits a softmax regression from zero weights with full-batch
// gradient descent. x has one example per row; y holds labels in [0, classes).
func TrainSoftmax(x *mat.Dense, y []int, classes int, p SGDParams) (*Softmax, error) {
	n, dim := x.Dims()
	if n == 0 || n != len(y) {
		return nil, errors.New("trainer: examples and labels differ in length")
	}
	if classes < 1 {
		return nil, errors.New("trainer: no classes")
	}
	for _, l := range y {
		if l < 0 || l >= classes {
			return nil, errors.New("trainer: label out of range")
		}
	}

	sm := &Softmax{W: mat.NewDense(dim, classes, nil), B: make([]float64, classes)}
	scores := mat.NewDense(n, classes, nil)
	gradW := mat.NewDense(dim, classes, nil)

	for it := 0; it < p.Iterations; it++ {
		sm.scores(scores, x)
		softmaxRows(scores)

		// dL/dscores = (p - onehot) / n
		for i, l := range y {
			scores.Set(i, l, scores.At(i, l)-1)
		}
		scores.Scale(1/float64(n), scores)

		gradW.Mul(x.T(), scores)
		gradW.Add(gradW, scaled(p.Reg, sm.W))
		sm.W.Sub(sm.W, scaled(p.LearningRate, gradW))

		for c := 0; c < classes; c++ {
			sm.B[c] -= p.LearningRate * floats.Sum(mat.Col(nil, c, scores))
		}
	}
	return sm, nil
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

func (s *Softmax) scores(dst *mat.Dense, x mat.Matrix) {
	dst.Mul(x, s.W)
	r, _ := dst.Dims()
	for i := 0; i < r; i++ {
		row := dst.RawRowView(i)
		floats.Add(row, s.B)
	}
}

func softmaxRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		maxv := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - maxv)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

// Predict returns the arg-max class of x.
func (s *Softmax) Predict(x []float64) int {
	_, classes := s.W.Dims()
	out := mat.NewDense(1, classes, nil)
	s.scores(out, mat.NewDense(1, len(x), x))
	return floats.MaxIdx(out.RawRowView(0))
}

// Probabilities returns the class probabilities for x.
func (s *Softmax) Probabilities(x []float64) []float64 {
	_, classes := s.W.Dims()
	out := mat.NewDense(1, classes, nil)
	s.scores(out, mat.NewDense(1, len(x), x))
	softmaxRows(out)
	return out.RawRowView(0)
}

// Dim returns the expected feature dimension.
func (s *Softmax) Dim() int {
	r, _ := s.W.Dims()
	return r
}
