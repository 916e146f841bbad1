package trainer

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-teachable/pkg/embedding"
	"github.com/teslashibe/go-teachable/pkg/labels"
	"gonum.org/v1/gonum/mat"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func frame(c color.Color) *embedding.Sample {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	return embedding.NewSample(img)
}

func newEngine(t *testing.T, opts Options) (*Engine, *MemoryStore) {
	t.Helper()
	ex := embedding.NewMockExtractor()
	backend, err := NewBackend(opts, ex)
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewEngine(backend, ex, store, nil), store
}

func addAndTrain(t *testing.T, e *Engine, s *embedding.Sample, c labels.Class) bool {
	t.Helper()
	require.NoError(t, e.Add(s, c))
	trained, err := e.Train()
	require.NoError(t, err)
	return trained
}

func TestNewBackend_UnknownMethod(t *testing.T) {
	_, err := NewBackend(Options{Method: "knn"}, embedding.NewMockExtractor())
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestImprinting_TrainsInBatches(t *testing.T) {
	e, _ := newEngine(t, Options{Method: MethodImprinting, BatchSize: 4})

	c, err := e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.None, c, "nothing learned yet")

	assert.False(t, addAndTrain(t, e, frame(red), 1))
	assert.False(t, addAndTrain(t, e, frame(red), 1))
	assert.False(t, addAndTrain(t, e, frame(blue), 3))
	assert.True(t, addAndTrain(t, e, frame(blue), 3))
	assert.False(t, addAndTrain(t, e, frame(blue), 3), "queue drained after pass")

	c, err = e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(1), c)

	c, err = e.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(3), c)

	assert.Equal(t, 5, e.ExampleCount())
	assert.Equal(t, 2, e.Classes())
}

func TestBackprop_TriggersOnMultiplesOfEight(t *testing.T) {
	e, _ := newEngine(t, Options{Method: MethodBackprop})
	bp := e.backend.(*Backprop)

	var passes []int
	for i := 1; i <= 16; i++ {
		s, c := frame(red), labels.Class(1)
		if i%2 == 0 {
			s, c = frame(blue), labels.Class(2)
		}
		if addAndTrain(t, e, s, c) {
			passes = append(passes, i)
		}

		// Repeated evaluation on the same total never retrains.
		again, err := e.Train()
		require.NoError(t, err)
		assert.False(t, again)
	}

	assert.Equal(t, []int{8, 16}, passes)
	assert.Equal(t, 2, bp.Passes())
	assert.Equal(t, 16, e.queue.Len(), "backprop keeps the whole session queued")

	c, err := e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(1), c)
	c, err = e.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(2), c)
}

func TestBackprop_NoPredictionBeforeFirstPass(t *testing.T) {
	e, _ := newEngine(t, Options{Method: MethodBackprop})
	for i := 0; i < 7; i++ {
		assert.False(t, addAndTrain(t, e, frame(red), 1))
	}
	c, err := e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.None, c)
}

func TestClear_PersistsOnlyAfterExamples(t *testing.T) {
	e, store := newEngine(t, Options{Method: MethodImprinting})
	e.SetSession("s1")

	require.NoError(t, e.Clear())
	assert.Equal(t, 0, store.Saves(), "nothing added, nothing saved")

	for i := 0; i < 4; i++ {
		addAndTrain(t, e, frame(red), 2)
	}
	require.NoError(t, e.Clear())
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, 0, e.ExampleCount())
	assert.Equal(t, 0, e.Classes())

	m, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "s1", m.Session)
	assert.Equal(t, MethodImprinting, m.Method)
	assert.Equal(t, map[int]labels.Class{0: 2}, m.Labels)
	assert.Equal(t, []int{4}, m.Counts)

	c, err := e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.None, c)

	require.NoError(t, e.Clear())
	assert.Equal(t, 1, store.Saves(), "second clear has nothing new")
}

func TestClear_ResetsEvenWhenSaveFails(t *testing.T) {
	e, store := newEngine(t, Options{Method: MethodBackprop})
	store.FailWith(errors.New("disk full"))

	require.NoError(t, e.Add(frame(red), 1))
	err := e.Clear()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, e.ExampleCount())
	assert.Equal(t, 0, e.Classes())
}

func TestClear_RestartsLabelAssignment(t *testing.T) {
	e, store := newEngine(t, Options{Method: MethodImprinting})
	for i := 0; i < 4; i++ {
		addAndTrain(t, e, frame(blue), 4)
	}
	require.NoError(t, e.Clear())
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, 0, e.ExampleCount())
	assert.Equal(t, 0, e.Classes())

	c, err := e.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.None, c, "nothing learned since the clear")

	require.NoError(t, e.Add(frame(red), 1))
	got, ok := e.registry.Class(0)
	require.True(t, ok)
	assert.Equal(t, labels.Class(1), got, "first control after a clear gets label 0")
}

func TestRestore(t *testing.T) {
	src, store := newEngine(t, Options{Method: MethodImprinting})
	for i := 0; i < 2; i++ {
		addAndTrain(t, src, frame(red), 1)
		addAndTrain(t, src, frame(blue), 2)
	}
	require.NoError(t, src.Clear())

	ex := embedding.NewMockExtractor()
	dst := NewEngine(NewImprinting(ex, 4), ex, store, nil)
	require.NoError(t, dst.Restore())
	assert.Equal(t, 2, dst.Classes())

	c, err := dst.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.None, c, "no examples added yet")

	require.NoError(t, dst.Add(frame(red), 1))
	c, err = dst.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(2), c)

	bp := NewEngine(NewBackprop(ex, BackpropConfig{}), ex, store, nil)
	assert.ErrorIs(t, bp.Restore(), ErrModelMismatch)
}

// flakyExtractor fails to embed mostly green images.
type flakyExtractor struct {
	*embedding.MockExtractor
}

func (f flakyExtractor) Embed(img image.Image) ([]float64, error) {
	r, g, _, _ := img.At(0, 0).RGBA()
	if g>>8 > 200 && r>>8 < 50 {
		return nil, errors.New("embed failed")
	}
	return f.MockExtractor.Embed(img)
}

func TestImprinting_SkipsImagesThatFailToEmbed(t *testing.T) {
	ex := flakyExtractor{embedding.NewMockExtractor()}
	imp := NewImprinting(ex, 4)
	e := NewEngine(imp, ex, NewMemoryStore(), nil)

	require.NoError(t, e.Add(frame(red), 1))
	require.NoError(t, e.Add(frame(green), 1))
	require.NoError(t, e.Add(frame(blue), 2))
	require.NoError(t, e.Add(frame(red), 1))

	trained, err := e.Train()
	assert.True(t, trained)
	assert.ErrorContains(t, err, "embed failed")

	assert.Equal(t, []int{2, 1}, imp.Export().Counts)

	c, err := e.Classify(frame(red))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(1), c)
	c, err = e.Classify(frame(blue))
	require.NoError(t, err)
	assert.Equal(t, labels.Class(2), c)
}

func TestBackprop_FailedPassWaitsForNextMultiple(t *testing.T) {
	ex := flakyExtractor{embedding.NewMockExtractor()}
	e := NewEngine(NewBackprop(ex, BackpropConfig{}), ex, NewMemoryStore(), nil)

	for i := 0; i < 7; i++ {
		assert.False(t, addAndTrain(t, e, frame(red), 1))
	}
	require.NoError(t, e.Add(frame(green), 2))
	trained, err := e.Train()
	assert.True(t, trained)
	require.Error(t, err)

	calls := ex.Calls()
	again, err := e.Train()
	require.NoError(t, err)
	assert.False(t, again, "no retry until the next multiple")
	assert.Equal(t, calls, ex.Calls())
}

func TestAdd_RejectsNone(t *testing.T) {
	e, _ := newEngine(t, Options{Method: MethodImprinting})
	assert.Error(t, e.Add(frame(red), labels.None))
	assert.ErrorIs(t, e.Add(embedding.NewSample(nil), 1), embedding.ErrEmptyImage)
	assert.Equal(t, 0, e.ExampleCount())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "out.json")
	s := NewFileStore(path)

	m, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, m)

	want := &Model{
		Method:  MethodBackprop,
		Labels:  map[int]labels.Class{0: 3, 1: 1},
		Weights: [][]float64{{0.5, -0.5}},
		Bias:    []float64{0.1, -0.1},
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Equal(t, want.Weights, got.Weights)
	assert.Equal(t, want.Bias, got.Bias)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSoftmax_SeparatesClasses(t *testing.T) {
	x := mat.NewDense(6, 2, []float64{
		1, 0,
		0.9, 0.1,
		0, 1,
		0.1, 0.9,
		-1, 0,
		-0.9, -0.1,
	})
	y := []int{0, 0, 1, 1, 2, 2}

	sm, err := TrainSoftmax(x, y, 3, SGDParams{LearningRate: 0.5, Iterations: 200, Reg: 1e-4})
	require.NoError(t, err)

	assert.Equal(t, 0, sm.Predict([]float64{1, 0}))
	assert.Equal(t, 1, sm.Predict([]float64{0, 1}))
	assert.Equal(t, 2, sm.Predict([]float64{-1, 0}))

	p := sm.Probabilities([]float64{0, 1})
	assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-9)
}

func TestSoftmax_RejectsBadLabels(t *testing.T) {
	x := mat.NewDense(1, 2, []float64{1, 0})
	_, err := TrainSoftmax(x, []int{3}, 2, SGDParams{Iterations: 1})
	assert.Error(t, err)
	_, err = TrainSoftmax(x, []int{0, 1}, 2, SGDParams{Iterations: 1})
	assert.Error(t, err)
}
