package knn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	labelA = 0
	labelB = 1
)

func TestQuery_EmptyStore(t *testing.T) {
	s := New(3)
	_, ok, err := s.Query([]float64{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBalancedBlocks(t *testing.T) {
	s := New(3)

	a := [][]float64{{1, 0, 0}, {0.9, 0.1, 0}}
	for _, v := range a {
		require.NoError(t, s.AddEmbedding(v, labelA))
	}
	for _, v := range [][]float64{{0, 1, 0}, {0, 0.9, 0.1}, {0.1, 1, 0}, {0, 1, 0.2}, {0, 0.8, 0}} {
		require.NoError(t, s.AddEmbedding(v, labelB))
	}

	assert.Equal(t, 3, s.BlockRows(labelA))
	assert.Equal(t, 5, s.BlockRows(labelB))
	assert.Equal(t, 2, s.LabelCount(labelA))
	assert.Equal(t, 5, s.LabelCount(labelB))
	assert.Equal(t, 7, s.ExampleCount())

	label, ok, err := s.Query(a[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, labelA, label)
}

func TestBlocksNeverBelowK(t *testing.T) {
	s := New(4)
	vecs := [][]float64{{1, 0}, {0, 1}, {1, 1}, {1, -1}, {-1, 0}, {0.5, 0.2}}
	counts := map[int]int{}

	for i, v := range vecs {
		label := i % 3
		require.NoError(t, s.AddEmbedding(v, label))
		counts[label]++

		for l, n := range counts {
			assert.GreaterOrEqual(t, s.BlockRows(l), s.K())
			assert.Equal(t, n, s.LabelCount(l))
		}
	}
	assert.Equal(t, len(vecs), s.ExampleCount())
}

func TestQuery_ExactMatch(t *testing.T) {
	s := New(1)
	vecs := [][]float64{{3, 0, 0}, {0, 2, 0}, {0, 0, 5}}
	for i, v := range vecs {
		require.NoError(t, s.AddEmbedding(v, i))
	}

	for i, v := range vecs {
		label, ok, err := s.Query(v)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, label)
	}
}

func TestQuery_SingleExampleUsesPadding(t *testing.T) {
	s := New(3)
	require.NoError(t, s.AddEmbedding([]float64{1, 0}, labelA))
	require.NoError(t, s.AddEmbedding([]float64{0, 1}, labelB))

	// Both blocks are padded to 3 rows; the query is closer to A.
	label, ok, err := s.Query([]float64{0.8, 0.2})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, labelA, label)
}

func TestQuery_TieGoesToClosestNeighbour(t *testing.T) {
	s := New(2)
	require.NoError(t, s.AddEmbedding([]float64{1, 0}, labelA))
	require.NoError(t, s.AddEmbedding([]float64{0, 1}, labelA))
	require.NoError(t, s.AddEmbedding([]float64{0.6, 0.8}, labelB))
	require.NoError(t, s.AddEmbedding([]float64{1, 0.1}, labelB))

	// k=2 neighbours of (0.9, 0.4): B(1,0.1) then A(1,0); tie, B is closer.
	label, ok, err := s.Query([]float64{0.9, 0.4})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, labelB, label)
}

func TestDimensionMismatch(t *testing.T) {
	s := New(3)
	require.NoError(t, s.AddEmbedding([]float64{1, 0, 0}, labelA))

	assert.ErrorIs(t, s.AddEmbedding([]float64{1, 0}, labelA), ErrDimension)
	_, _, err := s.Query([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
	assert.ErrorIs(t, s.AddEmbedding(nil, labelA), ErrDimension)
}

func TestClear(t *testing.T) {
	s := New(3)
	require.NoError(t, s.AddEmbedding([]float64{1, 0}, labelA))
	s.Clear()

	assert.Equal(t, 0, s.ExampleCount())
	assert.Empty(t, s.Labels())
	_, ok, err := s.Query([]float64{1, 0})
	require.NoError(t, err)
	assert.False(t, ok)

	// A new dimension is accepted after clear.
	require.NoError(t, s.AddEmbedding([]float64{1, 0, 0}, labelB))
	assert.Equal(t, []int{labelB}, s.Labels())
}

func TestReflectIndex(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{0, 0, 0, 0}},
		{2, []int{0, 1, 0, 1, 0}},
		{3, []int{0, 1, 2, 1, 0, 1, 2}},
	}
	for _, tt := range tests {
		got := make([]int, len(tt.want))
		for i := range got {
			got[i] = reflectIndex(i, tt.n)
		}
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
}
