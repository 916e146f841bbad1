// Package knn implements a class-balanced k-nearest-neighbour store over
// L2-normalized embeddings.
//
// Every label owns a block of at least k rows. Labels with fewer than k
// genuine examples are padded by reflecting their existing rows, so a class
// taught with a single example still contributes k neighbours to each vote.
package knn

import (
	"errors"
	"fmt"
	"sort"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"gonum.org/v1/gonum/mat"
)

// DefaultK is the neighbour count used when none is configured.
const DefaultK = 3

// ErrDimension is returned when a vector's length differs from the stored one.
var ErrDimension = errors.New("knn: embedding dimension mismatch")

// Store holds normalized examples per label and the flattened comparison
// matrix built from the padded blocks. It is not safe for concurrent use.
type Store struct {
	k   int
	dim int

	order    []int               // labels in first-seen order
	examples map[int][][]float64 // genuine normalized examples per label
	count    int

	matrix    *mat.Dense  // one row per block row, all labels stacked
	rowLabels []int       // label of each matrix row
	blockRows map[int]int // rows per label block, padding included
}

// New creates an empty store. k < 1 falls back to DefaultK.
func New(k int) *Store {
	if k < 1 {
		k = DefaultK
	}
	return &Store{
		k:         k,
		examples:  make(map[int][][]float64),
		blockRows: make(map[int]int),
	}
}

// K returns the configured neighbour count.
func (s *Store) K() int { return s.k }

// AddEmbedding normalizes v, stores it under label and rebuilds the blocks.
func (s *Store) AddEmbedding(v []float64, label int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimension)
	}
	if s.dim != 0 && len(v) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), s.dim)
	}
	s.dim = len(v)

	if _, ok := s.examples[label]; !ok {
		s.order = append(s.order, label)
	}
	s.examples[label] = append(s.examples[label], embedding.Normalize(v))
	s.count++
	s.rebuild()
	return nil
}

// rebuild re-pads every block and stacks them into the comparison matrix.
func (s *Store) rebuild() {
	total := 0
	for _, label := range s.order {
		n := len(s.examples[label])
		if n < s.k {
			n = s.k
		}
		s.blockRows[label] = n
		total += n
	}

	data := make([]float64, 0, total*s.dim)
	s.rowLabels = s.rowLabels[:0]
	for _, label := range s.order {
		ex := s.examples[label]
		for i := 0; i < s.blockRows[label]; i++ {
			data = append(data, ex[reflectIndex(i, len(ex))]...)
			s.rowLabels = append(s.rowLabels, label)
		}
	}
	s.matrix = mat.NewDense(total, s.dim, data)
}

// reflectIndex maps row i of a padded block onto the n genuine rows using
// mirror padding without edge repetition: 0,1,..,n-1,n-2,..,1,0,1,..
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * (n - 1)
	j := i % period
	if j >= n {
		j = period - j
	}
	return j
}

type neighbour struct {
	row int
	sim float64
}

// Query returns the majority label among the k most similar rows.
// ok is false when the store is empty.
func (s *Store) Query(v []float64) (label int, ok bool, err error) {
	if s.matrix == nil {
		return 0, false, nil
	}
	if len(v) != s.dim {
		return 0, false, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), s.dim)
	}

	rows, _ := s.matrix.Dims()
	sims := mat.NewVecDense(rows, nil)
	sims.MulVec(s.matrix, mat.NewVecDense(s.dim, embedding.Normalize(v)))

	nn := make([]neighbour, rows)
	for i := range nn {
		nn[i] = neighbour{row: i, sim: sims.AtVec(i)}
	}
	sort.SliceStable(nn, func(a, b int) bool { return nn[a].sim > nn[b].sim })

	k := s.k
	if k > rows {
		k = rows
	}

	// Count votes in similarity order; on a tie the label reached first
	// (the closer neighbour) wins.
	votes := make(map[int]int, len(s.order))
	best, bestVotes := 0, 0
	var seen []int
	for _, n := range nn[:k] {
		l := s.rowLabels[n.row]
		if _, ok := votes[l]; !ok {
			seen = append(seen, l)
		}
		votes[l]++
	}
	for _, l := range seen {
		if votes[l] > bestVotes {
			best, bestVotes = l, votes[l]
		}
	}
	return best, true, nil
}

// Clear discards every example and block.
func (s *Store) Clear() {
	s.order = nil
	s.examples = make(map[int][][]float64)
	s.blockRows = make(map[int]int)
	s.rowLabels = nil
	s.matrix = nil
	s.count = 0
	s.dim = 0
}

// ExampleCount returns the number of genuine (non-padded) examples.
func (s *Store) ExampleCount() int { return s.count }

// LabelCount returns the number of genuine examples stored for label.
func (s *Store) LabelCount(label int) int { return len(s.examples[label]) }

// BlockRows returns the padded row count of label's block.
func (s *Store) BlockRows(label int) int { return s.blockRows[label] }

// Labels returns the stored labels in first-seen order.
func (s *Store) Labels() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
