package trainer

import (
	"fmt"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"gonum.org/v1/gonum/floats"
)

// DefaultBatchSize is the number of queued examples that triggers imprinting.
const DefaultBatchSize = 4

// Imprinting learns one prototype per label: the re-normalized mean of the
// normalized embeddings of every image imprinted for that label.
type Imprinting struct {
	BatchSize int

	extractor embedding.Extractor
	sums      [][]float64 // per label sum of normalized embeddings
	counts    []int
	protos    [][]float64
}

// NewImprinting creates an imprinting backend. batch < 1 uses DefaultBatchSize.
func NewImprinting(ex embedding.Extractor, batch int) *Imprinting {
	if batch < 1 {
		batch = DefaultBatchSize
	}
	return &Imprinting{BatchSize: batch, extractor: ex}
}

func (p *Imprinting) Name() string { return MethodImprinting }

func (p *Imprinting) ShouldTrain(queued, _ int) bool {
	return queued >= p.BatchSize
}

func (p *Imprinting) DrainsQueue() bool { return true }

// Train imprints each label's queued images as one batch. An image that
// fails to embed is skipped; the rest of the batch is still imprinted and
// the first failure is returned.
func (p *Imprinting) Train(q *Queue, _ TrainState) error {
	var first error
	for _, label := range q.Labels() {
		added := false
		for _, img := range q.Images(label) {
			v, err := p.extractor.Embed(img)
			if err != nil {
				if first == nil {
					first = fmt.Errorf("imprint label %d: %w", label, err)
				}
				continue
			}
			p.add(label, embedding.Normalize(v))
			added = true
		}
		if added {
			p.protos[label] = embedding.Normalize(p.sums[label])
		}
	}
	return first
}

func (p *Imprinting) add(label int, v []float64) {
	for len(p.sums) <= label {
		p.sums = append(p.sums, nil)
		p.counts = append(p.counts, 0)
		p.protos = append(p.protos, nil)
	}
	if p.sums[label] == nil {
		p.sums[label] = make([]float64, len(v))
	}
	floats.Add(p.sums[label], v)
	p.counts[label]++
}

// Predict returns the label whose prototype is most similar to the frame.
func (p *Imprinting) Predict(s *embedding.Sample) (int, bool, error) {
	if p.classes() == 0 {
		return 0, false, nil
	}
	v, err := s.Embedding(p.extractor)
	if err != nil {
		return 0, false, err
	}
	q := embedding.Normalize(v)

	best, bestSim, found := 0, 0.0, false
	for label, proto := range p.protos {
		if proto == nil || len(proto) != len(q) {
			continue
		}
		sim := floats.Dot(proto, q)
		if !found || sim > bestSim {
			best, bestSim, found = label, sim, true
		}
	}
	return best, found, nil
}

func (p *Imprinting) classes() int {
	n := 0
	for _, proto := range p.protos {
		if proto != nil {
			n++
		}
	}
	return n
}

func (p *Imprinting) Reset() {
	p.sums, p.counts, p.protos = nil, nil, nil
}

func (p *Imprinting) Export() Model {
	m := Model{Method: MethodImprinting, Counts: append([]int(nil), p.counts...)}
	for _, proto := range p.protos {
		m.Weights = append(m.Weights, append([]float64(nil), proto...))
	}
	return m
}

// Import restores prototypes. Running sums are rebuilt from the prototype
// direction scaled by its count, so later imprinting keeps averaging.
func (p *Imprinting) Import(m Model) error {
	if m.Method != MethodImprinting || len(m.Counts) != len(m.Weights) {
		return ErrModelMismatch
	}
	p.Reset()
	for label, w := range m.Weights {
		p.sums = append(p.sums, nil)
		p.counts = append(p.counts, m.Counts[label])
		p.protos = append(p.protos, nil)
		if len(w) == 0 {
			continue
		}
		p.protos[label] = embedding.Normalize(w)
		p.sums[label] = make([]float64, len(w))
		floats.ScaleTo(p.sums[label], float64(m.Counts[label]), p.protos[label])
	}
	return nil
}

var _ Backend = (*Imprinting)(nil)
