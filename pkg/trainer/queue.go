package trainer

import (
	"image"
	"sort"
)

// Queue holds resized example images per internal label until a training
// pass consumes them.
type Queue struct {
	images map[int][]*image.RGBA
	total  int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{images: make(map[int][]*image.RGBA)}
}

// Push appends img under label.
func (q *Queue) Push(label int, img *image.RGBA) {
	q.images[label] = append(q.images[label], img)
	q.total++
}

// Len returns the number of queued images across all labels.
func (q *Queue) Len() int { return q.total }

// Labels returns the labels with queued images, ascending.
func (q *Queue) Labels() []int {
	out := make([]int, 0, len(q.images))
	for l, imgs := range q.images {
		if len(imgs) > 0 {
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// Images returns the images queued under label.
func (q *Queue) Images(label int) []*image.RGBA {
	return q.images[label]
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.images = make(map[int][]*image.RGBA)
	q.total = 0
}
