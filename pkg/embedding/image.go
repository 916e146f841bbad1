package embedding

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img to width x height with nearest-neighbour sampling and
// returns it as RGBA, the pixel format every model input is built from.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if img == nil {
		return dst
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Sample is one captured frame. Its embedding is computed at most once so the
// classifier and an add-example press in the same frame share the work.
type Sample struct {
	Image image.Image

	embedding []float64
	err       error
	done      bool
}

// NewSample wraps a captured frame.
func NewSample(img image.Image) *Sample {
	return &Sample{Image: img}
}

// Embedding returns the frame's embedding, computing it with ex on first use.
func (s *Sample) Embedding(ex Extractor) ([]float64, error) {
	if s.done {
		return s.embedding, s.err
	}
	s.done = true
	if s.Image == nil || s.Image.Bounds().Empty() {
		s.err = ErrEmptyImage
		return nil, s.err
	}
	s.embedding, s.err = ex.Embed(s.Image)
	return s.embedding, s.err
}
