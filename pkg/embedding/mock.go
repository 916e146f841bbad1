package embedding

import (
	"image"
	"sync/atomic"
)

// MockExtractor is a deterministic extractor for tests and camera-less demos.
// It resizes the image to its input size, splits it into a Grid x Grid mosaic
// and emits the mean red, green and blue of every cell (Grid*Grid*3 values).
type MockExtractor struct {
	Width  int
	Height int
	Grid   int

	calls atomic.Int64
}

// NewMockExtractor returns a 2x2-grid extractor with a 32x32 input.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{Width: 32, Height: 32, Grid: 2}
}

// InputSize returns the configured input size.
func (m *MockExtractor) InputSize() (int, int) {
	return m.Width, m.Height
}

// Embed returns per-cell mean colors in [0, 1].
func (m *MockExtractor) Embed(img image.Image) ([]float64, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	m.calls.Add(1)

	grid := m.Grid
	if grid < 1 {
		grid = 1
	}
	rgba := Resize(img, m.Width, m.Height)
	out := make([]float64, grid*grid*3)
	counts := make([]float64, grid*grid)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			cell := (y*grid/m.Height)*grid + x*grid/m.Width
			off := rgba.PixOffset(x, y)
			out[cell*3] += float64(rgba.Pix[off])
			out[cell*3+1] += float64(rgba.Pix[off+1])
			out[cell*3+2] += float64(rgba.Pix[off+2])
			counts[cell]++
		}
	}
	for cell, n := range counts {
		if n == 0 {
			continue
		}
		for ch := 0; ch < 3; ch++ {
			out[cell*3+ch] /= n * 255
		}
	}
	return out, nil
}

// Calls returns how many images were embedded.
func (m *MockExtractor) Calls() int {
	return int(m.calls.Load())
}

// Close is a no-op.
func (m *MockExtractor) Close() error {
	return nil
}

// Ensure MockExtractor implements Extractor.
var _ Extractor = (*MockExtractor)(nil)
