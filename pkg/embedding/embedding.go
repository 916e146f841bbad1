// Package embedding defines the feature extractor contract and the vector
// helpers shared by the k-NN store and the trainers.
//
// An Extractor maps an image to a fixed-length vector. The gocv-backed
// implementation lives in the dnn subpackage so that the learning code can be
// built and tested without OpenCV.
package embedding

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
)

// normEpsilon keeps normalization finite for all-zero vectors.
const normEpsilon = 1e-12

// ErrOutputArity is returned when a model does not expose exactly one output.
var ErrOutputArity = errors.New("embedding: model must have exactly one output")

// ErrEmptyImage is returned when asked to embed a nil or zero-sized image.
var ErrEmptyImage = errors.New("embedding: empty image")

// OutputArityError reports how many outputs the rejected model has.
type OutputArityError struct {
	Outputs int
}

func (e *OutputArityError) Error() string {
	return fmt.Sprintf("embedding: model must have 1 output (embedding), has %d", e.Outputs)
}

// Unwrap lets errors.Is match ErrOutputArity.
func (e *OutputArityError) Unwrap() error { return ErrOutputArity }

// CheckOutputs validates the output count of a freshly loaded model.
func CheckOutputs(n int) error {
	if n != 1 {
		return &OutputArityError{Outputs: n}
	}
	return nil
}

// Extractor turns images into embeddings.
type Extractor interface {
	// InputSize returns the (width, height) the model expects.
	InputSize() (width, height int)

	// Embed returns the raw (not normalized) embedding of img.
	Embed(img image.Image) ([]float64, error)

	// Close releases the model.
	Close() error
}

// Normalize returns an L2-normalized copy of v.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/(floats.Norm(out, 2)+normEpsilon), out)
	return out
}

// Quantization describes a fixed-point output tensor: real = Scale * (q - ZeroPoint).
type Quantization struct {
	Scale     float64
	ZeroPoint int
}

// Enabled reports whether the parameters describe an actual quantized tensor.
func (q Quantization) Enabled() bool {
	return q.Scale > 0
}

// Dequantize converts raw uint8 output to real values. When q is not enabled
// the raw values are passed through unchanged.
func Dequantize(raw []uint8, q Quantization) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		if q.Enabled() {
			out[i] = q.Scale * float64(int(v)-q.ZeroPoint)
		} else {
			out[i] = float64(v)
		}
	}
	return out
}
