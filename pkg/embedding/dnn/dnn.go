// Package dnn extracts embeddings with OpenCV's DNN module.
//
// The model is a headless classifier ("embedding extractor"): its single
// output is the penultimate feature layer. ONNX, TensorFlow and TFLite files
// are accepted, whatever gocv.ReadNet understands.
package dnn

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-teachable/pkg/embedding"
	"gocv.io/x/gocv"
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("dnn: model file not found")

// Config holds extractor configuration.
type Config struct {
	ModelPath   string  // Path to the embedding model
	InputWidth  int     // Model input width
	InputHeight int     // Model input height
	Scale       float64 // Pixel scale applied by BlobFromImage
	Mean        [3]float64
	SwapRB      bool // Feed RGB instead of OpenCV's BGR

	// Quantization of a uint8 output tensor. Ignored for float outputs.
	Quantization embedding.Quantization
}

// DefaultConfig returns defaults for a 224x224 MobileNet embedding extractor.
func DefaultConfig() Config {
	return Config{
		ModelPath:   "models/mobilenet_v1_1.0_224_quant_embedding_extractor.tflite",
		InputWidth:  224,
		InputHeight: 224,
		Scale:       1.0 / 255.0,
		SwapRB:      true,
	}
}

// Extractor runs the embedding model on CPU.
type Extractor struct {
	net gocv.Net
	cfg Config
	mu  sync.Mutex // Protects inference
}

// New loads the model and checks that it has exactly one output.
func New(cfg Config) (*Extractor, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid model input size %dx%d", cfg.InputWidth, cfg.InputHeight)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load embedding model from %s", cfg.ModelPath)
	}

	if err := embedding.CheckOutputs(len(net.GetUnconnectedOutLayers())); err != nil {
		net.Close()
		return nil, err
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Extractor{net: net, cfg: cfg}, nil
}

// InputSize returns the configured model input size.
func (e *Extractor) InputSize() (int, int) {
	return e.cfg.InputWidth, e.cfg.InputHeight
}

// Embed resizes img to the model input and returns the output vector.
func (e *Extractor) Embed(img image.Image) ([]float64, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, embedding.ErrEmptyImage
	}

	resized := embedding.Resize(img, e.cfg.InputWidth, e.cfg.InputHeight)
	mat, err := gocv.ImageToMatRGB(resized)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.cfg.Mean
	blob := gocv.BlobFromImage(mat, e.cfg.Scale, image.Pt(e.cfg.InputWidth, e.cfg.InputHeight),
		gocv.NewScalar(m[0], m[1], m[2], 0), e.cfg.SwapRB, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("empty model output")
	}
	return e.readOutput(out)
}

// readOutput copies the output tensor out of OpenCV memory, dequantizing
// fixed-point outputs.
func (e *Extractor) readOutput(out gocv.Mat) ([]float64, error) {
	if out.Type() == gocv.MatTypeCV8U {
		data, err := out.DataPtrUint8()
		if err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
		return embedding.Dequantize(data, e.cfg.Quantization), nil
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	vec := make([]float64, len(data))
	for i, v := range data {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Close releases the network.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}

// Ensure Extractor implements embedding.Extractor.
var _ embedding.Extractor = (*Extractor)(nil)
