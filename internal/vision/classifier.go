package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Model input frame. The cocoa pod model was trained on 250x250 RGB
// images with pixel values scaled to [0,1].
const (
	width  = 250
	height = 250
)

// ErrDecodeImage marks input-format failures, as opposed to failures of
// the model run itself.
var ErrDecodeImage = errors.New("decode image")

// Prediction is the model's answer for one image: the highest-scoring
// class and its probability in [0,1].
type Prediction struct {
	ClassIndex  int     `json:"class_index"`
	Probability float32 `json:"probability"`
}

// Classifier runs the cocoa pod ONNX model. The session is loaded once
// and serialized behind a mutex; concurrent callers queue on Run.
type Classifier struct {
	mu sync.Mutex

	modelPath string
	libPath   string

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	inited  bool
}

// NewClassifier creates a classifier that lazily loads the ONNX model on
// first use.
func NewClassifier(modelPath, onnxLibPath string) *Classifier {
	return &Classifier{
		modelPath: modelPath,
		libPath:   onnxLibPath,
	}
}

// initOnce loads the ONNX shared library, environment, and session.
func (c *Classifier) initOnce() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inited {
		return nil
	}

	if c.libPath != "" {
		ort.SetSharedLibraryPath(c.libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx init environment: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(c.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputs[0].Dimensions)
	if err != nil {
		return fmt.Errorf("onnx new input tensor: %w", err)
	}
	c.input = inputTensor

	outputTensor, err := ort.NewEmptyTensor[float32](outputs[0].Dimensions)
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}
	c.output = outputTensor

	inputNames := make([]string, len(inputs))
	for i := range inputs {
		inputNames[i] = inputs[i].Name
	}
	outputNames := make([]string, len(outputs))
	for i := range outputs {
		outputNames[i] = outputs[i].Name
	}

	session, err := ort.NewAdvancedSession(c.modelPath, inputNames, outputNames,
		[]ort.Value{c.input}, []ort.Value{c.output}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}
	c.session = session
	c.inited = true
	return nil
}

// Ready reports whether the model has been loaded.
func (c *Classifier) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inited
}

// Classify decodes the image, preprocesses it to the model frame, runs
// inference, and returns the argmax class with its probability.
func (c *Classifier) Classify(imageData []byte) (Prediction, error) {
	if err := c.initOnce(); err != nil {
		return Prediction{}, err
	}

	img, err := decodeImage(imageData)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	inputData := preprocess(img)

	c.mu.Lock()
	inData := c.input.GetData()
	if len(inData) < len(inputData) {
		c.mu.Unlock()
		return Prediction{}, fmt.Errorf("input tensor size %d < preprocessed %d", len(inData), len(inputData))
	}
	copy(inData, inputData)
	err = c.session.Run()
	if err != nil {
		c.mu.Unlock()
		return Prediction{}, fmt.Errorf("onnx run: %w", err)
	}
	scores := make([]float32, len(c.output.GetData()))
	copy(scores, c.output.GetData())
	c.mu.Unlock()

	if len(scores) == 0 {
		return Prediction{}, fmt.Errorf("onnx run produced no output")
	}

	idx, prob := argmaxProbability(scores)
	return Prediction{ClassIndex: idx, Probability: prob}, nil
}

// decodeImage handles every format the upload store admits; the blank
// imports register the JPEG, PNG, GIF, and WebP decoders.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// preprocess resizes img to 250x250, converts to RGB, NCHW layout,
// float32 scaled to [0,1].
func preprocess(img image.Image) []float32 {
	bounds := img.Bounds()

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	// NCHW: [1, 3, 250, 250]
	out := make([]float32, 1*3*height*width)
	const size = width * height

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			c := dst.RGBAAt(x, y)
			out[0*size+idx] = float32(c.R) / 255.0
			out[1*size+idx] = float32(c.G) / 255.0
			out[2*size+idx] = float32(c.B) / 255.0
		}
	}
	return out
}

// argmaxProbability picks the highest-scoring class. When the outputs
// are logits rather than a probability distribution, softmax is applied
// so the returned value is always in [0,1]. Softmax is monotonic, so the
// chosen class is the same either way.
func argmaxProbability(scores []float32) (int, float32) {
	maxIdx := 0
	for i, s := range scores {
		if s > scores[maxIdx] {
			maxIdx = i
		}
	}

	if isProbabilityDistribution(scores) {
		return maxIdx, clamp01(scores[maxIdx])
	}
	return maxIdx, softmaxAt(scores, maxIdx)
}

func isProbabilityDistribution(scores []float32) bool {
	var sum float64
	for _, s := range scores {
		if s < 0 || s > 1 {
			return false
		}
		sum += float64(s)
	}
	return math.Abs(sum-1.0) < 1e-3
}

func softmaxAt(scores []float32, idx int) float32 {
	// Shift by the max for numerical stability.
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var denom float64
	for _, s := range scores {
		denom += math.Exp(float64(s - maxScore))
	}
	return clamp01(float32(math.Exp(float64(scores[idx]-maxScore)) / denom))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
