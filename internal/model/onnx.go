package model

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrRuntimeUnavailable is returned when the ONNX Runtime library cannot be found.
var ErrRuntimeUnavailable = errors.New("onnx runtime library not found")

// ONNX runtime global initialization
var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

// onnxSearchPaths are checked when no library path is configured.
var onnxSearchPaths = []string{
	"./libonnxruntime.so",
	"./libonnxruntime.dylib",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
}

func initONNXRuntime(libPath string) error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	if libPath == "" {
		for _, path := range onnxSearchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}
	if libPath == "" {
		return ErrRuntimeUnavailable
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}

	onnxInitialized = true
	return nil
}

// ONNX runs a classifier graph with ONNX Runtime. The graph takes a single
// float32 tensor of shape [1, n] and yields a single [1, labels] tensor.
type ONNX struct {
	session *ort.DynamicAdvancedSession
	labels  []string

	mu     sync.Mutex
	closed bool
}

// NewONNX creates a session for the graph at path.
func NewONNX(path string, cfg Config) (*ONNX, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	if err := initONNXRuntime(cfg.ONNXLibrary); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	input, output := cfg.ONNXInput, cfg.ONNXOutput
	if input == "" {
		input = "input"
	}
	if output == "" {
		output = "output"
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{input}, []string{output}, options)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNX{
		session: session,
		labels:  DefaultLabels(),
	}, nil
}

// Labels returns the output labels.
func (m *ONNX) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Predict runs inference for one feature vector.
func (m *ONNX) Predict(input []float64) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	data := make([]float32, len(input))
	for i, v := range input {
		data[i] = float32(v)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(data))), data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: output is not a float32 tensor", ErrInvalidArtifact)
	}

	raw := outputTensor.GetData()
	scores := make([]float64, len(raw))
	for i, v := range raw {
		scores[i] = float64(v)
	}
	return scores, nil
}

// Close destroys the session.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.session.Destroy()
}
