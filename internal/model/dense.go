package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// DenseFormat identifies dense network artifacts.
const DenseFormat = "airtype-dense"

// DenseVersion is the artifact version this package reads.
const DenseVersion = 1

// Activation names.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
	ActivationSoftmax = "softmax"
)

// Artifact is the JSON layout of a dense network:
//
//	{
//	  "format": "airtype-dense",
//	  "version": 1,
//	  "inputs": 68,
//	  "labels": ["A", ..., "Z"],
//	  "layers": [{"activation": "relu", "weights": [[...]], "bias": [...]}, ...]
//	}
//
// Weights of each layer are stored row-major as outputs x inputs.
type Artifact struct {
	Format  string          `json:"format"`
	Version int             `json:"version"`
	Inputs  int             `json:"inputs"`
	Labels  []string        `json:"labels,omitempty"`
	Layers  []LayerArtifact `json:"layers"`
}

// LayerArtifact is one fully connected layer.
type LayerArtifact struct {
	Activation string      `json:"activation"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
}

type denseLayer struct {
	weights    *mat.Dense
	bias       *mat.VecDense
	activation string
}

// Dense is a feed-forward network of fully connected layers.
type Dense struct {
	inputs int
	labels []string
	layers []denseLayer

	mu     sync.RWMutex
	closed bool
}

// DecodeDense reads a JSON artifact and builds the network.
func DecodeDense(r io.Reader) (*Dense, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return NewDense(a)
}

// NewDense validates the artifact and builds the network.
func NewDense(a Artifact) (*Dense, error) {
	if a.Format != DenseFormat {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidArtifact, a.Format)
	}
	if a.Version != DenseVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArtifact, a.Version)
	}
	if a.Inputs <= 0 {
		return nil, fmt.Errorf("%w: inputs must be positive", ErrInvalidArtifact)
	}
	if len(a.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidArtifact)
	}

	d := &Dense{inputs: a.Inputs}

	width := a.Inputs
	for i, l := range a.Layers {
		rows := len(l.Weights)
		if rows == 0 || rows != len(l.Bias) {
			return nil, fmt.Errorf("%w: layer %d has %d weight rows and %d biases", ErrInvalidArtifact, i, rows, len(l.Bias))
		}

		data := make([]float64, 0, rows*width)
		for j, row := range l.Weights {
			if len(row) != width {
				return nil, fmt.Errorf("%w: layer %d row %d has %d weights, expected %d", ErrInvalidArtifact, i, j, len(row), width)
			}
			data = append(data, row...)
		}

		activation := l.Activation
		if activation == "" {
			activation = ActivationLinear
		}
		switch activation {
		case ActivationLinear, ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationSoftmax:
		default:
			return nil, fmt.Errorf("%w: layer %d has unknown activation %q", ErrInvalidArtifact, i, activation)
		}

		d.layers = append(d.layers, denseLayer{
			weights:    mat.NewDense(rows, width, data),
			bias:       mat.NewVecDense(rows, append([]float64(nil), l.Bias...)),
			activation: activation,
		})
		width = rows
	}

	d.labels = a.Labels
	if len(d.labels) == 0 {
		d.labels = DefaultLabels()
	}
	if len(d.labels) != width {
		return nil, fmt.Errorf("%w: %d labels for %d outputs", ErrInvalidArtifact, len(d.labels), width)
	}

	return d, nil
}

// Labels returns the output labels.
func (d *Dense) Labels() []string {
	return append([]string(nil), d.labels...)
}

// Inputs returns the expected feature vector length.
func (d *Dense) Inputs() int {
	return d.inputs
}

// Predict runs the forward pass.
func (d *Dense) Predict(input []float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	if len(input) != d.inputs {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrInputSize, len(input), d.inputs)
	}

	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for _, l := range d.layers {
		r, _ := l.weights.Dims()
		y := mat.NewVecDense(r, nil)
		y.MulVec(l.weights, x)
		y.AddVec(y, l.bias)
		activate(l.activation, y.RawVector().Data)
		x = y
	}

	return append([]float64(nil), x.RawVector().Data...), nil
}

// Close marks the model closed.
func (d *Dense) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func activate(name string, v []float64) {
	switch name {
	case ActivationReLU:
		for i := range v {
			if v[i] < 0 {
				v[i] = 0
			}
		}
	case ActivationSigmoid:
		for i := range v {
			v[i] = 1.0 / (1.0 + math.Exp(-v[i]))
		}
	case ActivationTanh:
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	case ActivationSoftmax:
		softmax(v)
	}
}

// softmax normalizes v in place. The maximum is subtracted first so large
// logits do not overflow.
func softmax(v []float64) {
	if len(v) == 0 {
		return
	}
	peak := v[0]
	for _, x := range v[1:] {
		if x > peak {
			peak = x
		}
	}
	var sum float64
	for i := range v {
		v[i] = math.Exp(v[i] - peak)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
