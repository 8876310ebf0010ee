// Package model loads and runs the learned letter classifier.
//
// A Model is an opaque handle that maps a feature vector to one score per
// label. Two artifact formats are supported: a dense network serialized as
// JSON and evaluated with gonum, and an ONNX graph run through ONNX Runtime.
package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidArtifact is returned when a model artifact cannot be decoded.
	ErrInvalidArtifact = errors.New("invalid model artifact")
	// ErrInputSize is returned when a feature vector does not match the model input.
	ErrInputSize = errors.New("input size mismatch")
	// ErrClosed is returned when predicting with a closed model.
	ErrClosed = errors.New("model is closed")
)

// Letters are the labels of the reference model, in output order.
const Letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Model is a loaded multi-class classifier.
type Model interface {
	// Labels returns the label of each output score, in order.
	Labels() []string

	// Predict returns one score per label for the given feature vector.
	Predict(input []float64) ([]float64, error)

	// Close releases any resources held by the model.
	Close() error
}

// DefaultLabels returns the 26 uppercase letters.
func DefaultLabels() []string {
	labels := make([]string, len(Letters))
	for i, r := range Letters {
		labels[i] = string(r)
	}
	return labels
}

// Open loads the model artifact at uri. Paths ending in ".onnx" are run with
// ONNX Runtime; other paths and http(s) URLs are decoded as dense networks.
func Open(ctx context.Context, uri string, cfg Config) (Model, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("%w: empty model location", ErrInvalidArtifact)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return fetchDense(ctx, uri)
	case strings.EqualFold(filepath.Ext(uri), ".onnx"):
		m, err := NewONNX(uri, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := DecodeDense(f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func fetchDense(ctx context.Context, url string) (Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch model: unexpected status %d", resp.StatusCode)
	}

	m, err := DecodeDense(resp.Body)
	if err != nil {
		return nil, err
	}
	return m, nil
}
