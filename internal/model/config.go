package model

import "time"

// Config holds model loading options.
type Config struct {
	// Path is the model artifact location: a file path or an http(s) URL.
	// An empty path disables the learned model.
	Path string `envconfig:"AIRTYPE_MODEL_PATH"`

	// RetryAfter is how long a failed load waits before another attempt.
	// Zero retries on every trigger, a negative value never retries.
	RetryAfter time.Duration `envconfig:"AIRTYPE_MODEL_RETRY_AFTER" default:"30s"`

	// ONNXInput and ONNXOutput name the graph tensors of an ONNX artifact.
	ONNXInput  string `envconfig:"AIRTYPE_ONNX_INPUT" default:"input"`
	ONNXOutput string `envconfig:"AIRTYPE_ONNX_OUTPUT" default:"output"`

	// ONNXLibrary overrides the ONNX Runtime shared library location.
	ONNXLibrary string `envconfig:"ONNXRUNTIME_SHARED_LIBRARY_PATH"`
}
