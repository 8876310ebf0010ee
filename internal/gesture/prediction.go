// Package gesture classifies hand observations as letters.
//
// Two strategies share the Classifier contract: PrototypeClassifier matches
// heuristic features against a small table of hand-authored poses, and
// ModelClassifier runs a learned model over the full landmark vector.
// Recognizer picks between them depending on whether a model is loaded.
package gesture

import (
	"github.com/ryanhyunminbae/airtype/internal/features"
	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// Source identifies the strategy that produced a prediction.
type Source string

const (
	// SourcePrototype marks predictions from the prototype table.
	SourcePrototype Source = "prototype"
	// SourceModel marks predictions from the learned model.
	SourceModel Source = "asl-model"
)

// Prediction is the per-frame classification result.
type Prediction struct {
	Letter     string          `json:"letter,omitempty"` // empty when no letter was recognized
	Confidence float64         `json:"confidence"`       // in [0,1] for prototypes; model scores are not clamped
	Vector     features.Vector `json:"vector,omitempty"` // the features the decision was made on
	Source     Source          `json:"source"`
}

// HasLetter reports whether the prediction names a letter.
func (p *Prediction) HasLetter() bool {
	return p != nil && p.Letter != ""
}

// Classifier maps a hand observation to a prediction. Observations with
// fewer than landmark.NumLandmarks points yield nil.
type Classifier interface {
	Classify(hand landmark.Hand) *Prediction
}
