package gesture

import (
	"fmt"
	"math"

	"github.com/ryanhyunminbae/airtype/internal/features"
	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/model"
)

// ModelClassifier classifies the model feature vector with a learned model.
type ModelClassifier struct {
	model  model.Model
	labels []string
}

// NewModelClassifier wraps m. The label list is read once.
func NewModelClassifier(m model.Model) *ModelClassifier {
	return &ModelClassifier{model: m, labels: m.Labels()}
}

// Predict runs the model over hand. It returns nil without error when hand
// is incomplete.
func (c *ModelClassifier) Predict(hand landmark.Hand) (*Prediction, error) {
	if !hand.Complete() {
		return nil, nil
	}

	v := features.Model(hand)
	scores, err := c.model.Predict(v)
	if err != nil {
		return nil, fmt.Errorf("model predict: %w", err)
	}

	p := c.decide(scores)
	p.Vector = v
	return &p, nil
}

// Classify implements Classifier. Model errors yield nil.
func (c *ModelClassifier) Classify(hand landmark.Hand) *Prediction {
	p, err := c.Predict(hand)
	if err != nil {
		return nil
	}
	return p
}

// decide picks the highest score. An index with no matching label, or a
// distribution with no comparable score, yields no letter.
func (c *ModelClassifier) decide(scores []float64) Prediction {
	p := Prediction{Source: SourceModel}

	best := -1
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return p
	}

	if best < len(c.labels) {
		p.Letter = c.labels[best]
	}
	if s := scores[best]; !math.IsInf(s, 0) {
		p.Confidence = s
	}
	return p
}
