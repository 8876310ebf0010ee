package gesture

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/model"
)

// Recognizer classifies with the learned model when one is loaded and with
// the prototype table otherwise. Asking for a model that is not loaded
// schedules a background load; the frame itself is never delayed.
type Recognizer struct {
	prototypes *PrototypeClassifier
	loader     *model.Loader
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	cached *ModelClassifier
}

// NewRecognizer creates a Recognizer. loader may be nil to run on prototypes only.
func NewRecognizer(prototypes *PrototypeClassifier, loader *model.Loader, logger *zap.SugaredLogger) *Recognizer {
	if prototypes == nil {
		prototypes = NewPrototypeClassifier(DefaultPrototypes())
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Recognizer{
		prototypes: prototypes,
		loader:     loader,
		logger:     logger,
	}
}

// Classify implements Classifier.
func (r *Recognizer) Classify(hand landmark.Hand) *Prediction {
	if !hand.Complete() {
		return nil
	}

	if c := r.modelClassifier(); c != nil {
		p, err := c.Predict(hand)
		if err == nil {
			return p
		}
		r.logger.Warnw("model prediction failed, using prototypes", "error", err)
	}

	return r.prototypes.Classify(hand)
}

// Preload starts loading the model without classifying. It reports whether
// a load was started.
func (r *Recognizer) Preload() bool {
	if r.loader == nil {
		return false
	}
	return r.loader.Trigger()
}

// Source reports which strategy the next frame will use.
func (r *Recognizer) Source() Source {
	if r.loader != nil && r.loader.Model() != nil {
		return SourceModel
	}
	return SourcePrototype
}

// Prototypes returns the prototype classifier used as fallback.
func (r *Recognizer) Prototypes() *PrototypeClassifier {
	return r.prototypes
}

// Close releases the model.
func (r *Recognizer) Close() error {
	if r.loader == nil {
		return nil
	}
	return r.loader.Close()
}

func (r *Recognizer) modelClassifier() *ModelClassifier {
	if r.loader == nil {
		return nil
	}

	m := r.loader.Model()
	if m == nil {
		r.loader.Trigger()
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil || r.cached.model != m {
		r.cached = NewModelClassifier(m)
	}
	return r.cached
}
