package store

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
)

// Recorder is a pipeline listener that writes session transcripts.
type Recorder struct {
	store  *Store
	logger *zap.SugaredLogger
}

// NewRecorder creates a Recorder writing to s.
func NewRecorder(s *Store, logger *zap.SugaredLogger) *Recorder {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Recorder{store: s, logger: logger}
}

// Begin stores a new transcript for session.
func (r *Recorder) Begin(session *pipeline.Session, source string) error {
	return r.store.Sessions().Create(&Session{
		ID:        session.ID(),
		Source:    source,
		CreatedAt: session.CreatedAt(),
	})
}

// End stores the final counters of session.
func (r *Recorder) End(session *pipeline.Session) error {
	processed, dropped := session.Stats()
	return r.store.Sessions().End(session.ID(), processed, dropped)
}

// OnPrediction records confirmed letters together with the prediction that
// confirmed them.
func (r *Recorder) OnPrediction(res pipeline.Result) {
	if res.Confirmed == "" {
		return
	}

	c := &Confirmation{
		SessionID: res.SessionID,
		Letter:    res.Confirmed,
		CreatedAt: res.At,
	}
	if res.Prediction != nil {
		c.Confidence = res.Prediction.Confidence
		c.Source = string(res.Prediction.Source)
	}

	if err := r.store.Confirmations().Create(c); err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Warnw("confirmation for unknown session", "session", res.SessionID)
			return
		}
		r.logger.Errorw("failed to record confirmation", "session", res.SessionID, "error", err)
	}
}

// OnConfirm is a no-op; confirmations are recorded from OnPrediction.
func (r *Recorder) OnConfirm(sessionID, letter string) {}
