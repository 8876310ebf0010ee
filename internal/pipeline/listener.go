package pipeline

import (
	"go.uber.org/zap"
)

// Listener receives session output. OnPrediction is called for every
// processed frame; OnConfirm only when a letter is confirmed. Listeners are
// called synchronously from the processing goroutine.
type Listener interface {
	OnPrediction(r Result)
	OnConfirm(sessionID, letter string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Prediction func(r Result)
	Confirm    func(sessionID, letter string)
}

// OnPrediction implements Listener.
func (f ListenerFuncs) OnPrediction(r Result) {
	if f.Prediction != nil {
		f.Prediction(r)
	}
}

// OnConfirm implements Listener.
func (f ListenerFuncs) OnConfirm(sessionID, letter string) {
	if f.Confirm != nil {
		f.Confirm(sessionID, letter)
	}
}

// LogListener logs every prediction at debug level.
type LogListener struct {
	Logger *zap.SugaredLogger
}

// OnPrediction implements Listener.
func (l LogListener) OnPrediction(r Result) {
	if r.Prediction == nil {
		l.Logger.Debugw("no hand", "session", r.SessionID)
		return
	}
	l.Logger.Debugw("prediction",
		"session", r.SessionID,
		"letter", r.Prediction.Letter,
		"confidence", r.Prediction.Confidence,
		"source", r.Prediction.Source,
		"streak", r.Streak.Count,
	)
}

// OnConfirm implements Listener.
func (l LogListener) OnConfirm(sessionID, letter string) {}
