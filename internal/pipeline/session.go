// Package pipeline runs hand observations through classification and
// stabilization for one session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/stabilizer"
)

// Result describes one processed frame.
type Result struct {
	SessionID  string              `json:"session_id"`
	Prediction *gesture.Prediction `json:"prediction,omitempty"` // nil when no hand was classified
	Streak     stabilizer.Streak   `json:"streak"`
	Progress   float64             `json:"progress"`
	Confirmed  string              `json:"confirmed,omitempty"`
	At         time.Time           `json:"at"`
}

// Preloader is implemented by classifiers that can warm up ahead of the first frame.
type Preloader interface {
	Preload() bool
}

// Config holds the session settings.
type Config struct {
	Stabilizer stabilizer.Config
	Logger     *zap.SugaredLogger
}

// Session processes one stream of observations. Frames are handled one at a
// time; a frame arriving while another is processed is dropped.
type Session struct {
	id         string
	classifier gesture.Classifier
	stabilizer *stabilizer.Stabilizer
	logger     *zap.SugaredLogger
	createdAt  time.Time

	busy    atomic.Bool
	closed  atomic.Bool
	frames  atomic.Int64
	dropped atomic.Int64

	// commit serializes Close with advancing the stabilizer and notifying
	// listeners, so nothing changes once Close has returned.
	commit sync.Mutex

	mu        sync.RWMutex
	listeners []Listener
	text      strings.Builder
}

// NewSession creates a session with a fresh ID. The session owns classifier
// and closes it on Close when it implements io.Closer.
func NewSession(classifier gesture.Classifier, cfg Config, listeners ...Listener) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	id := uuid.New().String()
	return &Session{
		id:         id,
		classifier: classifier,
		stabilizer: stabilizer.New(cfg.Stabilizer),
		logger:     logger.With("session", id),
		createdAt:  time.Now(),
		listeners:  listeners,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// AddListener registers l for subsequent frames.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Text returns the letters confirmed so far.
func (s *Session) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text.String()
}

// Streak returns the current stabilization streak.
func (s *Session) Streak() stabilizer.Streak {
	return s.stabilizer.Streak()
}

// Stats returns the number of processed and dropped frames.
func (s *Session) Stats() (processed, dropped int64) {
	return s.frames.Load(), s.dropped.Load()
}

// Process classifies hand and advances the stabilizer. It reports false when
// the frame was dropped because another frame is in progress or the session
// is closed. A nil or short hand counts as "no hand" and resets the streak.
func (s *Session) Process(hand landmark.Hand) (Result, bool) {
	if s.closed.Load() {
		return Result{}, false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		s.logger.Debugw("frame dropped, previous frame still in progress")
		return Result{}, false
	}
	defer s.busy.Store(false)

	prediction := s.classifier.Classify(hand)

	s.commit.Lock()
	defer s.commit.Unlock()

	// A session closed while classifying must not advance its streak.
	if s.closed.Load() {
		return Result{}, false
	}

	letter, confirmed := s.stabilizer.Push(prediction)
	s.frames.Add(1)

	result := Result{
		SessionID:  s.id,
		Prediction: prediction,
		Streak:     s.stabilizer.Streak(),
		Progress:   s.stabilizer.Progress(),
		At:         time.Now(),
	}
	if confirmed {
		result.Confirmed = letter
	}

	s.mu.Lock()
	if confirmed {
		s.text.WriteString(letter)
	}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnPrediction(result)
	}
	if confirmed {
		s.logger.Infow("letter confirmed", "letter", letter)
		for _, l := range listeners {
			l.OnConfirm(s.id, letter)
		}
	}

	return result, true
}

// Preload lets the classifier warm up ahead of the first frame when it
// supports it.
func (s *Session) Preload() {
	if p, ok := s.classifier.(Preloader); ok {
		p.Preload()
	}
}

// Run pulls observations from src and processes them until ctx is done or
// src is exhausted. Malformed frames are logged and skipped.
func (s *Session) Run(ctx context.Context, src source.Source) error {
	s.Preload()

	for {
		hand, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, source.ErrMalformedFrame):
				s.logger.Warnw("skipping frame", "error", err)
				continue
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if s.closed.Load() {
			return nil
		}
		s.Process(hand)
	}
}

// Close stops the session and releases its classifier. Frames in flight
// are discarded; a frame already being committed finishes first.
func (s *Session) Close() error {
	s.commit.Lock()
	swapped := s.closed.CompareAndSwap(false, true)
	s.commit.Unlock()
	if !swapped {
		return nil
	}
	if c, ok := s.classifier.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
