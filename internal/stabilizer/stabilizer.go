// Package stabilizer debounces per-frame predictions into confirmed letters.
//
// A letter is confirmed once it has been predicted with enough confidence on
// FramesToConfirm consecutive frames. A held pose keeps counting toward the
// next confirmation, so holding a letter repeats it.
package stabilizer

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
)

// Config holds the stabilization thresholds.
type Config struct {
	ConfidenceThreshold float64 `envconfig:"AIRTYPE_CONFIDENCE_THRESHOLD" default:"0.6"`
	FramesToConfirm     int     `envconfig:"AIRTYPE_FRAMES_TO_CONFIRM" default:"12"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{ConfidenceThreshold: 0.6, FramesToConfirm: 12}
}

// Validate reports whether the thresholds are usable.
func (c Config) Validate() error {
	if math.IsNaN(c.ConfidenceThreshold) || math.IsInf(c.ConfidenceThreshold, 0) {
		return errors.New("confidence threshold must be finite")
	}
	if c.FramesToConfirm < 1 {
		return fmt.Errorf("frames to confirm must be at least 1, got %d", c.FramesToConfirm)
	}
	return nil
}

// Streak counts consecutive qualifying predictions of one letter.
type Streak struct {
	Letter string `json:"letter,omitempty"`
	Count  int    `json:"count"`
}

// Step applies one prediction to s. It returns the new streak and, when the
// streak reaches cfg.FramesToConfirm, the confirmed letter.
func Step(s Streak, p *gesture.Prediction, cfg Config) (next Streak, confirmed string, ok bool) {
	if !p.HasLetter() || !(p.Confidence >= cfg.ConfidenceThreshold) {
		return Streak{}, "", false
	}

	if p.Letter != s.Letter {
		return Streak{Letter: p.Letter, Count: 1}, "", false
	}

	s.Count++
	if s.Count >= cfg.FramesToConfirm {
		return Streak{Letter: p.Letter}, p.Letter, true
	}
	return s, "", false
}

// Stabilizer owns a streak for one session.
type Stabilizer struct {
	cfg Config

	mu     sync.Mutex
	streak Streak
}

// New creates a Stabilizer. Invalid thresholds are replaced by the defaults.
func New(cfg Config) *Stabilizer {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	return &Stabilizer{cfg: cfg}
}

// Config returns the thresholds in use.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

// Push applies p and reports the confirmed letter, if any.
func (s *Stabilizer) Push(p *gesture.Prediction) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, letter, ok := Step(s.streak, p, s.cfg)
	s.streak = next
	return letter, ok
}

// Streak returns the current streak.
func (s *Stabilizer) Streak() Streak {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streak
}

// Progress returns how far the current streak is toward confirmation, in [0,1).
func (s *Stabilizer) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.streak.Count) / float64(s.cfg.FramesToConfirm)
}

// Reset clears the streak.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	s.streak = Streak{}
	s.mu.Unlock()
}
