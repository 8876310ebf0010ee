package model

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ryanhyunminbae/airtype/internal/logging"
)

// State is the lifecycle state of a Loader.
type State int

const (
	// StateNotLoaded means no load has been attempted yet.
	StateNotLoaded State = iota
	// StateLoading means a load is in flight.
	StateLoading
	// StateLoaded means a model is available.
	StateLoaded
	// StateFailed means the last attempt failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not-loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// LoadFunc acquires a model. It should honor ctx cancellation.
type LoadFunc func(ctx context.Context) (Model, error)

// Loader owns a lazily loaded model. At most one load runs at a time and
// Trigger never blocks the caller. After Close, the result of a load still
// in flight is discarded.
type Loader struct {
	load       LoadFunc
	retryAfter time.Duration
	logger     *zap.SugaredLogger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	model    Model
	err      error
	failedAt time.Time
	attempts int
	done     chan struct{}
	closed   bool
}

// NewLoader creates a Loader. A nil load function yields a loader that never
// provides a model. See Config.RetryAfter for the retry policy.
func NewLoader(load LoadFunc, retryAfter time.Duration, logger *zap.SugaredLogger) *Loader {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		load:       load,
		retryAfter: retryAfter,
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NewPathLoader creates a Loader that opens cfg.Path. It returns a loader
// without a load function when no path is configured.
func NewPathLoader(cfg Config, logger *zap.SugaredLogger) *Loader {
	if cfg.Path == "" {
		return NewLoader(nil, cfg.RetryAfter, logger)
	}
	return NewLoader(func(ctx context.Context) (Model, error) {
		return Open(ctx, cfg.Path, cfg)
	}, cfg.RetryAfter, logger)
}

// Trigger starts a load in the background if none is in flight, no model is
// loaded and the retry policy allows it. It reports whether a load started.
func (l *Loader) Trigger() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.load == nil {
		return false
	}

	switch l.state {
	case StateLoading, StateLoaded:
		return false
	case StateFailed:
		if l.retryAfter < 0 || l.now().Sub(l.failedAt) < l.retryAfter {
			return false
		}
	}

	l.state = StateLoading
	l.attempts++
	l.done = make(chan struct{})
	go l.run(l.done, l.attempts)

	return true
}

func (l *Loader) run(done chan struct{}, attempt int) {
	defer close(done)

	m, err := l.load(l.ctx)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		if m != nil {
			m.Close()
		}
		return
	}

	if err != nil || m == nil {
		l.state = StateFailed
		l.err = err
		l.failedAt = l.now()
		l.mu.Unlock()
		l.logger.Warnw("unable to load model, falling back to prototypes", "attempt", attempt, "error", err)
		return
	}

	l.state = StateLoaded
	l.model = m
	l.err = nil
	l.mu.Unlock()
	l.logger.Infow("model loaded", "attempt", attempt, "labels", len(m.Labels()))
}

// Model returns the loaded model, or nil if none is available.
func (l *Loader) Model() Model {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateLoaded {
		return nil
	}
	return l.model
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error of the last failed attempt.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Attempts returns how many loads have been started.
func (l *Loader) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Wait blocks until the in-flight load, if any, finishes or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels an in-flight load and releases the loaded model.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.cancel()
	m := l.model
	l.model = nil
	if l.state == StateLoaded {
		l.state = StateNotLoaded
	}
	l.mu.Unlock()

	if m != nil {
		return m.Close()
	}
	return nil
}
