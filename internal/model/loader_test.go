package model

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanhyunminbae/airtype/internal/logging"
)

type stubModel struct {
	closed atomic.Bool
}

func (m *stubModel) Labels() []string { return DefaultLabels() }
func (m *stubModel) Predict(input []float64) ([]float64, error) { return make([]float64, 26), nil }
func (m *stubModel) Close() error {
	m.closed.Store(true)
	return nil
}

func waitLoader(t *testing.T, l *Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestLoader_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	m := &stubModel{}

	l := NewLoader(func(ctx context.Context) (Model, error) {
		calls.Add(1)
		<-release
		return m, nil
	}, time.Minute, logging.Nop())
	defer l.Close()

	assert.Equal(t, StateNotLoaded, l.State())
	assert.Nil(t, l.Model())

	require.True(t, l.Trigger())
	assert.Equal(t, StateLoading, l.State())
	assert.False(t, l.Trigger(), "a second load must not start while one is in flight")
	assert.Nil(t, l.Model(), "no model while loading")

	close(release)
	waitLoader(t, l)

	assert.Equal(t, StateLoaded, l.State())
	assert.Same(t, m, l.Model())
	assert.False(t, l.Trigger(), "loaded models are not reloaded")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, l.Attempts())
}

func TestLoader_FailureAndRetry(t *testing.T) {
	loadErr := errors.New("corrupt weights")
	var fail atomic.Bool
	fail.Store(true)

	l := NewLoader(func(ctx context.Context) (Model, error) {
		if fail.Load() {
			return nil, loadErr
		}
		return &stubModel{}, nil
	}, 30*time.Second, logging.Nop())
	defer l.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.Trigger())
	waitLoader(t, l)

	assert.Equal(t, StateFailed, l.State())
	assert.ErrorIs(t, l.Err(), loadErr)
	assert.Nil(t, l.Model())

	now = now.Add(10 * time.Second)
	assert.False(t, l.Trigger(), "retry must wait for the backoff")

	fail.Store(false)
	now = now.Add(30 * time.Second)
	require.True(t, l.Trigger())
	waitLoader(t, l)

	assert.Equal(t, StateLoaded, l.State())
	assert.NoError(t, l.Err())
	assert.Equal(t, 2, l.Attempts())
}

func TestLoader_RetryPolicy(t *testing.T) {
	failing := func(ctx context.Context) (Model, error) { return nil, errors.New("missing file") }

	t.Run("negative retry never retries", func(t *testing.T) {
		l := NewLoader(failing, -1, logging.Nop())
		defer l.Close()

		require.True(t, l.Trigger())
		waitLoader(t, l)
		assert.False(t, l.Trigger())
	})

	t.Run("zero retry retries on every trigger", func(t *testing.T) {
		l := NewLoader(failing, 0, logging.Nop())
		defer l.Close()

		require.True(t, l.Trigger())
		waitLoader(t, l)
		require.True(t, l.Trigger())
		waitLoader(t, l)
		assert.Equal(t, 2, l.Attempts())
	})
}

func TestLoader_NilLoadFunc(t *testing.T) {
	l := NewLoader(nil, 0, logging.Nop())
	defer l.Close()

	assert.False(t, l.Trigger())
	assert.Equal(t, StateNotLoaded, l.State())
	assert.NoError(t, l.Wait(context.Background()))
}

func TestLoader_CloseDiscardsLateResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := &stubModel{}

	l := NewLoader(func(ctx context.Context) (Model, error) {
		close(started)
		<-release
		return m, nil
	}, 0, logging.Nop())

	require.True(t, l.Trigger())
	<-started
	require.NoError(t, l.Close())

	close(release)
	waitLoader(t, l)

	assert.Nil(t, l.Model())
	assert.True(t, m.closed.Load(), "a model arriving after close must be released")
	assert.False(t, l.Trigger())
}

func TestLoader_CloseCancelsContext(t *testing.T) {
	l := NewLoader(func(ctx context.Context) (Model, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 0, logging.Nop())

	require.True(t, l.Trigger())
	require.NoError(t, l.Close())
	waitLoader(t, l)

	assert.Nil(t, l.Model())
}

func TestLoader_CloseReleasesModel(t *testing.T) {
	m := &stubModel{}
	l := NewLoader(func(ctx context.Context) (Model, error) { return m, nil }, 0, logging.Nop())

	require.True(t, l.Trigger())
	waitLoader(t, l)
	require.NoError(t, l.Close())

	assert.True(t, m.closed.Load())
	assert.Nil(t, l.Model())
}

func TestNewPathLoader(t *testing.T) {
	t.Run("no path disables loading", func(t *testing.T) {
		l := NewPathLoader(Config{}, logging.Nop())
		defer l.Close()
		assert.False(t, l.Trigger())
	})

	t.Run("missing file fails softly", func(t *testing.T) {
		l := NewPathLoader(Config{Path: "/nonexistent/model.json", RetryAfter: -1}, logging.Nop())
		defer l.Close()

		require.True(t, l.Trigger())
		waitLoader(t, l)
		assert.Equal(t, StateFailed, l.State())
		assert.Error(t, l.Err())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not-loaded", StateNotLoaded.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
