package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/plugin"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/stabilizer"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

func hold(h landmark.Hand, n int) []landmark.Hand {
	hands := make([]landmark.Hand, n)
	for i := range hands {
		hands[i] = h
	}
	return hands
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestApp(t *testing.T, st *store.Store) *App {
	t.Helper()
	return newTestAppWithLogger(t, st, logging.Nop())
}

func newTestAppWithLogger(t *testing.T, st *store.Store, logger *zap.SugaredLogger) *App {
	t.Helper()

	a, err := New(Config{
		Store:   st,
		Plugins: plugin.Config{Dir: t.TempDir()},
		Logger:  logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_RunRecordsTranscript(t *testing.T) {
	st := newTestStore(t)
	a := newTestApp(t, st)

	hands := hold(landmark.FistLandmarks(), 12)
	hands = append(hands, nil)
	hands = append(hands, hold(landmark.OpenPalmLandmarks(), 12)...)

	var confirmed []string
	listener := pipeline.ListenerFuncs{
		Confirm: func(_, letter string) { confirmed = append(confirmed, letter) },
	}

	text, err := a.Run(context.Background(), source.NewMock(hands...), "test", listener)
	require.NoError(t, err)
	assert.Equal(t, "AB", text)
	assert.Equal(t, []string{"A", "B"}, confirmed)
	assert.Zero(t, a.Sessions(), "sessions left open after Run")

	sessions, err := st.Sessions().List(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got := sessions[0]
	assert.Equal(t, "AB", got.Text)
	assert.Equal(t, "test", got.Source)
	assert.Equal(t, int64(len(hands)), got.Frames)
	assert.NotNil(t, got.EndedAt, "session was not ended")

	confirmations, err := st.Confirmations().ListBySession(got.ID)
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	assert.Equal(t, "prototype", confirmations[0].Source)
}

func TestApp_WithoutStore(t *testing.T) {
	a := newTestApp(t, nil)

	text, err := a.Run(context.Background(), source.NewMock(hold(landmark.CShapeLandmarks(), 12)...), "test")
	require.NoError(t, err)
	assert.Equal(t, "C", text)
}

func TestApp_StabilizerDefaults(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Equal(t, stabilizer.DefaultConfig(), a.config.Stabilizer)

	_, err := New(Config{
		Stabilizer: stabilizer.Config{ConfidenceThreshold: 0.5},
		Plugins:    plugin.Config{Dir: t.TempDir()},
		Logger:     logging.Nop(),
	})
	assert.Error(t, err, "zero frames to confirm must be rejected")
}

func TestApp_CloseEndsSessions(t *testing.T) {
	a := newTestApp(t, nil)

	session, err := a.NewSession("test")
	require.NoError(t, err)
	require.Equal(t, 1, a.Sessions())

	require.NoError(t, a.Close())
	assert.Zero(t, a.Sessions())

	_, ok := session.Process(landmark.FistLandmarks())
	assert.False(t, ok, "closed session still processes frames")

	_, err = a.NewSession("test")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestApp_EndSessionOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	st := newTestStore(t)
	a := newTestAppWithLogger(t, st, zap.New(core).Sugar())

	session, err := a.NewSession("server")
	require.NoError(t, err)

	// Shutdown ends the open session, then the connection handler's
	// deferred cleanup ends it again.
	require.NoError(t, a.Close())
	a.EndSession(session)
	a.EndSession(session)

	assert.Equal(t, 1, logs.FilterMessage("session ended").Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len(), "unexpected warnings: %v", logs.FilterLevelExact(zapcore.WarnLevel).All())

	stored, err := st.Sessions().GetByID(session.ID())
	require.NoError(t, err)
	assert.NotNil(t, stored.EndedAt)
}
