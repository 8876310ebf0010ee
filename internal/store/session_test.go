package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{ID: "sess-1", Source: "server"}
	require.NoError(t, repo.Create(sess))
	assert.False(t, sess.CreatedAt.IsZero(), "CreatedAt should be set after create")

	got, err := repo.GetByID("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "server", got.Source)
	assert.Empty(t, got.Text)
	assert.Nil(t, got.EndedAt, "a new session should not have ended")
}

func TestSessionRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().GetByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepository_End(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	require.NoError(t, repo.Create(&Session{ID: "sess-1", Source: "stdin"}))
	require.NoError(t, repo.End("sess-1", 40, 2))

	got, err := repo.GetByID("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Frames)
	assert.Equal(t, int64(2), got.Dropped)
	assert.NotNil(t, got.EndedAt, "EndedAt should be set after End")

	assert.ErrorIs(t, repo.End("missing", 0, 0), ErrNotFound)
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Create(&Session{ID: id, Source: "server", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	all, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID, "sessions should be newest first")
	assert.Equal(t, "old", all[2].ID)

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Sessions().Create(&Session{ID: "sess-1", Source: "server"}))
	require.NoError(t, s.Confirmations().Create(&Confirmation{SessionID: "sess-1", Letter: "A"}))
	require.NoError(t, s.Sessions().Delete("sess-1"))

	confirmations, err := s.Confirmations().ListBySession("sess-1")
	require.NoError(t, err)
	assert.Empty(t, confirmations, "confirmations should be deleted with their session")

	assert.ErrorIs(t, s.Sessions().Delete("sess-1"), ErrNotFound)
}

func TestConfirmationRepository_Create(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Sessions().Create(&Session{ID: "sess-1", Source: "server"}))

	for _, letter := range []string{"C", "A", "B"} {
		c := &Confirmation{SessionID: "sess-1", Letter: letter, Confidence: 0.8, Source: "prototype"}
		require.NoError(t, s.Confirmations().Create(c))
		assert.NotZero(t, c.ID, "ID should be set after create")
	}

	confirmations, err := s.Confirmations().ListBySession("sess-1")
	require.NoError(t, err)
	require.Len(t, confirmations, 3)
	assert.Equal(t, "C", confirmations[0].Letter, "confirmations keep insertion order")
	assert.Equal(t, "B", confirmations[2].Letter)

	sess, err := s.Sessions().GetByID("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "CAB", sess.Text)
}

func TestConfirmationRepository_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.Confirmations().Create(&Confirmation{SessionID: "ghost", Letter: "A"})
	assert.ErrorIs(t, err, ErrNotFound)
}
