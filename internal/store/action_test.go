package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	a := &Action{
		ID:         "act-1",
		Letter:     "A",
		PluginName: "keyboard",
		ActionName: "type",
		Enabled:    true,
	}
	require.NoError(t, repo.Create(a))

	got, err := repo.GetByID("act-1")
	require.NoError(t, err)
	assert.Equal(t, "keyboard", got.PluginName)
	assert.True(t, got.Enabled)
	assert.JSONEq(t, `{}`, string(got.Config))

	got.Config = json.RawMessage(`{"key":"space"}`)
	got.ActionName = "key"
	require.NoError(t, repo.Update(got))

	updated, err := repo.GetByID("act-1")
	require.NoError(t, err)
	assert.Equal(t, "key", updated.ActionName)
	assert.JSONEq(t, `{"key":"space"}`, string(updated.Config))

	require.NoError(t, repo.Delete("act-1"))
	_, err = repo.GetByID("act-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(got), ErrNotFound, "updating a deleted action")
}

func TestActionRepository_ForLetter(t *testing.T) {
	s := newTestStore(t)
	repo := s.Actions()

	a, err := repo.ForLetter("A")
	require.NoError(t, err)
	require.Nil(t, a, "no binding yet")

	require.NoError(t, repo.Create(&Action{ID: "any", Letter: AnyLetter, PluginName: "keyboard", ActionName: "type", Enabled: true}))
	require.NoError(t, repo.Create(&Action{ID: "b", Letter: "B", PluginName: "keyboard", ActionName: "key", Enabled: true}))
	require.NoError(t, repo.Create(&Action{ID: "c", Letter: "C", PluginName: "keyboard", ActionName: "key", Enabled: false}))

	cases := map[string]string{
		"A": "any", // falls back to the wildcard
		"B": "b",   // exact binding wins
		"C": "any", // disabled bindings are skipped
	}
	for letter, want := range cases {
		a, err := repo.ForLetter(letter)
		require.NoError(t, err, "ForLetter(%q)", letter)
		if assert.NotNil(t, a, "ForLetter(%q)", letter) {
			assert.Equal(t, want, a.ID, "ForLetter(%q)", letter)
		}
	}

	list, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
