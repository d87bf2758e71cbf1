package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/turn"
)

func TestStore_UpdateCreatesAndGetCopies(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	require.NoError(t, s.Update("s1", func(st *turn.State) {
		st.UserID = "u1"
		st.AppendHuman("hello")
	}))

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	require.Len(t, got.Messages, 1)

	// The copy is detached from the stored state.
	got.Messages[0].Content = "tampered"
	again, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestStore_GetMissing(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	_, err = s.Get("nope")
	assert.Error(t, err)
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	s1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Update("s1", func(st *turn.State) {
		st.UserID = "u1"
		st.Plan = plan.New("u1", "Acme", "goal")
		st.AppendHuman("hello")
	}))

	s2, err := NewStore(path)
	require.NoError(t, err)
	got, err := s2.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Acme", got.Plan.Company)
	assert.Len(t, got.Messages, 1)
}

func TestStore_FindByPlanID(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	p := plan.New("u1", "Acme", "goal")
	require.NoError(t, s.Update("s1", func(st *turn.State) { st.Plan = p }))
	require.NoError(t, s.Update("s2", func(st *turn.State) {}))

	sid, st, err := s.FindByPlanID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", sid)
	assert.Equal(t, p.ID, st.Plan.ID)

	_, _, err = s.FindByPlanID("missing")
	assert.Error(t, err)
}

func TestStore_DeleteAndIDs(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	require.NoError(t, s.Update("b", func(*turn.State) {}))
	require.NoError(t, s.Update("a", func(*turn.State) {}))

	assert.Equal(t, []string{"a", "b"}, s.IDs())

	require.NoError(t, s.Delete("a"))
	assert.Equal(t, []string{"b"}, s.IDs())
	require.NoError(t, s.Delete("a"), "deleting a missing session is fine")
}
