package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt1as/noteeverything/internal/models"
)

func newTestState(t *testing.T) (*State, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "state.db")

	st, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st, path
}

func TestLoad_CreatesParentDirectory(t *testing.T) {
	_, path := newTestState(t)
	assert.FileExists(t, path)
}

func TestNotes_EmptyDatabase(t *testing.T) {
	st, _ := newTestState(t)

	notes, err := st.Notes()
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestPutNote_RoundTrip(t *testing.T) {
	st, _ := newTestState(t)
	parent := "p1"
	n := models.Note{
		ID:        "n1",
		Title:     "One",
		Content:   "<p>hi</p>",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		ParentID:  &parent,
	}

	require.NoError(t, st.PutNote(n))

	notes, err := st.Notes()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n, notes[0])
}

func TestDeleteNote_MissingIsNoop(t *testing.T) {
	st, _ := newTestState(t)
	assert.NoError(t, st.DeleteNote("ghost"))
}

func TestReplaceNotes_DropsOldSet(t *testing.T) {
	st, _ := newTestState(t)
	require.NoError(t, st.PutNote(models.Note{ID: "old"}))

	require.NoError(t, st.ReplaceNotes([]models.Note{{ID: "new1"}, {ID: "new2"}}))

	notes, err := st.Notes()
	require.NoError(t, err)
	require.Len(t, notes, 2)

	ids := []string{notes[0].ID, notes[1].ID}
	assert.ElementsMatch(t, []string{"new1", "new2"}, ids)
}

func TestConfig_NilWhenUnset(t *testing.T) {
	st, _ := newTestState(t)

	cfg, err := st.Config()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_RoundTrip(t *testing.T) {
	st, _ := newTestState(t)
	want := models.RepoConfig{Owner: "alice", Repo: "notes", Branch: "dev"}

	require.NoError(t, st.SetConfig(want))

	got, err := st.Config()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestResolveRepo_EnvTargetWinsAndPersists(t *testing.T) {
	st, _ := newTestState(t)
	require.NoError(t, st.SetConfig(models.RepoConfig{Owner: "old", Repo: "old-repo"}))

	env := models.RepoConfig{Owner: "alice", Repo: "notes", Branch: "dev"}

	got, err := st.ResolveRepo(env)
	require.NoError(t, err)
	assert.Equal(t, env, got)

	saved, err := st.Config()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, env, *saved)
}

func TestResolveRepo_FallsBackToSavedTarget(t *testing.T) {
	st, _ := newTestState(t)
	want := models.RepoConfig{Owner: "alice", Repo: "notes", Branch: "main"}
	require.NoError(t, st.SetConfig(want))

	got, err := st.ResolveRepo(models.RepoConfig{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveRepo_NothingSaved(t *testing.T) {
	st, _ := newTestState(t)

	got, err := st.ResolveRepo(models.RepoConfig{})
	require.NoError(t, err)
	assert.False(t, got.Valid())
}

func TestActiveNote_SetAndClear(t *testing.T) {
	st, _ := newTestState(t)
	assert.Empty(t, st.ActiveNote())

	require.NoError(t, st.SetActiveNote("n1"))
	assert.Equal(t, "n1", st.ActiveNote())

	require.NoError(t, st.SetActiveNote(""))
	assert.Empty(t, st.ActiveNote())
}

func TestFingerprint_RoundTrip(t *testing.T) {
	st, _ := newTestState(t)
	assert.Empty(t, st.Fingerprint())

	require.NoError(t, st.SetFingerprint("deadbeef"))
	assert.Equal(t, "deadbeef", st.Fingerprint())
}

func TestState_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, st.PutNote(models.Note{ID: "n1", Title: "One"}))
	require.NoError(t, st.SetFingerprint("fp"))
	require.NoError(t, st.Close())

	st2, err := Load(path)
	require.NoError(t, err)
	defer st2.Close()

	notes, err := st2.Notes()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "One", notes[0].Title)
	assert.Equal(t, "fp", st2.Fingerprint())
}
