package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("lofi beats", "late night stuff")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	got, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "lofi beats", got.Name)
	assert.Equal(t, "late night stuff", got.Description)
	assert.NotNil(t, got.Sessions)

	// the document is really on disk
	_, err = os.Stat(filepath.Join(s.Dir, p.ID+".json"))
	assert.NoError(t, err)
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProject("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProjectPatchSemantics(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("old name", "old description")
	require.NoError(t, err)

	// empty fields leave stored values untouched
	got, err := s.UpdateProject(p.ID, &ProjectPatch{Name: "new name"})
	require.NoError(t, err)
	assert.Equal(t, "new name", got.Name)
	assert.Equal(t, "old description", got.Description)
	assert.True(t, got.UpdatedAt.After(p.UpdatedAt) || got.UpdatedAt.Equal(p.UpdatedAt))
}

func TestDeleteProject(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("doomed", "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(p.ID))
	_, err = s.GetProject(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteProject(p.ID), ErrNotFound)
}

func TestListProjectsSkipsBadDocuments(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProject("good", "")
	require.NoError(t, err)

	// a corrupt document should not hide the rest of the library
	bad := filepath.Join(s.Dir, "corrupt.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))

	projects, err := s.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "good", projects[0].Name)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("p", "")
	require.NoError(t, err)

	sess, err := s.AddSession(p.ID, Session{Name: "first run", Prompt: "rainy jazz"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := s.UpdateSession(p.ID, sess.ID, &SessionPatch{Style: "jazz"})
	require.NoError(t, err)
	assert.Equal(t, "first run", got.Name)
	assert.Equal(t, "rainy jazz", got.Prompt)
	assert.Equal(t, "jazz", got.Style)

	require.NoError(t, s.DeleteSession(p.ID, sess.ID))
	assert.ErrorIs(t, s.DeleteSession(p.ID, sess.ID), ErrNotFound)
}

func TestAddSessionUnknownProject(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddSession("nope", Session{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendTracksMintsIDs(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("p", "")
	require.NoError(t, err)
	sess, err := s.AddSession(p.ID, Session{Name: "s"})
	require.NoError(t, err)

	got, err := s.AppendTracks(p.ID, sess.ID, []Track{
		{ClipID: "c1", Title: "one"},
		{ClipID: "c2", Title: "two"},
	})
	require.NoError(t, err)
	require.Len(t, got.Tracks, 2)
	assert.NotEmpty(t, got.Tracks[0].ID)
	assert.NotEmpty(t, got.Tracks[1].ID)
	assert.NotEqual(t, got.Tracks[0].ID, got.Tracks[1].ID)
	assert.False(t, got.Tracks[0].CreatedAt.IsZero())
}

func TestUpdateTrack(t *testing.T) {
	s := newTestStore(t)

	p, _ := s.CreateProject("p", "")
	sess, _ := s.AddSession(p.ID, Session{Name: "s"})
	got, err := s.AppendTracks(p.ID, sess.ID, []Track{{Title: "t", Rating: 3, Notes: "meh"}})
	require.NoError(t, err)
	trackID := got.Tracks[0].ID

	intp := func(i int) *int { return &i }
	strp := func(s string) *string { return &s }

	tests := []struct {
		name       string
		patch      TrackPatch
		wantErr    error
		wantRating int
		wantNotes  string
		wantTitle  string
	}{
		{
			name:       "set rating and notes",
			patch:      TrackPatch{Rating: intp(5), Notes: strp("keeper")},
			wantRating: 5, wantNotes: "keeper", wantTitle: "t",
		},
		{
			name:       "nil pointers leave values",
			patch:      TrackPatch{Title: "renamed"},
			wantRating: 5, wantNotes: "keeper", wantTitle: "renamed",
		},
		{
			name:       "explicit zero unrates and clears",
			patch:      TrackPatch{Rating: intp(0), Notes: strp("")},
			wantRating: 0, wantNotes: "", wantTitle: "renamed",
		},
		{
			name:    "rating out of range",
			patch:   TrackPatch{Rating: intp(6)},
			wantErr: ErrRatingRange,
		},
		{
			name:    "negative rating",
			patch:   TrackPatch{Rating: intp(-1)},
			wantErr: ErrRatingRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := s.UpdateTrack(p.ID, sess.ID, trackID, &tt.patch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRating, track.Rating)
			assert.Equal(t, tt.wantNotes, track.Notes)
			assert.Equal(t, tt.wantTitle, track.Title)
		})
	}
}

func TestUpdateTrackNotFound(t *testing.T) {
	s := newTestStore(t)

	p, _ := s.CreateProject("p", "")
	sess, _ := s.AddSession(p.ID, Session{Name: "s"})

	_, err := s.UpdateTrack(p.ID, sess.ID, "nope", &TrackPatch{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateTrack(p.ID, "nope", "nope", &TrackPatch{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutationsSurviveReload(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	require.NoError(t, err)
	p, err := s1.CreateProject("persisted", "")
	require.NoError(t, err)
	_, err = s1.AddSession(p.ID, Session{Name: "s"})
	require.NoError(t, err)

	// a fresh store over the same dir sees everything
	s2, err := NewStore(dir)
	require.NoError(t, err)
	got, err := s2.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)
	require.Len(t, got.Sessions, 1)
}

func TestFlushLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProject("p", "")
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
