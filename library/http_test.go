package library

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := newTestStore(t)
	r := gin.New()
	s.RegisterRoutes(r)
	return r, s
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostProject(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/projects", `{"name":"demo","description":"d"}`)
	require.Equal(t, 200, w.Code)

	var resp struct {
		Project Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "demo", resp.Project.Name)
	assert.NotEmpty(t, resp.Project.ID)
}

func TestPostProjectValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"empty name", `{"description":"d"}`, 422},
		{"bad json", `{`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, "POST", "/projects", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestGetProjects(t *testing.T) {
	r, s := newTestRouter(t)

	_, err := s.CreateProject("a", "")
	require.NoError(t, err)
	_, err = s.CreateProject("b", "")
	require.NoError(t, err)

	w := doJSON(t, r, "GET", "/projects", "")
	require.Equal(t, 200, w.Code)

	var resp struct {
		Projects []Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Projects, 2)
}

func TestProjectNotFoundIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "GET", "/projects/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, "DELETE", "/projects/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchTrackOverHTTP(t *testing.T) {
	r, s := newTestRouter(t)

	p, _ := s.CreateProject("p", "")
	sess, _ := s.AddSession(p.ID, Session{Name: "s"})
	got, err := s.AppendTracks(p.ID, sess.ID, []Track{{Title: "t"}})
	require.NoError(t, err)
	trackID := got.Tracks[0].ID

	base := "/projects/" + p.ID + "/sessions/" + sess.ID + "/tracks/" + trackID

	w := doJSON(t, r, "PATCH", base, `{"rating":4,"notes":"nice hook"}`)
	require.Equal(t, 200, w.Code)

	var resp struct {
		Track Track `json:"track"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Track.Rating)
	assert.Equal(t, "nice hook", resp.Track.Notes)

	// out of range rating is a 422
	w = doJSON(t, r, "PATCH", base, `{"rating":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSessionRoutes(t *testing.T) {
	r, s := newTestRouter(t)

	p, _ := s.CreateProject("p", "")

	w := doJSON(t, r, "POST", "/projects/"+p.ID+"/sessions", `{"name":"run 1","prompt":"upbeat"}`)
	require.Equal(t, 200, w.Code)

	var resp struct {
		Session Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	sid := resp.Session.ID
	require.NotEmpty(t, sid)

	w = doJSON(t, r, "PATCH", "/projects/"+p.ID+"/sessions/"+sid, `{"style":"pop"}`)
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "DELETE", "/projects/"+p.ID+"/sessions/"+sid, "")
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "DELETE", "/projects/"+p.ID+"/sessions/"+sid, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
