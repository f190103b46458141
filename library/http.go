package library

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// this file implements the REST controllers over the Store.

// RegisterRoutes wires the project/session/track routes onto r.
func (s *Store) RegisterRoutes(r gin.IRouter) {
	r.GET("/projects", s.GetProjects)
	r.POST("/projects", s.PostProject)
	r.GET("/projects/:pid", s.GetProjectByID)
	r.PATCH("/projects/:pid", s.PatchProject)
	r.DELETE("/projects/:pid", s.DeleteProjectByID)

	r.POST("/projects/:pid/sessions", s.PostSession)
	r.PATCH("/projects/:pid/sessions/:sid", s.PatchSession)
	r.DELETE("/projects/:pid/sessions/:sid", s.DeleteSessionByID)

	r.PATCH("/projects/:pid/sessions/:sid/tracks/:tid", s.PatchTrack)
}

type PostProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetProjects handles: GET /projects
func (s *Store) GetProjects(c *gin.Context) {
	projects, err := s.ListProjects()
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"projects": projects})
}

// PostProject handles: POST /projects
//
// Body: {"name": "...", "description": "..."}
func (s *Store) PostProject(c *gin.Context) {
	req := new(PostProjectRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(422, gin.H{"error": "project name is empty"})
		return
	}

	p, err := s.CreateProject(req.Name, req.Description)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"project": p})
}

// GetProjectByID handles: GET /projects/:pid
func (s *Store) GetProjectByID(c *gin.Context) {
	p, err := s.GetProject(c.Param("pid"))
	if err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"project": p})
}

// PatchProject handles: PATCH /projects/:pid
//
// Empty fields in the body leave the stored value untouched.
func (s *Store) PatchProject(c *gin.Context) {
	patch := new(ProjectPatch)
	if err := c.ShouldBindJSON(patch); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	p, err := s.UpdateProject(c.Param("pid"), patch)
	if err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"project": p})
}

// DeleteProjectByID handles: DELETE /projects/:pid
func (s *Store) DeleteProjectByID(c *gin.Context) {
	if err := s.DeleteProject(c.Param("pid")); err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"deleted": c.Param("pid")})
}

type PostSessionRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

// PostSession handles: POST /projects/:pid/sessions
func (s *Store) PostSession(c *gin.Context) {
	req := new(PostSessionRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(422, gin.H{"error": "session name is empty"})
		return
	}

	sess, err := s.AddSession(c.Param("pid"), Session{
		Name:   req.Name,
		Prompt: req.Prompt,
		Style:  req.Style,
	})
	if err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"session": sess})
}

// PatchSession handles: PATCH /projects/:pid/sessions/:sid
func (s *Store) PatchSession(c *gin.Context) {
	patch := new(SessionPatch)
	if err := c.ShouldBindJSON(patch); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.UpdateSession(c.Param("pid"), c.Param("sid"), patch)
	if err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"session": sess})
}

// DeleteSessionByID handles: DELETE /projects/:pid/sessions/:sid
func (s *Store) DeleteSessionByID(c *gin.Context) {
	if err := s.DeleteSession(c.Param("pid"), c.Param("sid")); err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"deleted": c.Param("sid")})
}

// PatchTrack handles: PATCH /projects/:pid/sessions/:sid/tracks/:tid
//
// Body (all optional):
//
//   - Title: string, non-empty replaces
//   - Rating: int 0..5, explicit 0 unrates
//   - Notes: string, explicit "" clears
func (s *Store) PatchTrack(c *gin.Context) {
	patch := new(TrackPatch)
	if err := c.ShouldBindJSON(patch); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	t, err := s.UpdateTrack(c.Param("pid"), c.Param("sid"), c.Param("tid"), patch)
	if err != nil {
		abortStoreErr(c, err)
		return
	}
	c.JSON(200, gin.H{"track": t})
}

func abortStoreErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRatingRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
