package songgen

import (
	"errors"
	"strconv"

	"tunedeck/library"

	"github.com/gin-gonic/gin"
)

// this file implements the controllers that bridge the generation
// service into the library: feed browsing and session imports.

// Importer serves the songgen-backed routes.
type Importer struct {
	Client *Client
	Store  *library.Store
}

func (im *Importer) RegisterRoutes(r gin.IRouter) {
	r.GET("/songgen/feed", im.GetFeed)
	r.POST("/projects/:pid/sessions/:sid/import", im.PostImport)
}

// GetFeed handles: GET /songgen/feed?page=N
//
// Proxies one page of the generation feed for browsing.
func (im *Importer) GetFeed(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(400, gin.H{"error": "bad page"})
		return
	}

	clips, err := im.Client.Feed(c, page)
	if err != nil {
		abortClientErr(c, err)
		return
	}
	c.JSON(200, gin.H{"clips": clips})
}

type PostImportRequest struct {
	// ClipIDs imports specific clips by ID.
	ClipIDs []string `json:"clip_ids"`
	// Pages walks the feed instead; 0 with empty ClipIDs means the
	// whole feed.
	Pages int `json:"pages"`
}

type PostImportResponse struct {
	Session  *library.Session `json:"session"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
}

// PostImport handles: POST /projects/:pid/sessions/:sid/import
//
// Body: {"clip_ids": ["..."]} to import specific clips, or
// {"pages": N} to pull the first N feed pages (0 = all).
//
// Clips already present in the session (same clip_id) are skipped.
func (im *Importer) PostImport(c *gin.Context) {
	req := new(PostImportRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	clips, err := im.collectClips(c, req)
	if err != nil {
		abortClientErr(c, err)
		return
	}

	pid, sid := c.Param("pid"), c.Param("sid")

	project, err := im.Store.GetProject(pid)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	seen := sessionClipIDs(project, sid)

	var tracks []library.Track
	skipped := 0
	for _, clip := range clips {
		if seen[clip.ID] {
			skipped++
			continue
		}
		tracks = append(tracks, trackFromClip(clip))
	}

	sess, err := im.Store.AppendTracks(pid, sid, tracks)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			c.JSON(404, gin.H{"error": err.Error()})
		} else {
			c.JSON(500, gin.H{"error": err.Error()})
		}
		return
	}

	logger.WithField("project", pid).WithField("session", sid).
		WithField("imported", len(tracks)).WithField("skipped", skipped).
		Info("PostImport: success")

	c.JSON(200, PostImportResponse{
		Session:  sess,
		Imported: len(tracks),
		Skipped:  skipped,
	})
}

func (im *Importer) collectClips(c *gin.Context, req *PostImportRequest) ([]Clip, error) {
	if len(req.ClipIDs) > 0 {
		clips := make([]Clip, 0, len(req.ClipIDs))
		for _, id := range req.ClipIDs {
			clip, err := im.Client.Clip(c, id)
			if err != nil {
				return nil, err
			}
			clips = append(clips, *clip)
		}
		return clips, nil
	}
	return im.Client.FeedAll(c, req.Pages)
}

func trackFromClip(clip Clip) library.Track {
	return library.Track{
		ClipID:    clip.ID,
		Title:     clip.Title,
		Style:     clip.Metadata.Tags,
		Prompt:    clip.Metadata.Prompt,
		Duration:  clip.Metadata.Duration,
		AudioURL:  clip.AudioURL,
		ImageURL:  clip.ImageURL,
		CreatedAt: clip.CreatedAt,
	}
}

func sessionClipIDs(p *library.Project, sessionID string) map[string]bool {
	seen := make(map[string]bool)
	for _, sess := range p.Sessions {
		if sess.ID != sessionID {
			continue
		}
		for _, t := range sess.Tracks {
			if t.ClipID != "" {
				seen[t.ClipID] = true
			}
		}
	}
	return seen
}

func abortClientErr(c *gin.Context, err error) {
	if errors.Is(err, ErrUnauthorized) {
		c.JSON(401, gin.H{"error": err.Error()})
		return
	}
	c.JSON(502, gin.H{"error": err.Error()})
}
