package vault

import (
	"errors"

	"tunedeck/library"
	"tunedeck/songgen"

	"github.com/cdfmlr/crud/router"
	"github.com/gin-gonic/gin"
)

// RegisterStatic serves the audio files themselves. Kept separate
// from RegisterRoutes so the player can stream without a gate token.
func (v *Vault) RegisterStatic(r gin.IRouter) {
	r.Static(AudioStaticServePath, v.AudioDir)
}

// RegisterRoutes wires the vault API routes onto r.
func (v *Vault) RegisterRoutes(r gin.IRouter) {
	// catalog CRUDs
	router.Crud[Entry](r, "/vault/entries")

	// pull a track's audio into the vault
	r.POST("/projects/:pid/sessions/:sid/tracks/:tid/download", v.PostDownload)
}

// PostDownload handles: POST /projects/:pid/sessions/:sid/tracks/:tid/download
//
// Response: {"entry": {...}} with the catalog entry of the new file.
func (v *Vault) PostDownload(c *gin.Context) {
	entry, err := v.Download(c,
		c.Param("pid"), c.Param("sid"), c.Param("tid"))

	switch {
	case err == nil:
		c.JSON(200, gin.H{"entry": entry})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, songgen.ErrUnauthorized):
		c.JSON(401, gin.H{"error": err.Error()})
	default:
		c.JSON(422, gin.H{"error": err.Error()})
	}
}
