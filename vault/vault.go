// Package vault keeps local copies of downloaded audio. Files live in
// a directory served statically; each file gets an Entry row in a
// sqlite catalog so the collection stays browsable via CRUD routes.
//
// Exposure Routes:
//   - /audio: static audio files
//   - /vault/entries: catalog CRUDs
//   - /projects/:pid/sessions/:sid/tracks/:tid/download: pull a track
package vault

import (
	"context"
	"fmt"

	"github.com/cdfmlr/crud/log"
	"github.com/cdfmlr/crud/orm"
	"github.com/cdfmlr/crud/service"
	"github.com/sirupsen/logrus"

	"github.com/glebarez/sqlite" // pure go sqlite driver
	"gorm.io/gorm"
)

var logger = log.ZoneLogger("tunedeck/vault")

func init() {
	logger.Logger.SetLevel(logrus.InfoLevel)
}

// Entry is one downloaded audio file in the catalog.
type Entry struct {
	orm.BasicModel

	ClipID  string `gorm:"uniqueIndex"`
	Title   string
	Artist  string
	Album   string
	Comment string

	// FilePath is where the file sits on disk; FileURL is how the
	// frontend reaches it through the static route.
	FilePath string
	FileURL  string
}

// Start connects the catalog database and registers the Entry model.
// Must run before any Vault is used and before routes are wired.
func Start(dbDSN string) error {
	if err := connectDB(dbDSN); err != nil {
		return fmt.Errorf("vault.Start: connectDB failed: %w", err)
	}
	orm.RegisterModel(&Entry{})
	return nil
}

func connectDB(dsn string) error {
	var err error
	orm.DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: log.Logger4Gorm,
	})
	return err
}

// EntryExists checks if a clip is already cataloged.
func EntryExists(ctx context.Context, clipID string) bool {
	cnt, err := service.Count[Entry](ctx,
		service.FilterBy("clip_id", clipID))
	if err != nil {
		logger.WithContext(ctx).
			WithField("clip_id", clipID).
			WithError(err).
			Error("EntryExists: failed to count entries")
		return false
	}
	return cnt > 0
}

func CreateEntry(ctx context.Context, entry *Entry) error {
	return service.Create(ctx, entry, service.IfNotExist())
}
