package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// this file indexes audio files that were not downloaded through the
// API but dropped into the vault dir by hand (or by an older tool).

// entryFromAudioFile reads tags from an audio file and builds a
// catalog entry. Falls back to the filename when the file carries no
// title tag.
func (v *Vault) entryFromAudioFile(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entry := &Entry{
		// hand-dropped files have no clip; key them by filename
		ClipID:   "file:" + filepath.Base(path),
		FilePath: path,
		FileURL:  v.audioURL(path),
	}

	m, err := tag.ReadFrom(f)
	if err == nil {
		entry.Title = m.Title()
		entry.Artist = m.Artist()
		entry.Album = m.Album()
	}

	if entry.Title == "" {
		entry.Title = strings.TrimSuffix(
			filepath.Base(path), filepath.Ext(path))
	}

	return entry, nil
}

// IndexFile catalogs one audio file if it is not already known.
func (v *Vault) IndexFile(ctx context.Context, path string) (*Entry, error) {
	entry, err := v.entryFromAudioFile(path)
	if err != nil {
		return nil, fmt.Errorf("IndexFile: %w", err)
	}

	if EntryExists(ctx, entry.ClipID) {
		return nil, fmt.Errorf("IndexFile: already cataloged: %s", path)
	}

	if err := CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("IndexFile: CreateEntry failed: %w", err)
	}

	logger.WithField("ID", entry.ID).
		WithField("Title", entry.Title).
		WithField("FileURL", entry.FileURL).
		Info("IndexFile: success")

	return entry, nil
}

// IndexDir walks the vault dir and catalogs every music file in it.
func (v *Vault) IndexDir(ctx context.Context) error {
	logger.WithField("AudioDir", v.AudioDir).Info("IndexDir: start")

	ch, err := enumMusicFiles(v.AudioDir)
	if err != nil {
		return fmt.Errorf("IndexDir: enumMusicFiles failed: %w", err)
	}

	for path := range ch {
		logger.WithField("path", path).Debug("IndexDir: IndexFile")
		if _, err := v.IndexFile(ctx, path); err != nil {
			logger.Debugf("IndexDir: IndexFile skipped: %v", err)
		}
	}
	return nil
}

// isMusicFile returns true if the file is a music file.
// It checks the file extension.
// supported extensions: .mp3, .wav, .m4a
func isMusicFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".wav", ".m4a":
		return true
	default:
		return false
	}
}

// enumMusicFiles enumerates all the music files in the directory.
// It returns a channel of the file paths.
func enumMusicFiles(dir string) (chan string, error) {
	if dir == "" {
		return nil, errors.New("empty dir")
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, errors.New("not a dir")
	}

	ch := make(chan string, 3)

	go func() {
		defer close(ch)

		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isMusicFile(path) {
				return nil
			}
			ch <- path
			return nil
		})

		if err != nil {
			logger.Errorf("enumMusicFiles: WalkDir: %v", err)
		}
	}()

	return ch, nil
}
