package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"tunedeck/library"
	"tunedeck/songgen"

	"github.com/bogem/id3v2/v2"
)

// this file implements pulling a track's audio into the vault:
// download, ID3 tagging, catalog entry.

// Vault is the download side of the audio store.
type Vault struct {
	AudioDir string
	// BaseUrl prefixes file urls so they work from another device on
	// the network. Empty means server-relative urls.
	BaseUrl string

	Client *songgen.Client
	Store  *library.Store
}

func NewVault(audioDir, baseUrl string, client *songgen.Client, store *library.Store) (*Vault, error) {
	if audioDir == "" {
		return nil, errors.New("NewVault: empty audio dir")
	}
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("NewVault: MkdirAll failed: %w", err)
	}
	return &Vault{AudioDir: audioDir, BaseUrl: baseUrl, Client: client, Store: store}, nil
}

// TrackTags is what gets stamped into the downloaded mp3.
type TrackTags struct {
	Title    string
	Artist   string
	Album    string
	Comment  string
	CoverURL string
}

// Download fetches the track's audio, writes ID3 frames, catalogs it,
// and records the local path back on the track. On any later failure
// the partially written file is removed.
func (v *Vault) Download(ctx context.Context, projectID, sessionID, trackID string) (*Entry, error) {
	track, err := v.Store.GetTrack(projectID, sessionID, trackID)
	if err != nil {
		return nil, err
	}

	clip, err := v.clipForTrack(ctx, track)
	if err != nil {
		return nil, err
	}

	project, err := v.Store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	tags := tagsForTrack(project, sessionID, track)

	path, err := v.saveAudio(ctx, clip, track)
	if err != nil {
		return nil, fmt.Errorf("Download: saveAudio failed: %w", err)
	}

	if err := v.writeTags(ctx, path, tags); err != nil {
		os.Remove(path) // rollback
		return nil, fmt.Errorf("Download: writeTags failed: %w", err)
	}

	entry := &Entry{
		ClipID:   clip.ID,
		Title:    tags.Title,
		Artist:   tags.Artist,
		Album:    tags.Album,
		Comment:  tags.Comment,
		FilePath: path,
		FileURL:  v.audioURL(path),
	}
	if err := CreateEntry(ctx, entry); err != nil {
		os.Remove(path) // rollback
		return nil, fmt.Errorf("Download: CreateEntry failed: %w", err)
	}

	// record the local copy on the track
	_, err = v.Store.UpdateTrack(projectID, sessionID, trackID,
		&library.TrackPatch{DownloadedPath: entry.FileURL})
	if err != nil {
		logger.WithField("track", trackID).WithError(err).
			Error("Download: failed to record downloaded path")
	}

	logger.WithField("ClipID", entry.ClipID).
		WithField("Title", entry.Title).
		WithField("FileURL", entry.FileURL).
		Info("Download: success")

	return entry, nil
}

// clipForTrack rebuilds a clip from what the track already knows, or
// refetches it when the audio URL is missing (clip was still rendering
// at import time).
func (v *Vault) clipForTrack(ctx context.Context, track *library.Track) (*songgen.Clip, error) {
	if track.AudioURL != "" {
		return &songgen.Clip{
			ID:       track.ClipID,
			Title:    track.Title,
			Status:   "complete",
			AudioURL: track.AudioURL,
			ImageURL: track.ImageURL,
		}, nil
	}

	if track.ClipID == "" {
		return nil, errors.New("clipForTrack: track has neither audio url nor clip id")
	}

	clip, err := v.Client.Clip(ctx, track.ClipID)
	if err != nil {
		return nil, fmt.Errorf("clipForTrack: %w", err)
	}
	if !clip.Complete() {
		return nil, fmt.Errorf("clipForTrack: clip %s still rendering", clip.ID)
	}
	return clip, nil
}

func tagsForTrack(project *library.Project, sessionID string, track *library.Track) TrackTags {
	artist := track.Style
	if artist == "" {
		artist = "tunedeck"
	}
	return TrackTags{
		Title:    track.Title,
		Artist:   artist,
		Album:    project.Name,
		Comment:  track.Prompt,
		CoverURL: track.ImageURL,
	}
}

// saveAudio streams the clip's audio into the vault dir. Write goes to
// a tmp name first so half-downloads never look like finished files.
func (v *Vault) saveAudio(ctx context.Context, clip *songgen.Clip, track *library.Track) (string, error) {
	filename := fmt.Sprintf("%s-%s.mp3", stringToSnake(track.Title), clip.ID)
	dst := filepath.Join(v.AudioDir, filename)

	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("saveAudio: file already exists: %s", dst)
	}

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("saveAudio: Create failed: %w", err)
	}

	if err := v.Client.DownloadAudio(ctx, clip, out); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("saveAudio: Rename failed: %w", err)
	}
	return dst, nil
}

func (v *Vault) writeTags(ctx context.Context, path string, tags TrackTags) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("writeTags: Open failed: %w", err)
	}
	defer t.Close()

	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	t.SetTitle(tags.Title)
	t.SetArtist(tags.Artist)
	t.SetAlbum(tags.Album)

	if tags.Comment != "" {
		t.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "prompt",
			Text:        tags.Comment,
		})
	}

	if tags.CoverURL != "" {
		if pic, mime, err := v.fetchCover(ctx, tags.CoverURL); err != nil {
			// a missing cover should not fail the download
			logger.WithField("url", tags.CoverURL).WithError(err).
				Warn("writeTags: cover fetch failed")
		} else {
			t.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    mime,
				PictureType: id3v2.PTFrontCover,
				Description: "cover",
				Picture:     pic,
			})
		}
	}

	return t.Save()
}

func (v *Vault) fetchCover(ctx context.Context, coverURL string) (data []byte, mime string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover host returned status %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", err
	}

	mime = resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

// audioURL maps a file path under AudioDir to its static serve URL.
func (v *Vault) audioURL(path string) string {
	u, err := url.JoinPath(v.BaseUrl, AudioStaticServePath, filepath.Base(path))
	if err != nil {
		return AudioStaticServePath + "/" + filepath.Base(path)
	}
	return u
}

// AudioStaticServePath is where the router serves AudioDir.
const AudioStaticServePath = "/audio"

// stringToSnake converts "a track title" to "a_track_title".
func stringToSnake(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}
