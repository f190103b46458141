// Package songgen is a client for the music-generation service the
// tracks come from. All requests carry the user's bearer token.
package songgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cdfmlr/crud/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

var logger = log.ZoneLogger("tunedeck/songgen")

func init() {
	logger.Logger.SetLevel(logrus.InfoLevel)
}

const defaultPageDelay = time.Second

// ErrUnauthorized means the bearer token was rejected. Handlers pass
// it through as 401 so the user knows to refresh the token.
var ErrUnauthorized = errors.New("songgen: token rejected")

// Clip is one generated track as the service reports it.
type Clip struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Status    string       `json:"status"`
	AudioURL  string       `json:"audio_url"`
	ImageURL  string       `json:"image_url"`
	Metadata  ClipMetadata `json:"metadata"`
	CreatedAt time.Time    `json:"created_at"`
}

type ClipMetadata struct {
	Tags     string  `json:"tags"`
	Prompt   string  `json:"prompt"`
	Duration float64 `json:"duration"`
}

// Complete reports whether the clip has finished rendering and has
// audio to fetch.
func (c Clip) Complete() bool {
	return c.Status == "complete" && c.AudioURL != ""
}

type Client struct {
	baseURL   string
	token     string
	pageDelay time.Duration

	httpClient *http.Client
}

// NewClient builds a client for the generation service. The retrying
// transport absorbs the service's transient 5xx hiccups.
func NewClient(baseURL, token string, pageDelay time.Duration) *Client {
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Timeout = 60 * time.Second

	return &Client{
		baseURL:    baseURL,
		token:      token,
		pageDelay:  pageDelay,
		httpClient: rc.StandardClient(),
	}
}

// get issues an authorized GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("get: bad url: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("get: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: service returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("get %s: decode response: %w", path, err)
	}
	return nil
}

// Feed fetches one page of the user's generation feed.
func (c *Client) Feed(ctx context.Context, page int) ([]Clip, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))

	var clips []Clip
	if err := c.get(ctx, "/api/feed/v2", q, &clips); err != nil {
		return nil, fmt.Errorf("Feed: %w", err)
	}
	return clips, nil
}

// FeedAll walks feed pages from 0 until the first empty page or
// maxPages, sleeping pageDelay between pages so the service is not
// hammered. maxPages <= 0 means no page cap.
func (c *Client) FeedAll(ctx context.Context, maxPages int) ([]Clip, error) {
	var all []Clip
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		if page > 0 {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return all, ctx.Err()
			}
		}

		clips, err := c.Feed(ctx, page)
		if err != nil {
			return all, fmt.Errorf("FeedAll: page %d: %w", page, err)
		}
		if len(clips) == 0 {
			break
		}

		logger.WithField("page", page).WithField("clips", len(clips)).
			Debug("FeedAll: got page")
		all = append(all, clips...)
	}
	return all, nil
}

// Clip fetches metadata for a single clip by ID.
func (c *Client) Clip(ctx context.Context, id string) (*Clip, error) {
	if id == "" {
		return nil, errors.New("Clip: empty id")
	}

	clip := new(Clip)
	if err := c.get(ctx, "/api/clip/"+id, nil, clip); err != nil {
		return nil, fmt.Errorf("Clip: %w", err)
	}
	return clip, nil
}

// DownloadAudio streams the clip's mp3 into dst. The clip must be
// complete.
func (c *Client) DownloadAudio(ctx context.Context, clip *Clip, dst io.Writer) error {
	if !clip.Complete() {
		return fmt.Errorf("DownloadAudio: clip %s is not complete (status=%s)",
			clip.ID, clip.Status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clip.AudioURL, nil)
	if err != nil {
		return fmt.Errorf("DownloadAudio: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("DownloadAudio: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DownloadAudio: audio host returned status %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("DownloadAudio: copy failed: %w", err)
	}
	return nil
}
