// Package library organizes generated tracks into projects and
// sessions, persisted as JSON documents on local disk.
package library

import "time"

// Project is the top-level unit of organization. One project is one
// JSON document on disk, sessions inline.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Sessions    []Session `json:"sessions"`
}

// Session is one generation run: the prompt/style that was submitted
// and the tracks that came back.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt,omitempty"`
	Style     string    `json:"style,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Tracks    []Track   `json:"tracks"`
}

type Track struct {
	ID       string  `json:"id"`
	ClipID   string  `json:"clip_id,omitempty"`
	Title    string  `json:"title"`
	Style    string  `json:"style,omitempty"`
	Prompt   string  `json:"prompt,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	AudioURL string  `json:"audio_url,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`

	// Rating is 0 (unrated) to 5.
	Rating int    `json:"rating"`
	Notes  string `json:"notes,omitempty"`

	// DownloadedPath is set once the audio has been pulled into the
	// local vault. Empty until then.
	DownloadedPath string    `json:"downloaded_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProjectPatch carries the fields PATCH /projects/:pid may change.
// Empty fields are left as is.
type ProjectPatch struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SessionPatch struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

// TrackPatch carries the fields PATCH .../tracks/:tid may change.
// Rating and Notes are pointers so a request can reset them to the
// zero value (unrate a track, clear its notes).
type TrackPatch struct {
	Title          string  `json:"title"`
	Rating         *int    `json:"rating"`
	Notes          *string `json:"notes"`
	DownloadedPath string  `json:"downloaded_path"`
}

func (p *ProjectPatch) apply(dst *Project) {
	if p.Name != "" {
		dst.Name = p.Name
	}
	if p.Description != "" {
		dst.Description = p.Description
	}
}

func (p *SessionPatch) apply(dst *Session) {
	if p.Name != "" {
		dst.Name = p.Name
	}
	if p.Prompt != "" {
		dst.Prompt = p.Prompt
	}
	if p.Style != "" {
		dst.Style = p.Style
	}
}

func (p *TrackPatch) apply(dst *Track) {
	if p.Title != "" {
		dst.Title = p.Title
	}
	if p.Rating != nil {
		dst.Rating = *p.Rating
	}
	if p.Notes != nil {
		dst.Notes = *p.Notes
	}
	if p.DownloadedPath != "" {
		dst.DownloadedPath = p.DownloadedPath
	}
}
