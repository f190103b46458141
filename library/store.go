package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cdfmlr/crud/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = log.ZoneLogger("tunedeck/library")

func init() {
	logger.Logger.SetLevel(logrus.InfoLevel)
}

// ErrNotFound is returned when a project, session or track ID does not
// exist. Handlers map it to 404.
var ErrNotFound = errors.New("not found")

var ErrRatingRange = errors.New("rating must be between 0 and 5")

// Store keeps each project as one JSON document under Dir. Every
// operation reads the document from disk, works on it in memory, and
// flushes it back, so edits made by hand between requests survive.
type Store struct {
	Dir string

	mu sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("NewStore: empty dir")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("NewStore: MkdirAll failed: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) projectPath(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

// load reads one project document. ErrNotFound if the file is missing.
func (s *Store) load(id string) (*Project, error) {
	data, err := os.ReadFile(s.projectPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load: ReadFile failed: %w", err)
	}

	p := new(Project)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("load: bad project document %s: %w", id, err)
	}
	return p, nil
}

// flush writes the project document atomically: temp file then rename,
// so a failed write never clobbers the previous version.
func (s *Store) flush(p *Project) error {
	p.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("flush: Marshal failed: %w", err)
	}

	dst := s.projectPath(p.ID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("flush: WriteFile failed: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("flush: Rename failed: %w", err)
	}
	return nil
}

// ListProjects scans Dir and decodes every project document. Corrupt
// documents are skipped with a logged error so one bad file does not
// hide the rest of the library.
func (s *Store) ListProjects() ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("ListProjects: ReadDir failed: %w", err)
	}

	var projects []*Project
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		p, err := s.load(id)
		if err != nil {
			logger.WithField("file", e.Name()).WithError(err).
				Error("ListProjects: skipping bad document")
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *Store) CreateProject(name, description string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		Sessions:    []Session{},
	}
	if err := s.flush(p); err != nil {
		return nil, err
	}

	logger.WithField("ID", p.ID).WithField("Name", p.Name).
		Info("CreateProject: success")
	return p, nil
}

func (s *Store) UpdateProject(id string, patch *ProjectPatch) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(id)
	if err != nil {
		return nil, err
	}
	patch.apply(p)
	if err := s.flush(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.projectPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *Store) AddSession(projectID string, sess Session) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.Tracks == nil {
		sess.Tracks = []Track{}
	}
	for i := range sess.Tracks {
		if sess.Tracks[i].ID == "" {
			sess.Tracks[i].ID = uuid.NewString()
		}
	}

	p.Sessions = append(p.Sessions, sess)
	if err := s.flush(p); err != nil {
		return nil, err
	}
	return &p.Sessions[len(p.Sessions)-1], nil
}

func (s *Store) UpdateSession(projectID, sessionID string, patch *SessionPatch) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	sess := findSession(p, sessionID)
	if sess == nil {
		return nil, ErrNotFound
	}
	patch.apply(sess)
	if err := s.flush(p); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) DeleteSession(projectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return err
	}
	for i := range p.Sessions {
		if p.Sessions[i].ID == sessionID {
			p.Sessions = append(p.Sessions[:i], p.Sessions[i+1:]...)
			return s.flush(p)
		}
	}
	return ErrNotFound
}

// AppendTracks adds tracks to a session, minting IDs for them. Used by
// the songgen import path.
func (s *Store) AppendTracks(projectID, sessionID string, tracks []Track) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	sess := findSession(p, sessionID)
	if sess == nil {
		return nil, ErrNotFound
	}

	for _, t := range tracks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		sess.Tracks = append(sess.Tracks, t)
	}

	if err := s.flush(p); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) GetTrack(projectID, sessionID, trackID string) (*Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	sess := findSession(p, sessionID)
	if sess == nil {
		return nil, ErrNotFound
	}
	t := findTrack(sess, trackID)
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTrack(projectID, sessionID, trackID string, patch *TrackPatch) (*Track, error) {
	if patch.Rating != nil && (*patch.Rating < 0 || *patch.Rating > 5) {
		return nil, ErrRatingRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	sess := findSession(p, sessionID)
	if sess == nil {
		return nil, ErrNotFound
	}
	t := findTrack(sess, trackID)
	if t == nil {
		return nil, ErrNotFound
	}
	patch.apply(t)
	if err := s.flush(p); err != nil {
		return nil, err
	}
	return t, nil
}

func findSession(p *Project, id string) *Session {
	for i := range p.Sessions {
		if p.Sessions[i].ID == id {
			return &p.Sessions[i]
		}
	}
	return nil
}

func findTrack(sess *Session, id string) *Track {
	for i := range sess.Tracks {
		if sess.Tracks[i].ID == id {
			return &sess.Tracks[i]
		}
	}
	return nil
}
