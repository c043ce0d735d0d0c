package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"
)

// document is the on-disk layout.
type document struct {
	Users map[string]*Preferences `json:"users"`
}

// JSONStore keeps every user in one JSON file. Writes go to a temp file
// that is renamed over the original.
type JSONStore struct {
	path   string
	clock  clock.Clock
	logger *slog.Logger

	mu sync.Mutex
}

// JSONOption configures a JSONStore.
type JSONOption func(*JSONStore)

// WithClock sets the time source for timestamps.
func WithClock(c clock.Clock) JSONOption {
	return func(s *JSONStore) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) JSONOption {
	return func(s *JSONStore) { s.logger = l }
}

// NewJSONStore opens path, creating its directory if needed.
func NewJSONStore(path string, opts ...JSONOption) (*JSONStore, error) {
	s := &JSONStore{path: path, clock: clock.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "prefs.json")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return s, nil
}

// read loads the file. A missing or corrupt file reads as empty; corrupt
// reports whether the file existed but could not be parsed.
func (s *JSONStore) read() (doc *document, corrupt bool) {
	doc = &document{Users: map[string]*Preferences{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, false
	}
	if err != nil {
		s.logger.Error("read preferences", "error", err)
		return doc, false
	}
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.Error("parse preferences", "error", err)
		return &document{Users: map[string]*Preferences{}}, true
	}
	if doc.Users == nil {
		doc.Users = map[string]*Preferences{}
	}
	return doc, false
}

// quarantine moves an unparseable file to <path>.corrupt.
func (s *JSONStore) quarantine() error {
	aside := s.path + ".corrupt"
	if err := os.Rename(s.path, aside); err != nil {
		return fmt.Errorf("move corrupt preferences: %w", err)
	}
	s.logger.Warn("moved corrupt preferences aside", "path", aside)
	return nil
}

func (s *JSONStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Get returns a user's preferences.
func (s *JSONStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.read()
	p, ok := doc.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Upsert saves p.
func (s *JSONStore) Upsert(ctx context.Context, p *Preferences) (*Preferences, error) {
	rec := *p
	if err := rec.Normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, corrupt := s.read()
	if corrupt {
		if err := s.quarantine(); err != nil {
			return nil, err
		}
	}
	now := s.clock.Now().UTC()
	rec.UpdatedAt = now
	if prev, ok := doc.Users[rec.UserID]; ok && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	doc.Users[rec.UserID] = &rec

	if err := s.write(doc); err != nil {
		return nil, err
	}
	s.logger.Debug("saved preferences", "user_id", rec.UserID)
	return &rec, nil
}

// List returns every user, newest first.
func (s *JSONStore) List(ctx context.Context) ([]*Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.read()
	out := make([]*Preferences, 0, len(doc.Users))
	for _, p := range doc.Users {
		out = append(out, p)
	}
	sortNewestFirst(out)
	return out, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// Verify JSONStore implements Store at compile time.
var _ Store = (*JSONStore)(nil)
