package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/runmaidan/run-events/internal/event"
)

// Store is the persistence contract the pipeline reconciles against.
type Store interface {
	// URLSet returns every stored event URL.
	URLSet() (map[string]struct{}, error)
	// TitleSet returns every stored event title.
	TitleSet() ([]string, error)
	// GetByURL returns the stored event with the given URL, or nil when
	// none exists.
	GetByURL(url string) (*event.StoredEvent, error)
	// Upsert matches each event by URL, updating all fields except the
	// identifier on a match and inserting with a generated identifier
	// otherwise. The whole batch is applied atomically.
	Upsert(events []*event.RawEvent) ([]*event.StoredEvent, error)
}

const snapshotFile = "events.json"

// FileStore persists events as a single JSON document keyed by URL.
type FileStore struct {
	dataDir string
	now     func() time.Time
}

// snapshot is the on-disk document.
type snapshot struct {
	Events    map[string]*event.StoredEvent `json:"events"`
	UpdatedAt string                        `json:"updated_at"`
}

// NewFileStore creates the data directory if needed and returns a
// FileStore over it. A leading "~/" expands to the home directory.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileStore{dataDir: dataDir, now: time.Now}, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, snapshotFile)
}

func (s *FileStore) load() (*snapshot, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &snapshot{Events: make(map[string]*event.StoredEvent)}, nil
		}
		return nil, fmt.Errorf("reading event store: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing event store: %w", err)
	}
	if snap.Events == nil {
		snap.Events = make(map[string]*event.StoredEvent)
	}
	return &snap, nil
}

// save writes the snapshot through a temp file and rename so a failed
// write never leaves a half-written store behind.
func (s *FileStore) save(snap *snapshot) error {
	snap.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding event store: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing event store: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("replacing event store: %w", err)
	}
	return nil
}

// URLSet implements Store.
func (s *FileStore) URLSet() (map[string]struct{}, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	urls := make(map[string]struct{}, len(snap.Events))
	for url := range snap.Events {
		urls[url] = struct{}{}
	}
	return urls, nil
}

// TitleSet implements Store.
func (s *FileStore) TitleSet() ([]string, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(snap.Events))
	for _, evt := range snap.Events {
		titles = append(titles, evt.Title)
	}
	sort.Strings(titles)
	return titles, nil
}

// GetByURL implements Store.
func (s *FileStore) GetByURL(url string) (*event.StoredEvent, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	return snap.Events[url], nil
}

// Upsert implements Store.
func (s *FileStore) Upsert(events []*event.RawEvent) ([]*event.StoredEvent, error) {
	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result := make([]*event.StoredEvent, 0, len(events))
	for _, raw := range events {
		if raw.URL == "" {
			return nil, fmt.Errorf("upsert: event %q has no URL", raw.Title)
		}
		if existing, ok := snap.Events[raw.URL]; ok {
			existing.ApplyRaw(raw, now)
			result = append(result, existing)
			continue
		}
		stored := event.FromRaw(raw, now)
		snap.Events[raw.URL] = stored
		result = append(result, stored)
	}

	if err := s.save(snap); err != nil {
		return nil, err
	}
	return result, nil
}
