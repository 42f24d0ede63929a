// Package cache stores each source's most recent scrape results as a JSON
// file with a time-to-live, so repeated runs within the TTL skip the
// network entirely. A file that no longer parses is deleted and treated as
// a miss rather than an error.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/event"
)

const fileSuffix = "_events.json"

// Cache is a per-source TTL cache of scraped events.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates the cache directory if needed and returns a Cache over it.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) path(source string) string {
	return filepath.Join(c.dir, strings.ToLower(source)+fileSuffix)
}

// IsValid reports whether source has a cache entry younger than the TTL.
func (c *Cache) IsValid(source string) bool {
	info, err := os.Stat(c.path(source))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < c.ttl
}

// Get returns the cached events for source, or nil when there is no entry.
// A corrupt entry is deleted and reported as a miss.
func (c *Cache) Get(source string) []*event.RawEvent {
	path := c.path(source)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var events []*event.RawEvent
	if err := json.Unmarshal(data, &events); err != nil {
		logrus.WithError(err).WithField("source", source).Warn("deleting corrupt cache entry")
		if rmErr := os.Remove(path); rmErr != nil {
			logrus.WithError(rmErr).WithField("source", source).Warn("removing corrupt cache entry failed")
		}
		return nil
	}
	return events
}

// Put overwrites the cache entry for source.
func (c *Cache) Put(source string, events []*event.RawEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(source), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes the entry for source, or every entry when source is empty.
func (c *Cache) Clear(source string) error {
	if source != "" {
		if err := os.Remove(c.path(source)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing cache for %s: %w", source, err)
		}
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("listing cache directory: %w", err)
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("clearing cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}
