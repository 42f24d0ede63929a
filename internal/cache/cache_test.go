package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runmaidan/run-events/internal/event"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), ttl)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}
	return c
}

func sampleEvents() []*event.RawEvent {
	return []*event.RawEvent{
		{Title: "City Run", Date: "15 Jan 2025", URL: "http://x/1", Categories: []string{"5K"}, Price: "₹500", Source: "Test"},
		{Title: "Night Trail", Date: "20 Feb 2025", URL: "http://x/2", Categories: []string{"Trail Run"}, Price: "Free", Source: "Test"},
	}
}

func TestRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)
	events := sampleEvents()

	if err := c.Put("TestSource", events); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !c.IsValid("TestSource") {
		t.Error("expected fresh entry to be valid")
	}

	got := c.Get("TestSource")
	if len(got) != len(events) {
		t.Fatalf("Get returned %d events, expected %d", len(got), len(events))
	}
	for i := range events {
		if got[i].URL != events[i].URL || got[i].Title != events[i].Title {
			t.Errorf("event %d: got %+v, expected %+v", i, got[i], events[i])
		}
	}
}

func TestGetUnknownSource(t *testing.T) {
	c := newTestCache(t, time.Hour)
	if got := c.Get("nowhere"); len(got) != 0 {
		t.Errorf("Get of unknown source returned %d events", len(got))
	}
	if c.IsValid("nowhere") {
		t.Error("unknown source reported valid")
	}
}

func TestExpiredEntryInvalid(t *testing.T) {
	c := newTestCache(t, 50*time.Millisecond)
	if err := c.Put("TestSource", sampleEvents()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Age the file past the TTL instead of sleeping.
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(c.path("TestSource"), old, old); err != nil {
		t.Fatalf("aging cache file: %v", err)
	}

	if c.IsValid("TestSource") {
		t.Error("expired entry reported valid")
	}
}

func TestCorruptionSelfHeal(t *testing.T) {
	c := newTestCache(t, time.Hour)
	if err := c.Put("TestSource", sampleEvents()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := os.WriteFile(c.path("TestSource"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("corrupting cache file: %v", err)
	}

	if got := c.Get("TestSource"); got != nil {
		t.Errorf("Get of corrupt entry returned %d events, expected none", len(got))
	}
	if c.IsValid("TestSource") {
		t.Error("corrupt entry should have been deleted, IsValid must be false")
	}
	if _, err := os.Stat(c.path("TestSource")); !os.IsNotExist(err) {
		t.Error("corrupt cache file still on disk")
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Hour)
	for _, src := range []string{"Alpha", "Beta"} {
		if err := c.Put(src, sampleEvents()); err != nil {
			t.Fatalf("Put(%s) failed: %v", src, err)
		}
	}

	if err := c.Clear("Alpha"); err != nil {
		t.Fatalf("Clear(Alpha) failed: %v", err)
	}
	if c.IsValid("Alpha") {
		t.Error("cleared source still valid")
	}
	if !c.IsValid("Beta") {
		t.Error("clearing one source must not touch another")
	}

	if err := c.Clear(""); err != nil {
		t.Fatalf("Clear all failed: %v", err)
	}
	if c.IsValid("Beta") {
		t.Error("entry survived a full clear")
	}

	// Clearing an absent entry is not an error.
	if err := c.Clear("Alpha"); err != nil {
		t.Errorf("Clear of absent entry failed: %v", err)
	}
}

func TestCaseInsensitiveKeys(t *testing.T) {
	c := newTestCache(t, time.Hour)
	if err := c.Put("BhaagoIndia", sampleEvents()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	want := filepath.Join(c.dir, "bhaagoindia_events.json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected cache file %s: %v", want, err)
	}
	if !c.IsValid("bhaagoindia") {
		t.Error("lookup should be case-insensitive")
	}
}
