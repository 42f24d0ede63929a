package reconcile

import (
	"testing"
	"time"

	"github.com/runmaidan/run-events/internal/event"
)

var today = time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

func raw(title, date, url, price string) *event.RawEvent {
	return &event.RawEvent{
		Title:      title,
		Date:       date,
		URL:        url,
		Price:      price,
		Categories: []string{"5K"},
		Location:   "Bangalore",
	}
}

func stored(title, date, url, price string) *event.StoredEvent {
	return &event.StoredEvent{
		ID:    event.NewID(),
		Title: title,
		Date:  date,
		URL:   url,
		Price: price,
	}
}

func snapshotOf(events ...*event.StoredEvent) *Snapshot {
	snap := &Snapshot{
		URLs:  make(map[string]struct{}),
		ByURL: make(map[string]*event.StoredEvent),
	}
	for _, evt := range events {
		snap.URLs[evt.URL] = struct{}{}
		snap.ByURL[evt.URL] = evt
		snap.Titles = append(snap.Titles, evt.Title)
	}
	return snap
}

func TestNewEventCreated(t *testing.T) {
	r := New(0)
	res := r.Reconcile([]*event.RawEvent{raw("City Run", "15 Jan 2024", "http://x/1", "₹500")}, snapshotOf(), today)

	if res.Created != 1 {
		t.Fatalf("created = %d, expected 1", res.Created)
	}
	if len(res.Upserts) != 1 {
		t.Fatalf("upserts = %d, expected 1", len(res.Upserts))
	}
}

func TestNormalization(t *testing.T) {
	r := New(0)
	evt := &event.RawEvent{Title: "city run", Date: "15 Jan", URL: "http://x/1"}
	res := r.Reconcile([]*event.RawEvent{evt}, snapshotOf(), today)

	if res.Created != 1 {
		t.Fatalf("created = %d, expected 1", res.Created)
	}
	up := res.Upserts[0]
	if up.Title != "City Run" {
		t.Errorf("title = %q, expected City Run", up.Title)
	}
	if up.Date != "15 Jan 2024" {
		t.Errorf("date = %q, expected 15 Jan 2024", up.Date)
	}
	if len(up.Categories) != 1 || up.Categories[0] != "Custom" {
		t.Errorf("categories = %v, expected [Custom]", up.Categories)
	}
	if up.Price != "Price TBD" {
		t.Errorf("price = %q, expected Price TBD", up.Price)
	}
	if up.Location != "Other" {
		t.Errorf("location = %q, expected Other", up.Location)
	}
}

func TestNoURLDropped(t *testing.T) {
	r := New(0)
	res := r.Reconcile([]*event.RawEvent{raw("Ghost Run", "15 Jan 2024", "", "₹500")}, snapshotOf(), today)

	if res.SkippedNoURL != 1 {
		t.Fatalf("skipped_no_url = %d, expected 1", res.SkippedNoURL)
	}
	if len(res.Upserts) != 0 {
		t.Error("event without URL must never reach the upsert batch")
	}
}

func TestPastDateSkipped(t *testing.T) {
	r := New(0)
	res := r.Reconcile([]*event.RawEvent{raw("Old Run", "05 Jan 2024", "http://x/old", "₹500")}, snapshotOf(), today)

	if res.SkippedPastDate != 1 {
		t.Fatalf("skipped_past_date = %d, expected 1", res.SkippedPastDate)
	}
	if len(res.Upserts) != 0 {
		t.Error("past-dated event must not be upserted")
	}
}

func TestTodayNotSkipped(t *testing.T) {
	r := New(0)
	res := r.Reconcile([]*event.RawEvent{raw("Today Run", "10 Jan 2024", "http://x/today", "₹500")}, snapshotOf(), today)

	if res.SkippedPastDate != 0 {
		t.Error("an event dated today is not past")
	}
	if res.Created != 1 {
		t.Errorf("created = %d, expected 1", res.Created)
	}
}

func TestUnparseableDatePassesThrough(t *testing.T) {
	r := New(0)
	res := r.Reconcile([]*event.RawEvent{raw("Mystery Run", "sometime soon", "http://x/m", "₹500")}, snapshotOf(), today)

	if res.Created != 1 {
		t.Errorf("unparseable date must not drop the event, created = %d", res.Created)
	}
}

func TestIntraBatchDuplicate(t *testing.T) {
	r := New(0)
	fresh := []*event.RawEvent{
		raw("City Run", "15 Jan 2024", "http://x/1", "₹500"),
		raw("City Run Again", "16 Jan 2024", "http://x/1", "₹600"),
	}
	res := r.Reconcile(fresh, snapshotOf(), today)

	if res.Created != 1 || res.SkippedDuplicate != 1 {
		t.Fatalf("created = %d, skipped_duplicate = %d, expected 1/1", res.Created, res.SkippedDuplicate)
	}
	// First occurrence wins.
	if res.Upserts[0].Date != "15 Jan 2024" {
		t.Errorf("kept event date = %q, expected the first occurrence", res.Upserts[0].Date)
	}
}

func TestKnownURLUnchangedIsSilent(t *testing.T) {
	r := New(0)
	existing := stored("City Run", "15 Jan 2024", "http://x/1", "₹500")
	res := r.Reconcile([]*event.RawEvent{raw("City Run", "15 Jan 2024", "http://x/1", "₹500")}, snapshotOf(existing), today)

	if res.Created != 0 || res.Updated != 0 {
		t.Errorf("unchanged event produced decisions: created=%d updated=%d", res.Created, res.Updated)
	}
	if len(res.Upserts) != 0 {
		t.Error("unchanged event must be excluded from the upsert batch")
	}
}

func TestKnownURLChangedIsUpdated(t *testing.T) {
	r := New(0)
	existing := stored("City Run", "15 Jan 2024", "http://x/1", "₹500")

	for _, tt := range []struct {
		name string
		evt  *event.RawEvent
	}{
		{"price change", raw("City Run", "15 Jan 2024", "http://x/1", "₹750")},
		{"date change", raw("City Run", "16 Jan 2024", "http://x/1", "₹500")},
		{"title change", raw("City Run Reloaded", "15 Jan 2024", "http://x/1", "₹500")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Reconcile([]*event.RawEvent{tt.evt}, snapshotOf(existing), today)
			if res.Updated != 1 {
				t.Errorf("updated = %d, expected 1", res.Updated)
			}
			if len(res.Upserts) != 1 {
				t.Errorf("upserts = %d, expected 1", len(res.Upserts))
			}
		})
	}
}

func TestFuzzyTitleDuplicate(t *testing.T) {
	r := New(0.90)
	existing := stored("Bangalore Midnight Marathon", "15 Feb 2024", "http://x/1", "₹500")

	// Same event re-listed under a new URL with a near-identical title.
	dup := raw("Bangalore Midnight Marathons", "15 Feb 2024", "http://y/2", "₹500")
	res := r.Reconcile([]*event.RawEvent{dup}, snapshotOf(existing), today)

	if res.SkippedDuplicate != 1 {
		t.Fatalf("skipped_duplicate = %d, expected fuzzy match to catch the re-listing", res.SkippedDuplicate)
	}

	// A genuinely different title is created.
	fresh := raw("Hyderabad Sunrise 10K", "15 Feb 2024", "http://y/3", "₹500")
	res = r.Reconcile([]*event.RawEvent{fresh}, snapshotOf(existing), today)
	if res.Created != 1 {
		t.Errorf("created = %d, expected a dissimilar title to pass", res.Created)
	}
}

func TestURLIdentityBeatsFuzzyMatch(t *testing.T) {
	r := New(0.90)
	// The stored record at this URL has a completely different title,
	// while another stored record's title is nearly identical to the
	// incoming one. URL identity must win: this is an update, not a
	// fuzzy duplicate.
	sameURL := stored("Completely Different Name", "15 Feb 2024", "http://x/1", "₹500")
	nearTitle := stored("Bangalore Midnight Marathon", "20 Feb 2024", "http://x/2", "₹900")

	incoming := raw("Bangalore Midnight Marathons", "15 Feb 2024", "http://x/1", "₹500")
	res := r.Reconcile([]*event.RawEvent{incoming}, snapshotOf(sameURL, nearTitle), today)

	if res.Updated != 1 {
		t.Errorf("updated = %d, expected URL identity to classify as update", res.Updated)
	}
	if res.SkippedDuplicate != 0 {
		t.Error("URL-known event must never be classified by fuzzy title match")
	}
}
