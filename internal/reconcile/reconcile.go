// Package reconcile classifies freshly scraped events against the event
// store, deciding which are new, which changed, and which to skip.
package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/dates"
	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/normalize"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultFuzzyThreshold is the title similarity at or above which an event
// with an unknown URL is considered a re-listing of a stored event.
const DefaultFuzzyThreshold = 0.90

// Decision classifies one incoming event.
type Decision string

const (
	Created          Decision = "created"
	Updated          Decision = "updated"
	SkippedDuplicate Decision = "skipped_duplicate"
	SkippedPastDate  Decision = "skipped_past_date"
	SkippedNoURL     Decision = "skipped_no_url"
)

// Detail records the decision for one event, with the triggering reason.
type Detail struct {
	Decision Decision `json:"decision"`
	Title    string   `json:"title"`
	URL      string   `json:"url,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Result is the outcome of one reconciliation pass. Upserts holds the
// created and updated events destined for a single bulk store call;
// unchanged events appear nowhere.
type Result struct {
	Created          int      `json:"created"`
	Updated          int      `json:"updated"`
	SkippedDuplicate int      `json:"skipped_duplicate"`
	SkippedPastDate  int      `json:"skipped_past_date"`
	SkippedNoURL     int      `json:"skipped_no_url"`
	Details          []Detail `json:"details"`

	Upserts []*event.RawEvent `json:"-"`
}

// Snapshot is the read-only projection of the store taken once per run.
type Snapshot struct {
	URLs   map[string]struct{}
	Titles []string
	ByURL  map[string]*event.StoredEvent
}

// Reconciler compares scraped events against a store snapshot.
type Reconciler struct {
	threshold float64
	sim       *metrics.Levenshtein
}

var titleCaser = cases.Title(language.English)

// New creates a Reconciler. A non-positive threshold falls back to
// DefaultFuzzyThreshold.
func New(threshold float64) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Reconciler{threshold: threshold, sim: metrics.NewLevenshtein()}
}

// Reconcile classifies fresh against snap. Decisions are made in a fixed
// order per event: missing URL, past date, intra-batch duplicate, known
// URL (authoritative; update on any title/date/price change, silence on
// none), then fuzzy title match for unknown URLs.
func (r *Reconciler) Reconcile(fresh []*event.RawEvent, snap *Snapshot, today time.Time) *Result {
	res := &Result{}
	if snap == nil {
		snap = &Snapshot{}
	}

	seen := make(map[string]struct{}, len(fresh))

	for _, evt := range fresh {
		evt.Title = titleCaser.String(strings.ToLower(evt.Title))
		evt.Location = normalize.Location(evt.Location)
		cats := make([]string, 0, len(evt.Categories))
		for _, c := range evt.Categories {
			cats = append(cats, normalize.Category(c))
		}
		if len(cats) == 0 {
			cats = []string{normalize.CustomCategory}
		}
		evt.Categories = cats
		evt.Price = normalize.Price(evt.Price)

		if evt.URL == "" {
			logrus.WithField("title", evt.Title).Warn("skipping event without URL")
			res.SkippedNoURL++
			res.Details = append(res.Details, Detail{Decision: SkippedNoURL, Title: evt.Title, Reason: "missing URL"})
			continue
		}

		if t, ok := dates.Parse(evt.Date, today); ok {
			evt.Date = dates.Format(t)
			y, m, d := today.Date()
			if t.Before(time.Date(y, m, d, 0, 0, 0, 0, t.Location())) {
				res.SkippedPastDate++
				res.Details = append(res.Details, Detail{Decision: SkippedPastDate, Title: evt.Title, URL: evt.URL, Reason: "event date " + evt.Date + " is in the past"})
				continue
			}
		} else if !dates.IsTBD(evt.Date) {
			// Never drop what we cannot confidently classify as stale.
			logrus.WithFields(logrus.Fields{"title": evt.Title, "date": evt.Date}).Warn("unparseable date, keeping event")
		}

		if _, dup := seen[evt.URL]; dup {
			res.SkippedDuplicate++
			res.Details = append(res.Details, Detail{Decision: SkippedDuplicate, Title: evt.Title, URL: evt.URL, Reason: "duplicate URL in batch"})
			continue
		}
		seen[evt.URL] = struct{}{}

		if _, known := snap.URLs[evt.URL]; known {
			existing := snap.ByURL[evt.URL]
			if existing != nil && existing.Title == evt.Title && existing.Date == evt.Date && existing.Price == evt.Price {
				// Unchanged; excluded from the upsert batch.
				continue
			}
			res.Updated++
			res.Details = append(res.Details, Detail{Decision: Updated, Title: evt.Title, URL: evt.URL})
			res.Upserts = append(res.Upserts, evt)
			continue
		}

		if match, score := r.bestTitleMatch(evt.Title, snap.Titles); score >= r.threshold {
			res.SkippedDuplicate++
			res.Details = append(res.Details, Detail{Decision: SkippedDuplicate, Title: evt.Title, URL: evt.URL, Reason: "title matches stored event " + strconv.Quote(match)})
			continue
		}

		res.Created++
		res.Details = append(res.Details, Detail{Decision: Created, Title: evt.Title, URL: evt.URL})
		res.Upserts = append(res.Upserts, evt)
	}

	return res
}

// bestTitleMatch returns the stored title most similar to title and its
// similarity on a 0..1 scale.
func (r *Reconciler) bestTitleMatch(title string, titles []string) (string, float64) {
	var (
		best      string
		bestScore float64
	)
	lower := strings.ToLower(title)
	for _, t := range titles {
		score := strutil.Similarity(lower, strings.ToLower(t), r.sim)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best, bestScore
}
