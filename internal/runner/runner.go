// Package runner ties the orchestrator, reconciler, and store into one
// pipeline run, and provides the fire-and-forget trigger surface plus
// cron-scheduled daemon runs.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/orchestrator"
	"github.com/runmaidan/run-events/internal/reconcile"
	"github.com/runmaidan/run-events/internal/store"
)

// Ticket identifies a triggered run. Done is closed when the run finishes.
type Ticket struct {
	ID        string
	Source    string
	StartedAt time.Time
	Done      chan struct{}
}

// Runner executes the scrape-reconcile-persist pipeline.
type Runner struct {
	orch  *orchestrator.Orchestrator
	rec   *reconcile.Reconciler
	store store.Store

	mu     sync.Mutex
	active *Ticket

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Runner.
func New(orch *orchestrator.Orchestrator, rec *reconcile.Reconciler, st store.Store) *Runner {
	return &Runner{orch: orch, rec: rec, store: st, now: time.Now}
}

// Run executes one full pipeline pass synchronously: scrape (all sources,
// or just source when non-empty), snapshot the store, reconcile, and bulk
// upsert the change-set. A failed upsert is returned after logging the
// change-set so it can be replayed by hand.
func (r *Runner) Run(ctx context.Context, source string) (*reconcile.Result, error) {
	var fresh []*event.RawEvent
	if source == "" {
		fresh = r.orch.ScrapeAll(ctx)
	} else {
		fresh = r.orch.ScrapeSource(ctx, source)
	}

	snap, err := Snapshot(r.store)
	if err != nil {
		return nil, err
	}

	res := r.rec.Reconcile(fresh, snap, r.now())

	if len(res.Upserts) > 0 {
		if _, err := r.store.Upsert(res.Upserts); err != nil {
			for _, evt := range res.Upserts {
				logrus.WithFields(logrus.Fields{"title": evt.Title, "url": evt.URL}).Error("upsert failed, event lost from this run")
			}
			return res, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"created":           res.Created,
		"updated":           res.Updated,
		"skipped_duplicate": res.SkippedDuplicate,
		"skipped_past_date": res.SkippedPastDate,
		"skipped_no_url":    res.SkippedNoURL,
	}).Info("reconciliation finished")
	return res, nil
}

// Trigger starts a run in the background and returns immediately. While a
// run is active, re-triggering returns the active ticket instead of
// starting a second run.
func (r *Runner) Trigger(ctx context.Context, source string) *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		select {
		case <-r.active.Done:
			// Finished; fall through and start a new run.
		default:
			logrus.WithField("ticket", r.active.ID).Info("run already active, returning existing ticket")
			return r.active
		}
	}

	t := &Ticket{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: r.now(),
		Done:      make(chan struct{}),
	}
	r.active = t

	go func() {
		defer close(t.Done)
		if _, err := r.Run(ctx, source); err != nil {
			logrus.WithError(err).WithField("ticket", t.ID).Error("background run failed")
		}
	}()

	return t
}

// ClearCache removes one source's cached results, or all of them.
func (r *Runner) ClearCache(source string) error {
	return r.orch.ClearCache(source)
}

// Schedule runs the full pipeline on the given cron schedule until ctx is
// cancelled.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		r.Trigger(ctx, "")
	})
	if err != nil {
		return err
	}
	c.Start()
	logrus.WithField("schedule", spec).Info("scrape daemon started")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// Snapshot takes the read-only store projection the reconciler works
// against: all URLs, all titles, and the (title, date, price) records
// reachable by URL.
func Snapshot(st store.Store) (*reconcile.Snapshot, error) {
	urls, err := st.URLSet()
	if err != nil {
		return nil, err
	}
	titles, err := st.TitleSet()
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]*event.StoredEvent, len(urls))
	for url := range urls {
		evt, err := st.GetByURL(url)
		if err != nil {
			return nil, err
		}
		if evt != nil {
			byURL[url] = evt
		}
	}

	return &reconcile.Snapshot{URLs: urls, Titles: titles, ByURL: byURL}, nil
}
