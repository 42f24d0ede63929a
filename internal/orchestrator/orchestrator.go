// Package orchestrator runs all source adapters concurrently with a
// cache-first policy and bounded retries, and stamps the results with run
// metadata.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/cache"
	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/scraper"
)

// errNoEvents marks an attempt that succeeded at the transport level but
// produced nothing; such attempts are retried like failures.
var errNoEvents = errors.New("no events returned")

// Orchestrator fans scrape runs out across the configured sources.
type Orchestrator struct {
	sources    []scraper.Source
	cache      *cache.Cache
	maxRetries int

	// now is injectable for tests.
	now func() time.Time
	// newBackOff builds the retry schedule for one source; replaced in
	// tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// New creates an Orchestrator over the given sources.
func New(sources []scraper.Source, c *cache.Cache, maxRetries int) *Orchestrator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	o := &Orchestrator{
		sources:    sources,
		cache:      c,
		maxRetries: maxRetries,
		now:        time.Now,
	}
	o.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Second
		bo.Multiplier = 2
		bo.RandomizationFactor = 0
		return backoff.WithMaxRetries(bo, uint64(o.maxRetries-1))
	}
	return o
}

// ScrapeAll runs every source concurrently and concatenates the results.
// A failing source contributes an empty list; it never aborts the run.
func (o *Orchestrator) ScrapeAll(ctx context.Context) []*event.RawEvent {
	results := make([][]*event.RawEvent, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src scraper.Source) {
			defer wg.Done()
			results[i] = o.scrapeWithRetry(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var all []*event.RawEvent
	for _, r := range results {
		all = append(all, r...)
	}
	logrus.WithField("total", len(all)).Info("scrape run finished")
	return all
}

// ScrapeSource runs a single source, resolved case-insensitively with
// "Scraper" and "API" suffixes ignored. An unknown name is logged and
// yields an empty result.
func (o *Orchestrator) ScrapeSource(ctx context.Context, name string) []*event.RawEvent {
	want := canonicalName(name)
	for _, src := range o.sources {
		if canonicalName(src.Name()) == want {
			return o.scrapeWithRetry(ctx, src)
		}
	}
	logrus.WithField("source", name).Error("no scraper found for source")
	return nil
}

// ClearCache removes one source's cache entry, or all of them when source
// is empty.
func (o *Orchestrator) ClearCache(source string) error {
	return o.cache.Clear(source)
}

func canonicalName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimSuffix(s, "scraper")
	s = strings.TrimSuffix(s, "api")
	return s
}

// scrapeWithRetry applies the cache-first policy, then retries the
// adapter's Fetch with exponential backoff. Results are stamped and
// written through to the cache.
func (o *Orchestrator) scrapeWithRetry(ctx context.Context, src scraper.Source) []*event.RawEvent {
	log := logrus.WithField("source", src.Name())

	if o.cache.IsValid(src.Name()) {
		if cached := o.cache.Get(src.Name()); len(cached) > 0 {
			log.WithField("events", len(cached)).Info("using cached data")
			return cached
		}
		// A valid-but-unreadable entry was corrupt and has been
		// self-healed into a miss; fall through to scraping.
	}

	attempt := 0
	var events []*event.RawEvent

	operation := func() error {
		attempt++
		log.WithField("attempt", attempt).Info("scraping")

		fetched, err := src.Fetch(ctx)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("scrape attempt failed")
			return err
		}
		if len(fetched) == 0 {
			log.WithField("attempt", attempt).Warn("no events found, retrying")
			return errNoEvents
		}
		events = fetched
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(o.newBackOff(), ctx)); err != nil {
		log.WithError(err).Error("all scrape attempts failed")
		return nil
	}

	now := o.now()
	for _, evt := range events {
		evt.ScrapedAt = now
		if evt.Source == "" {
			evt.Source = src.Name()
		}
		if evt.ID == "" {
			evt.ID = event.NewID()
		}
	}

	if err := o.cache.Put(src.Name(), events); err != nil {
		log.WithError(err).Warn("caching scrape results failed")
	} else {
		log.WithField("events", len(events)).Info("cached scrape results")
	}
	return events
}
