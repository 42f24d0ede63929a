package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/normalize"
)

const allEventsBase = "https://allevents.in"

var allEventsCities = []string{"mumbai", "delhi", "bangalore", "pune", "chennai", "hyderabad", "kolkata", "ahmedabad"}

// AllEvents scrapes allevents.in through its running-marathon listing API,
// one query per city. Start dates arrive as unix timestamps.
type AllEvents struct {
	client  *http.Client
	baseURL string
	cities  []string
}

// NewAllEvents creates the AllEvents adapter.
func NewAllEvents(timeout time.Duration) *AllEvents {
	return &AllEvents{
		client:  newHTTPClient(timeout),
		baseURL: allEventsBase,
		cities:  allEventsCities,
	}
}

// Name implements Source.
func (s *AllEvents) Name() string { return "AllEvents" }

type aeListResponse struct {
	Data struct {
		Events []aeEvent `json:"events"`
	} `json:"data"`
}

type aeEvent struct {
	Title     string          `json:"title"`
	StartTime json.RawMessage `json:"start_time"`
	URL       string          `json:"url"`
	Slug      string          `json:"slug"`
	Venue     struct {
		Name string `json:"name"`
		City string `json:"city"`
	} `json:"venue"`
}

// Fetch implements Source, with the same per-city failure policy as
// CityWoofer.
func (s *AllEvents) Fetch(ctx context.Context) ([]*event.RawEvent, error) {
	var (
		events   []*event.RawEvent
		lastErr  error
		failures int
	)

	for _, city := range s.cities {
		url := fmt.Sprintf("%s/api/events/list?category=sports-fitness&subcategory=running-marathon&city=%s&page=1&limit=50", s.baseURL, city)

		var decoded aeListResponse
		if err := getJSON(ctx, s.client, url, map[string]string{
			"Accept":           "application/json, text/javascript, */*; q=0.01",
			"X-Requested-With": "XMLHttpRequest",
		}, &decoded); err != nil {
			logrus.WithError(err).WithField("city", city).Warn("allevents: city query failed")
			lastErr = err
			failures++
			continue
		}

		for _, ae := range decoded.Data.Events {
			evt, err := s.toRawEvent(ae, city)
			if err != nil {
				logrus.WithError(err).WithField("title", ae.Title).Warn("allevents: skipping malformed event")
				continue
			}
			events = append(events, evt)
		}
	}

	if failures == len(s.cities) && lastErr != nil {
		return nil, fmt.Errorf("all city queries failed: %w", lastErr)
	}
	return dedupeByURL(events), nil
}

func (s *AllEvents) toRawEvent(ae aeEvent, city string) (*event.RawEvent, error) {
	eventURL := ae.URL
	if eventURL == "" {
		if ae.Slug == "" {
			return nil, fmt.Errorf("event has no URL or slug")
		}
		eventURL = s.baseURL + "/e/" + ae.Slug
	}

	title := ae.Title
	if title == "" {
		title = "Unknown Event"
	}

	date := event.DateTBD
	if ts := rawString(ae.StartTime); ts != "" {
		if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			date = time.Unix(unix, 0).UTC().Format(event.DateLayout)
		} else {
			logrus.WithField("input", ts).Warn("allevents: unparseable start_time")
		}
	}

	location := normalize.Location(ae.Venue.City)
	if location == normalize.OtherLocation {
		location = normalize.Location(city)
	}
	if ae.Venue.Name != "" {
		location = ae.Venue.Name + ", " + location
	}

	return &event.RawEvent{
		Title:      title,
		Date:       date,
		Location:   location,
		Categories: normalize.Categories(title, ""),
		Price:      event.PriceTBD,
		URL:        eventURL,
		Source:     s.Name(),
	}, nil
}
