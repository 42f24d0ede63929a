package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/normalize"
)

const cityWooferBase = "https://www.citywoofer.com"

// cityWooferCities are the cities searched on each run.
var cityWooferCities = []string{"bangalore", "delhi", "mumbai", "pune", "hyderabad", "chandigarh"}

// runningKeywords gate CityWoofer results to running events; the sports
// category there mixes in everything from yoga to cricket.
var runningKeywords = []string{"run", "marathon", "race", "5k", "10k", "21k", "42k"}

// CityWoofer scrapes citywoofer.com through its event search API, one
// query per city.
type CityWoofer struct {
	client  *http.Client
	baseURL string
	cities  []string
}

// NewCityWoofer creates the CityWoofer adapter.
func NewCityWoofer(timeout time.Duration) *CityWoofer {
	return &CityWoofer{
		client:  newHTTPClient(timeout),
		baseURL: cityWooferBase,
		cities:  cityWooferCities,
	}
}

// Name implements Source.
func (s *CityWoofer) Name() string { return "CityWoofer" }

type cwSearchResponse struct {
	Events []cwEvent `json:"events"`
}

type cwEvent struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	URL       string `json:"url"`
	Slug      string `json:"slug"`
	Venue     struct {
		Name string `json:"name"`
	} `json:"venue"`
	PriceStartsAt json.RawMessage `json:"price_starts_at"`
}

// Fetch implements Source. A city whose query fails is skipped; the fetch
// only fails as a whole when every city did.
func (s *CityWoofer) Fetch(ctx context.Context) ([]*event.RawEvent, error) {
	var (
		events   []*event.RawEvent
		lastErr  error
		failures int
	)

	for _, city := range s.cities {
		batch, err := s.fetchCity(ctx, city)
		if err != nil {
			logrus.WithError(err).WithField("city", city).Warn("citywoofer: city query failed")
			lastErr = err
			failures++
			continue
		}
		events = append(events, batch...)
	}

	if failures == len(s.cities) && lastErr != nil {
		return nil, fmt.Errorf("all city queries failed: %w", lastErr)
	}
	return dedupeByURL(events), nil
}

func (s *CityWoofer) fetchCity(ctx context.Context, city string) ([]*event.RawEvent, error) {
	q := url.Values{
		"q":        {"running marathon"},
		"city":     {city},
		"category": {"sports"},
		"limit":    {"50"},
		"offset":   {"0"},
	}
	headers := map[string]string{
		"Accept":           "application/json",
		"X-Requested-With": "XMLHttpRequest",
	}

	var decoded cwSearchResponse
	if err := getJSON(ctx, s.client, s.baseURL+"/api/events/search?"+q.Encode(), headers, &decoded); err != nil {
		return nil, err
	}

	var events []*event.RawEvent
	for _, cw := range decoded.Events {
		if !isRunningTitle(cw.Title) {
			continue
		}

		eventURL := cw.URL
		if eventURL == "" {
			if cw.Slug == "" {
				logrus.WithField("title", cw.Title).Warn("citywoofer: skipping event with no URL or slug")
				continue
			}
			eventURL = s.baseURL + "/e/" + cw.Slug
		}

		location := normalize.Location(city)
		if cw.Venue.Name != "" {
			location = cw.Venue.Name + ", " + location
		}

		date := event.DateTBD
		if cw.StartDate != "" {
			date = cw.StartDate
		}

		events = append(events, &event.RawEvent{
			Title:      cw.Title,
			Date:       date,
			Location:   location,
			Categories: normalize.Categories(cw.Title, ""),
			Price:      normalize.Price(rawString(cw.PriceStartsAt)),
			URL:        eventURL,
			Source:     s.Name(),
		})
	}
	return events, nil
}

func isRunningTitle(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range runningKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
