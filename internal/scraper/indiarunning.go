package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/normalize"
)

const (
	indiaRunningAPIBase    = "https://registrations-api.indiarunning.com"
	indiaRunningEventsBase = "https://registrations.indiarunning.com"
	// The filters endpoint returns at most this many events per page; a
	// shorter page means the last one.
	indiaRunningPageSize = 12
)

// IndiaRunning scrapes indiarunning.com through its registration filter
// API. The API superseded the old HTML card scraper, which depended on
// generated CSS class names and broke with every site redeploy.
type IndiaRunning struct {
	client  *http.Client
	apiBase string
	urlBase string
}

// NewIndiaRunning creates the IndiaRunning adapter.
func NewIndiaRunning(timeout time.Duration) *IndiaRunning {
	return &IndiaRunning{
		client:  newHTTPClient(timeout),
		apiBase: indiaRunningAPIBase,
		urlBase: indiaRunningEventsBase,
	}
}

// Name implements Source.
func (s *IndiaRunning) Name() string { return "IndiaRunning" }

type irFilterRequest struct {
	PageNo  int       `json:"pageNo"`
	SortBy  string    `json:"sortBy"`
	Filters irFilters `json:"filters"`
}

type irFilters struct {
	Distance       []string `json:"distance"`
	Price          []string `json:"price"`
	EventType      []string `json:"eventType"`
	SportType      string   `json:"sportType"`
	Cities         []string `json:"cities"`
	Certifications []string `json:"certifications"`
	EventDateDays  []string `json:"eventDateDays"`
}

type irFilterResponse struct {
	Events []irEvent `json:"events"`
}

type irEvent struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	EventDate *struct {
		Start string `json:"start"`
	} `json:"eventDate"`
	LocationInfo struct {
		City string `json:"city"`
		Area string `json:"area"`
	} `json:"locationInfo"`
	Categories []struct {
		Category string `json:"category"`
	} `json:"categories"`
	Price     json.RawMessage `json:"price"`
	AboutRace []struct {
		Content string `json:"content"`
	} `json:"aboutRace"`
}

// Fetch implements Source, paginating through the filter API until it
// serves a short page.
func (s *IndiaRunning) Fetch(ctx context.Context) ([]*event.RawEvent, error) {
	var events []*event.RawEvent

	for page := 1; ; page++ {
		batch, err := s.fetchPage(ctx, page)
		if err != nil {
			// Losing the first page means the fetch failed outright;
			// later pages failing just truncates the listing.
			if page == 1 {
				return nil, err
			}
			logrus.WithError(err).Warnf("indiarunning: page %d failed, keeping %d events", page, len(events))
			break
		}

		for _, ir := range batch {
			evt, err := s.toRawEvent(ir)
			if err != nil {
				logrus.WithError(err).WithField("title", ir.Title).Warn("indiarunning: skipping malformed event")
				continue
			}
			events = append(events, evt)
		}

		if len(batch) < indiaRunningPageSize {
			break
		}
	}

	return dedupeByURL(events), nil
}

func (s *IndiaRunning) fetchPage(ctx context.Context, page int) ([]irEvent, error) {
	payload := irFilterRequest{
		PageNo: page,
		SortBy: "event-date-closest",
		Filters: irFilters{
			Distance:       []string{},
			Price:          []string{},
			EventType:      []string{},
			Cities:         []string{},
			Certifications: []string{},
			EventDateDays:  []string{},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding filter payload: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "*/*",
		"Origin":       "https://www.indiarunning.com",
		"Referer":      "https://www.indiarunning.com/",
	}
	req, err := newRequest(ctx, http.MethodPost, s.apiBase+"/ir/events/filters", bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching events page %d: unexpected status code: %d", page, resp.StatusCode)
	}

	var decoded irFilterResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding events page %d: %w", page, err)
	}
	return decoded.Events, nil
}

func (s *IndiaRunning) toRawEvent(ir irEvent) (*event.RawEvent, error) {
	if ir.Slug == "" {
		return nil, fmt.Errorf("event %q has no slug", ir.Title)
	}

	title := ir.Title
	if title == "" {
		title = "Unknown Event"
	}

	date := event.DateTBD
	if ir.EventDate != nil && ir.EventDate.Start != "" {
		if t, err := time.Parse(time.RFC3339, ir.EventDate.Start); err == nil {
			date = t.Format(event.DateLayout)
		} else {
			logrus.WithField("input", ir.EventDate.Start).Warn("indiarunning: unparseable start date")
		}
	}

	location := normalize.Location(ir.LocationInfo.City)

	var categories []string
	for _, c := range ir.Categories {
		if c.Category != "" {
			categories = append(categories, normalize.Category(c.Category))
		}
	}
	if len(categories) == 0 {
		categories = normalize.Categories(title, "")
	}

	description := ""
	if len(ir.AboutRace) > 0 {
		description = ir.AboutRace[0].Content
	}

	return &event.RawEvent{
		Title:       title,
		Date:        date,
		Location:    location,
		Categories:  categories,
		Price:       normalize.Price(rawString(ir.Price)),
		URL:         s.urlBase + "/" + strings.TrimPrefix(ir.Slug, "/"),
		Source:      s.Name(),
		Description: description,
	}, nil
}
