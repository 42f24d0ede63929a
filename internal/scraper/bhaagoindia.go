package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/runmaidan/run-events/internal/dates"
	"github.com/runmaidan/run-events/internal/event"
	"github.com/runmaidan/run-events/internal/normalize"
)

const bhaagoIndiaBase = "https://bhaagoindia.com"

// BhaagoIndia scrapes bhaagoindia.com: the search endpoint serves a JSON
// listing, and each event's HTML detail page is fetched for the date,
// price, location, and description.
type BhaagoIndia struct {
	client  *http.Client
	baseURL string
}

// NewBhaagoIndia creates the BhaagoIndia adapter.
func NewBhaagoIndia(timeout time.Duration) *BhaagoIndia {
	return &BhaagoIndia{
		client:  newHTTPClient(timeout),
		baseURL: bhaagoIndiaBase,
	}
}

// Name implements Source.
func (s *BhaagoIndia) Name() string { return "BhaagoIndia" }

type biSearchItem struct {
	DataType string `json:"datatype"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

// biDetails is what a detail page contributes beyond the listing entry.
type biDetails struct {
	date               string
	price              string
	location           string
	description        string
	registrationCloses string
}

// Fetch implements Source. Detail pages already fetched during this call
// are served from an in-memory cache so no URL is hit twice per run.
func (s *BhaagoIndia) Fetch(ctx context.Context) ([]*event.RawEvent, error) {
	var items []biSearchItem
	if err := getJSON(ctx, s.client, s.baseURL+"/search/?format=json", nil, &items); err != nil {
		return nil, err
	}

	detailCache := make(map[string]*biDetails)
	var events []*event.RawEvent

	for _, item := range items {
		if item.DataType != "event" {
			continue
		}
		if strings.TrimSpace(item.URL) == "" {
			logrus.WithField("title", item.Content).Warn("bhaagoindia: skipping event with missing URL")
			continue
		}

		url := item.URL
		if !strings.HasPrefix(url, "http") {
			url = s.baseURL + url
		}

		evt := &event.RawEvent{
			Title:      item.Content,
			Date:       event.DateTBD,
			Location:   event.LocationTBD,
			Categories: normalize.Categories(item.Content, ""),
			Price:      event.PriceTBD,
			URL:        url,
			Source:     s.Name(),
		}

		details, ok := detailCache[url]
		if !ok {
			var err error
			details, err = s.fetchDetails(ctx, url)
			if err != nil {
				logrus.WithError(err).WithField("url", url).Warn("bhaagoindia: detail page failed, keeping listing entry")
				details = &biDetails{}
			}
			detailCache[url] = details
		}
		s.applyDetails(evt, details)

		events = append(events, evt)
	}

	return dedupeByURL(events), nil
}

func (s *BhaagoIndia) applyDetails(evt *event.RawEvent, d *biDetails) {
	if d.date != "" {
		evt.Date = d.date
	}
	if d.price != "" {
		evt.Price = d.price
	}
	if d.location != "" {
		evt.Location = normalize.Location(d.location)
	}
	if d.description != "" {
		evt.Description = d.description
		evt.Categories = normalize.Categories(evt.Title, d.description)
	}
	evt.RegistrationCloses = d.registrationCloses
}

var (
	biDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}\s+[A-Za-z]{3,9}\s+20\d{2}`),
		regexp.MustCompile(`[A-Za-z]{3,9}\s+\d{1,2},\s*20\d{2}`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		regexp.MustCompile(`(?i)[A-Za-z]{3,9}\s+\d{1,2}(?:st|nd|rd|th)?,?\s*20\d{2}`),
	}
	biRegCloseRe = regexp.MustCompile(`(?i)registration.*close`)
)

func (s *BhaagoIndia) fetchDetails(ctx context.Context, url string) (*biDetails, error) {
	req, err := newRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status code: %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	d := &biDetails{}

	if desc := doc.Find(".event-description, .description, .desc").First(); desc.Length() > 0 {
		d.description = strings.TrimSpace(desc.Text())
	}

	pageText := strings.Join(strings.Fields(doc.Text()), " ")
	now := time.Now()

	// Date: dedicated element first, then pattern hunting over the page.
	if el := doc.Find(".event-date, .date, .event-datetime").First(); el.Length() > 0 {
		if t, ok := dates.Parse(strings.TrimSpace(el.Text()), now); ok {
			d.date = dates.Format(t)
		}
	}
	if d.date == "" {
		for _, re := range biDatePatterns {
			if m := re.FindString(pageText); m != "" {
				if t, ok := dates.Parse(m, now); ok {
					d.date = dates.Format(t)
					break
				}
			}
		}
	}

	// Price: dedicated element first, then the page text.
	if el := doc.Find(".event-price, .price, .fee").First(); el.Length() > 0 {
		if p := normalize.Price(strings.TrimSpace(el.Text())); p != event.PriceTBD {
			d.price = p
		}
	}
	if d.price == "" {
		if p := normalize.Price(pageText); p != event.PriceTBD {
			d.price = p
		}
	}

	if el := doc.Find(".event-location, .location").First(); el.Length() > 0 {
		d.location = strings.TrimSpace(el.Text())
	} else {
		// The site's layout classes double as the only location marker.
		doc.Find("div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			class, _ := sel.Attr("class")
			if strings.Contains(class, "text-lg") && strings.Contains(class, "text-gray-500") {
				if text := strings.TrimSpace(sel.Text()); text != "" {
					d.location = text
					return false
				}
			}
			return true
		})
	}

	if m := biRegCloseRe.FindString(pageText); m != "" {
		if idx := strings.Index(pageText, m); idx >= 0 {
			tail := pageText[idx:]
			if len(tail) > 120 {
				tail = tail[:120]
			}
			for _, re := range biDatePatterns {
				if dm := re.FindString(tail); dm != "" {
					if t, ok := dates.Parse(dm, now); ok {
						d.registrationCloses = dates.Format(t)
					}
					break
				}
			}
		}
	}

	return d, nil
}
