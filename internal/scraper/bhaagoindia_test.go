package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newBhaagoIndiaServer(t *testing.T, handler http.HandlerFunc) *BhaagoIndia {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewBhaagoIndia(0)
	s.baseURL = srv.URL
	return s
}

func TestBhaagoIndiaFetch(t *testing.T) {
	detail, err := os.ReadFile(filepath.Join("testdata", "bhaagoindia_detail.html"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	var detailHits int
	s := newBhaagoIndiaServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/":
			fmt.Fprint(w, `[
				{"datatype": "event", "content": "Hyderabad Half Marathon", "url": "/events/hyderabad-half-marathon/"},
				{"datatype": "event", "content": "Hyderabad Half Marathon", "url": "/events/hyderabad-half-marathon/"},
				{"datatype": "blog", "content": "Training Tips", "url": "/blog/training-tips/"},
				{"datatype": "event", "content": "Orphan Run", "url": ""}
			]`)
		case "/events/hyderabad-half-marathon/":
			detailHits++
			w.Write(detail)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	events, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, expected non-events and URL-less entries dropped", len(events))
	}
	if detailHits != 1 {
		t.Errorf("detail page fetched %d times, expected the cache to hold it to 1", detailHits)
	}

	evt := events[0]
	if evt.Title != "Hyderabad Half Marathon" {
		t.Errorf("title = %q", evt.Title)
	}
	if evt.Date != "24 Aug 2026" {
		t.Errorf("date = %q, expected 24 Aug 2026", evt.Date)
	}
	if evt.Price != "₹899 onwards" {
		t.Errorf("price = %q, expected ₹899 onwards", evt.Price)
	}
	if evt.Location != "Gachibowli Stadium, Hyderabad" {
		t.Errorf("location = %q", evt.Location)
	}
	if evt.RegistrationCloses != "20 Aug 2026" {
		t.Errorf("registration closes = %q, expected 20 Aug 2026", evt.RegistrationCloses)
	}
	if evt.Source != "BhaagoIndia" {
		t.Errorf("source = %q", evt.Source)
	}

	var hasHalf, has10K bool
	for _, c := range evt.Categories {
		switch c {
		case "Half Marathon":
			hasHalf = true
		case "10K":
			has10K = true
		}
	}
	if !hasHalf || !has10K {
		t.Errorf("categories = %v, expected Half Marathon and 10K from the description", evt.Categories)
	}
}

func TestBhaagoIndiaDetailFailureKeepsListing(t *testing.T) {
	s := newBhaagoIndiaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search/" {
			fmt.Fprint(w, `[{"datatype": "event", "content": "Pune Night Run", "url": "/events/pune-night-run/"}]`)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	events, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, expected the listing entry kept", len(events))
	}

	evt := events[0]
	if evt.Date != "Date TBD" || evt.Price != "Price TBD" || evt.Location != "Location TBD" {
		t.Errorf("listing defaults not preserved: date=%q price=%q location=%q", evt.Date, evt.Price, evt.Location)
	}
	if len(evt.Categories) == 0 {
		t.Error("categories must never be empty")
	}
}

func TestBhaagoIndiaSearchFailure(t *testing.T) {
	s := newBhaagoIndiaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	if _, err := s.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error when the search endpoint fails")
	}
}
