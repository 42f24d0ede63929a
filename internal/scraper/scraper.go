package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/runmaidan/run-events/internal/event"
)

// DefaultTimeout bounds every upstream HTTP request.
const DefaultTimeout = 30 * time.Second

// Source is an upstream event listing site.
type Source interface {
	// Name identifies the source; it is also the cache key and the value
	// stamped into RawEvent.Source.
	Name() string
	// Fetch extracts all currently listed events. Item-level extraction
	// errors are swallowed and logged; a returned error means the fetch
	// as a whole failed and may be retried.
	Fetch(ctx context.Context) ([]*event.RawEvent, error)
}

// All returns one adapter per supported upstream site.
func All(timeout time.Duration) []Source {
	return []Source{
		NewIndiaRunning(timeout),
		NewBhaagoIndia(timeout),
		NewCityWoofer(timeout),
		NewAllEvents(timeout),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// browserHeaders makes requests look like an ordinary browser session;
// several upstream sites refuse obvious bot traffic.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Connection":      "keep-alive",
}

func newRequest(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// getJSON fetches url and decodes the response body into v.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, v any) error {
	req, err := newRequest(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status code: %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// dedupeByURL keeps the first occurrence of each URL and drops events that
// have none.
func dedupeByURL(events []*event.RawEvent) []*event.RawEvent {
	seen := make(map[string]bool, len(events))
	unique := make([]*event.RawEvent, 0, len(events))
	for _, evt := range events {
		if evt.URL == "" || seen[evt.URL] {
			continue
		}
		seen[evt.URL] = true
		unique = append(unique, evt)
	}
	return unique
}

// rawString renders a JSON value that may arrive as either a string or a
// number ("price": 500 vs "price": "500").
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
