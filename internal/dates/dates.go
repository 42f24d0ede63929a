// Package dates parses the free-text date strings found on event listings
// into calendar dates, inferring the year when the listing omits it.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// tbdSentinels are inputs that mean "date not announced yet" rather than a
// parse failure.
var tbdSentinels = map[string]struct{}{
	"tbd":      {},
	"tba":      {},
	"date tbd": {},
	"date tba": {},
}

var (
	ordinalRe = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)`)
	monthRe   = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`)
)

var fullMonths = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// layouts are tried in order; the first one that parses wins. The final two
// are yearless and get the year inferred against the reference clock.
var layouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2/1/2006",
	"2006-01-02",
}

var yearlessLayouts = []string{
	"January 2",
	"2 January",
}

// Parse resolves text into a calendar date. The second return value is
// false when the input is empty, a TBD sentinel, or unparseable.
//
// Date ranges ("12 Jan - 14 Jan") resolve to their start. Yearless inputs
// default to now's year and roll forward one year when the month/day has
// already passed, so a yearless date is never in the past. The comparison
// is on the (month, day) pair; an event on today's month and day stays in
// the current year.
func Parse(text string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := tbdSentinels[strings.ToLower(s)]; ok {
		return time.Time{}, false
	}

	// Only the start of a range is meaningful.
	if i := strings.Index(s, " - "); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	s = ordinalRe.ReplaceAllString(s, "$1")
	s = monthRe.ReplaceAllStringFunc(s, func(m string) string {
		return fullMonths[strings.ToLower(m)[:3]]
	})

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		year := now.Year()
		if t.Month() < now.Month() || (t.Month() == now.Month() && t.Day() < now.Day()) {
			year++
		}
		return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}

	logrus.WithField("input", text).Warn("unable to parse date string")
	return time.Time{}, false
}

// Format renders t in the canonical "DD Mon YYYY" form.
func Format(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// IsTBD reports whether s is one of the "not announced" sentinels.
func IsTBD(s string) bool {
	_, ok := tbdSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
