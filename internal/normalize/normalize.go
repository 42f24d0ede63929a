// Package normalize maps the free-text location, category, and price
// strings found on upstream listings onto a canonical vocabulary.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback buckets for input that matches nothing in the alias tables.
const (
	OtherLocation  = "Other"
	CustomCategory = "Custom"
)

var titleCaser = cases.Title(language.English)

// cityAliases folds the spelling variants seen across upstream sites onto
// one canonical city name.
var cityAliases = map[string]string{
	"bengaluru":  "Bangalore",
	"bangalore":  "Bangalore",
	"bombay":     "Mumbai",
	"mumbai":     "Mumbai",
	"new delhi":  "Delhi",
	"delhi":      "Delhi",
	"delhi ncr":  "Delhi",
	"gurugram":   "Gurgaon",
	"gurgaon":    "Gurgaon",
	"madras":     "Chennai",
	"chennai":    "Chennai",
	"calcutta":   "Kolkata",
	"kolkata":    "Kolkata",
	"mysuru":     "Mysore",
	"mysore":     "Mysore",
	"cochin":     "Kochi",
	"kochi":      "Kochi",
	"poona":      "Pune",
	"pune":       "Pune",
	"hyderabad":  "Hyderabad",
	"noida":      "Noida",
	"trivandrum": "Thiruvananthapuram",
}

// categoryAliases maps distance shorthand and common labels onto the
// canonical race categories.
var categoryAliases = map[string]string{
	"42k":           "Marathon",
	"42.2k":         "Marathon",
	"fm":            "Marathon",
	"full marathon": "Marathon",
	"marathon":      "Marathon",
	"21k":           "Half Marathon",
	"21.1k":         "Half Marathon",
	"hm":            "Half Marathon",
	"half marathon": "Half Marathon",
	"10k":           "10K",
	"10 km":         "10K",
	"5k":            "5K",
	"5 km":          "5K",
	"3k":            "3K",
	"3 km":          "3K",
	"ultra":         "Ultra",
	"fun run":       "Fun Run",
	"trail run":     "Trail Run",
	"night run":     "Night Run",
	"relay":         "Relay",
	"virtual run":   "Virtual Run",
}

// Location maps a free-text city or venue string onto the canonical city
// name. Unknown input is returned title-cased rather than dropped; empty
// input falls into the "Other" bucket.
func Location(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return OtherLocation
	}
	if city, ok := cityAliases[s]; ok {
		return city
	}
	return titleCaser.String(s)
}

// Category maps a free-text race-type string onto a canonical category.
// Unknown input is returned title-cased; empty input maps to "Custom" so a
// category is never empty.
func Category(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return CustomCategory
	}
	if cat, ok := categoryAliases[s]; ok {
		return cat
	}
	return titleCaser.String(s)
}

// categoryPatterns pairs each canonical category with the keyword patterns
// that identify it in titles and descriptions. Half Marathon is listed
// before Marathon so "half marathon" does not double-match the bare
// "marathon" keyword.
var categoryPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	// Numeric distances carry a leading guard so "10.5 km" is not read
	// as a "5 km" mention.
	{"Half Marathon", regexp.MustCompile(`(?i)half\s*marathon|(?:^|[^\d.])21(?:\.1)?\s*k(?:m|ilometers?)?\b`)},
	{"Marathon", regexp.MustCompile(`(?i)marathon|(?:^|[^\d.])42(?:\.2)?\s*k(?:m|ilometers?)?\b`)},
	{"10K", regexp.MustCompile(`(?i)(?:^|[^\d.])10\s*k(?:m|ilometers?)?\b`)},
	{"5K", regexp.MustCompile(`(?i)(?:^|[^\d.])5\s*k(?:m|ilometers?)?\b`)},
	{"3K", regexp.MustCompile(`(?i)(?:^|[^\d.])3\s*k(?:m|ilometers?)?\b`)},
	{"Ultra", regexp.MustCompile(`(?i)ultra|(?:^|[^\d.])(?:50|100)\s*k(?:m|ilometers?)?\b`)},
	{"Fun Run", regexp.MustCompile(`(?i)fun\s*run|fun\s*race`)},
	{"Women's Run", regexp.MustCompile(`(?i)women'?s?\s*run|women'?s?\s*race|shero`)},
	{"Corporate Run", regexp.MustCompile(`(?i)corporate\s*run|corporate\s*race`)},
	{"Trail Run", regexp.MustCompile(`(?i)trail\s*run|trail\s*race`)},
	{"Night Run", regexp.MustCompile(`(?i)night\s*run|night\s*race`)},
	{"Relay", regexp.MustCompile(`(?i)relay`)},
	{"Virtual Run", regexp.MustCompile(`(?i)virtual\s*run|virtual\s*race`)},
}

var (
	halfMarathonRe = regexp.MustCompile(`(?i)half\s*marathon`)
	distanceRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:k\b|km|kilometer)`)
)

// Categories infers race categories from an event's title and description.
// Keyword patterns are tried first; when none match, a bare distance number
// is bucketed by threshold. The result is sorted and never empty: events
// with no detectable category land in "Custom".
func Categories(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	seen := make(map[string]struct{})
	for _, cp := range categoryPatterns {
		if !cp.re.MatchString(text) {
			continue
		}
		// A "half marathon" mention alone must not also count as a
		// full Marathon.
		if cp.name == "Marathon" {
			stripped := halfMarathonRe.ReplaceAllString(text, "")
			if !cp.re.MatchString(stripped) {
				continue
			}
		}
		seen[cp.name] = struct{}{}
	}

	if len(seen) == 0 {
		if m := distanceRe.FindStringSubmatch(text); m != nil {
			if cat := bucketDistance(m[1]); cat != "" {
				seen[cat] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return []string{CustomCategory}
	}

	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

func bucketDistance(number string) string {
	km, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return ""
	}
	switch {
	case km >= 42:
		return "Marathon"
	case km >= 21:
		return "Half Marathon"
	case km >= 10:
		return "10K"
	case km >= 5:
		return "5K"
	case km >= 3:
		return "3K"
	}
	return ""
}

var (
	currencyPriceRe = regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)\s*([\d,]+)`)
	trailingPriceRe = regexp.MustCompile(`(?i)([\d,]+)\s*(?:INR|Rs\.?|₹)`)
	onwardsRe       = regexp.MustCompile(`(?i)(?:₹|Rs\.?|INR)\s*([\d,]+)\s*onwards`)
	freeRe          = regexp.MustCompile(`(?i)\bfree\b`)
	bareAmountRe    = regexp.MustCompile(`^[\d,]+(?:\.\d+)?$`)
)

// Price normalizes a free-text price fragment into "₹<amount>", "Free",
// "₹<amount> onwards", or the "Price TBD" sentinel.
func Price(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return "Price TBD"
	}
	if m := onwardsRe.FindStringSubmatch(s); m != nil {
		return "₹" + strings.ReplaceAll(m[1], ",", "") + " onwards"
	}
	if m := currencyPriceRe.FindStringSubmatch(s); m != nil {
		return "₹" + strings.ReplaceAll(m[1], ",", "")
	}
	if m := trailingPriceRe.FindStringSubmatch(s); m != nil {
		return "₹" + strings.ReplaceAll(m[1], ",", "")
	}
	if bareAmountRe.MatchString(s) {
		return "₹" + strings.ReplaceAll(s, ",", "")
	}
	if freeRe.MatchString(s) {
		return "Free"
	}
	return "Price TBD"
}
