package normalize

import (
	"reflect"
	"testing"
)

func TestLocation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"bengaluru", "Bangalore"},
		{"Bengaluru", "Bangalore"},
		{"  BANGALORE  ", "Bangalore"},
		{"gurugram", "Gurgaon"},
		{"new delhi", "Delhi"},
		{"bombay", "Mumbai"},
		{"calcutta", "Kolkata"},
		// Unknown cities pass through title-cased, not dropped.
		{"shillong", "Shillong"},
		{"port blair", "Port Blair"},
		{"", "Other"},
		{"   ", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Location(tt.input); got != tt.expected {
				t.Errorf("Location(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"21k", "Half Marathon"},
		{"21K", "Half Marathon"},
		{"hm", "Half Marathon"},
		{"42k", "Marathon"},
		{"5k", "5K"},
		{"10 km", "10K"},
		{"ultra", "Ultra"},
		{"sunset beach run", "Sunset Beach Run"},
		{"", "Custom"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Category(tt.input); got != tt.expected {
				t.Errorf("Category(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		desc     string
		expected []string
	}{
		{"keyword marathon", "Mumbai Marathon 2025", "", []string{"Marathon"}},
		{"half only", "City Half Marathon", "", []string{"Half Marathon"}},
		{"half and full", "Half Marathon and Full Marathon weekend", "", []string{"Half Marathon", "Marathon"}},
		{"from description", "Sunrise Run", "Distances: 10k and 5k", []string{"10K", "5K"}},
		{"women's run", "Shero Power Run", "", []string{"Women's Run"}},
		{"distance fallback", "Lakeside Dash", "a scenic 10.5 km loop", []string{"10K"}},
		{"distance fallback marathon", "The Big One", "covering 42.2 km of city roads", []string{"Marathon"}},
		{"short distance below buckets", "Kids Dash", "a 1 km toddle", []string{"Custom"}},
		{"nothing detected", "Morning Jog Meetup", "", []string{"Custom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categories(tt.title, tt.desc)
			if len(got) == 0 {
				t.Fatal("categories must never be empty")
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Categories(%q, %q) = %v, expected %v", tt.title, tt.desc, got, tt.expected)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"₹500", "₹500"},
		{"Rs. 1,200", "₹1200"},
		{"INR 750", "₹750"},
		{"500 INR", "₹500"},
		{"₹500 onwards", "₹500 onwards"},
		{"Entry is free for all", "Free"},
		{"1,499", "₹1499"},
		{"", "Price TBD"},
		{"Contact organizer", "Price TBD"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Price(tt.input); got != tt.expected {
				t.Errorf("Price(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
