package event

import (
	"time"

	"github.com/google/uuid"
)

// Sentinel values used when a field could not be determined upstream.
const (
	DateTBD     = "Date TBD"
	PriceTBD    = "Price TBD"
	LocationTBD = "Location TBD"
)

// DateLayout is the canonical "DD Mon YYYY" form all adapters emit.
const DateLayout = "02 Jan 2006"

// RawEvent is a normalized running event produced by a source adapter,
// before reconciliation against the store.
type RawEvent struct {
	ID                 string    `json:"id,omitempty"`
	Title              string    `json:"title"`
	Date               string    `json:"date"`
	Location           string    `json:"location"`
	Address            string    `json:"address,omitempty"`
	Categories         []string  `json:"categories"`
	Price              string    `json:"price"`
	URL                string    `json:"url"`
	Source             string    `json:"source"`
	Description        string    `json:"description,omitempty"`
	RegistrationCloses string    `json:"registration_closes,omitempty"`
	Photos             []string  `json:"photos,omitempty"`
	ScrapedAt          time.Time `json:"scraped_at,omitzero"`
}

// StoredEvent is the persisted form of an event, owned by the store.
type StoredEvent struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Date               string    `json:"date"`
	Location           string    `json:"location"`
	Address            string    `json:"address,omitempty"`
	Categories         []string  `json:"categories"`
	Price              string    `json:"price"`
	URL                string    `json:"url"`
	Source             string    `json:"source"`
	Description        string    `json:"description,omitempty"`
	RegistrationCloses string    `json:"registration_closes,omitempty"`
	Photos             []string  `json:"photos,omitempty"`
	IsVerified         bool      `json:"is_verified"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewID returns a generated event identifier.
func NewID() string {
	return uuid.NewString()
}

// FromRaw builds a StoredEvent from a RawEvent, generating an identifier
// when the raw event does not carry one. Scraper-sourced events are marked
// verified.
func FromRaw(r *RawEvent, now time.Time) *StoredEvent {
	id := r.ID
	if id == "" {
		id = NewID()
	}
	return &StoredEvent{
		ID:                 id,
		Title:              r.Title,
		Date:               r.Date,
		Location:           r.Location,
		Address:            r.Address,
		Categories:         r.Categories,
		Price:              r.Price,
		URL:                r.URL,
		Source:             r.Source,
		Description:        r.Description,
		RegistrationCloses: r.RegistrationCloses,
		Photos:             r.Photos,
		IsVerified:         true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ApplyRaw overwrites the mutable fields of s with the values from r,
// keeping the identifier and creation timestamp.
func (s *StoredEvent) ApplyRaw(r *RawEvent, now time.Time) {
	s.Title = r.Title
	s.Date = r.Date
	s.Location = r.Location
	s.Address = r.Address
	s.Categories = r.Categories
	s.Price = r.Price
	s.Source = r.Source
	s.Description = r.Description
	s.RegistrationCloses = r.RegistrationCloses
	s.Photos = r.Photos
	s.IsVerified = true
	s.UpdatedAt = now
}
