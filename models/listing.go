package models

import (
	"strings"
	"time"
)

// PriceUnknown marks a record whose price was not captured.
const PriceUnknown int64 = -1

// RawListing holds one unprocessed sighting exactly as the record parser saw it.
// Columns follow the upstream column contract: {price, beds, baths, date}.
type RawListing struct {
	Address   string
	Ref       string
	Columns   []string
	Source    string
	Page      int
	ScrapedAt time.Time
}

// ListingRecord is the normalised form of one sighting.
type ListingRecord struct {
	Address    string
	Price      int64
	Beds       float64
	Baths      float64
	ListedDate string
	SourceRef  string
}

// KnownListing is the accumulated state for one address in the known-listings index.
type KnownListing struct {
	Address     string    `json:"address"`
	Refs        []string  `json:"refs"`
	Price       int64     `json:"price"`
	Beds        float64   `json:"beds"`
	Baths       float64   `json:"baths"`
	ListedDate  string    `json:"date"`
	Notes       string    `json:"notes"`
	Favorite    bool      `json:"isFavorite"`
	Dismissed   bool      `json:"isDismissed"`
	FirstSeenAt time.Time `json:"timestamp"`
}

// NewKnownListing builds the first-seen entry for a record.
func NewKnownListing(rec ListingRecord, seenAt time.Time) KnownListing {
	return KnownListing{
		Address:     rec.Address,
		Refs:        []string{rec.SourceRef},
		Price:       rec.Price,
		Beds:        rec.Beds,
		Baths:       rec.Baths,
		ListedDate:  rec.ListedDate,
		FirstSeenAt: seenAt,
	}
}

// HasRef reports whether ref was already recorded for this listing.
func (k KnownListing) HasRef(ref string) bool {
	for _, r := range k.Refs {
		if r == ref {
			return true
		}
	}
	return false
}

// WithRef returns a copy of k with ref appended, unless it is already present.
// The receiver's slice is never shared with the result.
func (k KnownListing) WithRef(ref string) KnownListing {
	refs := make([]string, len(k.Refs), len(k.Refs)+1)
	copy(refs, k.Refs)
	if !k.HasRef(ref) {
		refs = append(refs, ref)
	}
	k.Refs = refs
	return k
}

// Clone returns a deep copy.
func (k KnownListing) Clone() KnownListing {
	k.Refs = append([]string(nil), k.Refs...)
	return k
}

// Curation holds the user-owned fields. Nil pointers leave a field untouched.
type Curation struct {
	Notes     *string `json:"notes,omitempty"`
	Favorite  *bool   `json:"isFavorite,omitempty"`
	Dismissed *bool   `json:"isDismissed,omitempty"`
}

// Apply returns k with the set curation fields overwritten.
func (c Curation) Apply(k KnownListing) KnownListing {
	if c.Notes != nil {
		k.Notes = *c.Notes
	}
	if c.Favorite != nil {
		k.Favorite = *c.Favorite
	}
	if c.Dismissed != nil {
		k.Dismissed = *c.Dismissed
	}
	return k
}

// Classification is the outcome of reconciling one record.
type Classification int

const (
	NewListing Classification = iota + 1
	RepeatSighting
)

func (c Classification) String() string {
	switch c {
	case NewListing:
		return "new"
	case RepeatSighting:
		return "repeat"
	default:
		return "unknown"
	}
}

// SourceReport summarises one source's walk.
type SourceReport struct {
	Source    string
	Pages     int
	Items     int
	Malformed int
	Filtered  int
	New       int
	Repeat    int
	Notified  int
	Err       error
}

// RunReport summarises one ingestion run.
type RunReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Sources   []SourceReport
}

// TotalNew sums new listings across all sources.
func (r *RunReport) TotalNew() int {
	n := 0
	for _, s := range r.Sources {
		n += s.New
	}
	return n
}

// InsightReport holds the computed analytics over the known-listings index.
type InsightReport struct {
	TotalListings     int            `json:"totalListings"`
	NewSince          int            `json:"newSince"`
	Favorites         int            `json:"favorites"`
	Dismissed         int            `json:"dismissed"`
	AveragePrice      float64        `json:"averagePrice"`
	MinPrice          int64          `json:"minPrice"`
	MaxPrice          int64          `json:"maxPrice"`
	CheapestPerBed    *KnownListing  `json:"cheapestPerBed,omitempty"`
	CheapestPerBedAmt float64        `json:"cheapestPerBedAmount"`
	ListingsByHost    map[string]int `json:"listingsByHost"`
}

// RefHost returns the host part of a reference such as "ygl.is/12345/678".
func RefHost(ref string) string {
	ref = strings.TrimPrefix(strings.TrimPrefix(ref, "https://"), "http://")
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		return ref[:i]
	}
	return ref
}
