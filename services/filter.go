package services

import (
	"rental-watch/config"
	"rental-watch/models"
)

// Filter decides whether a normalised record is admitted to reconciliation.
type Filter func(models.ListingRecord) bool

// AcceptAll admits every record.
func AcceptAll(models.ListingRecord) bool { return true }

// ThresholdFilter admits records with at least minBaths baths and a price per
// bed of at most maxPricePerBed. A zero threshold disables its clause. Zero
// beds count as one bed; an unknown price fails an active price clause.
func ThresholdFilter(minBaths, maxPricePerBed float64) Filter {
	return func(r models.ListingRecord) bool {
		if minBaths > 0 && r.Baths < minBaths {
			return false
		}
		if maxPricePerBed > 0 {
			if r.Price == models.PriceUnknown {
				return false
			}
			if PricePerBed(r.Price, r.Beds) > maxPricePerBed {
				return false
			}
		}
		return true
	}
}

// NewFilter builds the filter described by cfg.
func NewFilter(cfg config.FilterConfig) Filter {
	if !cfg.Enabled {
		return AcceptAll
	}
	return ThresholdFilter(cfg.MinBaths, cfg.MaxPricePerBed)
}

// PricePerBed divides price by beds, treating fewer than one bed as one.
func PricePerBed(price int64, beds float64) float64 {
	if beds < 1 {
		beds = 1
	}
	return float64(price) / beds
}
