package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rental-watch/config"
	"rental-watch/models"
)

func TestThresholdFilter(t *testing.T) {
	f := ThresholdFilter(1.5, 1150)

	cases := []struct {
		name string
		rec  models.ListingRecord
		want bool
	}{
		{"accepted at 1100 per bed", models.ListingRecord{Price: 2200, Beds: 2, Baths: 2}, true},
		{"exactly at threshold", models.ListingRecord{Price: 2300, Beds: 2, Baths: 1.5}, true},
		{"too few baths", models.ListingRecord{Price: 2200, Beds: 2, Baths: 1}, false},
		{"too expensive per bed", models.ListingRecord{Price: 4400, Beds: 3, Baths: 2}, false},
		{"studio counts as one bed", models.ListingRecord{Price: 1100, Beds: 0, Baths: 2}, true},
		{"studio over threshold", models.ListingRecord{Price: 1200, Beds: 0, Baths: 2}, false},
		{"unknown price", models.ListingRecord{Price: models.PriceUnknown, Beds: 2, Baths: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f(tc.rec))
		})
	}
}

func TestThresholdFilterZeroDisablesClause(t *testing.T) {
	assert.True(t, ThresholdFilter(0, 1150)(models.ListingRecord{Price: 1000, Beds: 1, Baths: 0}))
	assert.True(t, ThresholdFilter(1.5, 0)(models.ListingRecord{Price: models.PriceUnknown, Baths: 2}))
}

func TestNewFilter(t *testing.T) {
	expensive := models.ListingRecord{Price: 9000, Beds: 1, Baths: 1}

	assert.True(t, NewFilter(config.FilterConfig{Enabled: false, MinBaths: 1.5, MaxPricePerBed: 1150})(expensive))
	assert.False(t, NewFilter(config.FilterConfig{Enabled: true, MinBaths: 1.5, MaxPricePerBed: 1150})(expensive))
	assert.True(t, AcceptAll(expensive))
}

func TestSourceFilterBlockWithoutEnabledStillFilters(t *testing.T) {
	sources, err := config.ParseSources([]byte(`
sources:
  - url: https://ygl.is/99334
    filter:
      min_baths: 2
      max_price_per_bed: 500
`))
	if err != nil {
		t.Fatal(err)
	}

	f := NewFilter(sources[0].FilterOr(config.FilterConfig{Enabled: true, MinBaths: 1.5, MaxPricePerBed: 1150}))
	assert.False(t, f(models.ListingRecord{Price: 9000, Beds: 1, Baths: 1}))
	assert.False(t, f(models.ListingRecord{Price: 900, Beds: 1, Baths: 2}))
	assert.True(t, f(models.ListingRecord{Price: 1000, Beds: 2, Baths: 2}))
}
