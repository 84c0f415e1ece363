package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"rental-watch/models"
	"rental-watch/utils"
)

var runStart = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

func sampleListings() []models.KnownListing {
	return []models.KnownListing{
		{Address: "100 Beefcake Rd", Refs: []string{"ygl.is/1", "ygl.is/9"}, Price: 2200, Beds: 2, Baths: 2, FirstSeenAt: runStart},
		{Address: "12 Lemon St #3", Refs: []string{"ygl.is/2"}, Price: 4400, Beds: 4, Baths: 1.5, Favorite: true, FirstSeenAt: runStart.Add(-48 * time.Hour)},
		{Address: "7 Hay St", Refs: []string{"ygl.is/3", "rentals.example.com/7"}, Price: 900, Beds: 1, Baths: 1, Dismissed: true, FirstSeenAt: runStart.Add(time.Minute)},
		{Address: "1 Commonwealth Ave", Refs: []string{"rentals.example.com/1"}, Price: models.PriceUnknown, Beds: 3, Baths: 2, FirstSeenAt: runStart.Add(-time.Hour)},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings(), runStart)
	if r.TotalListings != 4 {
		t.Errorf("TotalListings: got %d, want 4", r.TotalListings)
	}
	if r.NewSince != 2 {
		t.Errorf("NewSince: got %d, want 2", r.NewSince)
	}
	if r.Favorites != 1 || r.Dismissed != 1 {
		t.Errorf("Favorites/Dismissed: got %d/%d, want 1/1", r.Favorites, r.Dismissed)
	}
}

func TestInsightZeroSinceCountsNothingNew(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings(), time.Time{})
	if r.NewSince != 0 {
		t.Errorf("NewSince: got %d, want 0", r.NewSince)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings(), runStart)
	wantAvg := 2500.0
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 900 {
		t.Errorf("MinPrice: got %d, want 900", r.MinPrice)
	}
	if r.MaxPrice != 4400 {
		t.Errorf("MaxPrice: got %d, want 4400", r.MaxPrice)
	}
}

func TestInsightCheapestPerBedSkipsDismissed(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings(), runStart)
	if r.CheapestPerBed == nil {
		t.Fatal("CheapestPerBed should not be nil")
	}
	if r.CheapestPerBed.Address != "100 Beefcake Rd" {
		t.Errorf("CheapestPerBed: got %q, want %q", r.CheapestPerBed.Address, "100 Beefcake Rd")
	}
	if r.CheapestPerBedAmt != 1100 {
		t.Errorf("CheapestPerBedAmt: got %.2f, want 1100", r.CheapestPerBedAmt)
	}
}

func TestInsightHostGrouping(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings(), runStart)
	if r.ListingsByHost["ygl.is"] != 3 {
		t.Errorf("ygl.is count: got %d, want 3", r.ListingsByHost["ygl.is"])
	}
	if r.ListingsByHost["rentals.example.com"] != 2 {
		t.Errorf("rentals.example.com count: got %d, want 2", r.ListingsByHost["rentals.example.com"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(nil, runStart)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
	if r.CheapestPerBed != nil {
		t.Errorf("expected no cheapest listing for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings(), runStart))
	out := buf.String()
	for _, want := range []string{"RENTAL LISTING INSIGHTS", "Known listings", "100 Beefcake Rd", "ygl.is"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
