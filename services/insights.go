package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"rental-watch/models"
	"rental-watch/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises the index. Listings first seen at or after since count
// as new; a zero since counts none.
func (s *InsightService) Generate(listings []models.KnownListing, since time.Time) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByHost: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []models.KnownListing
	for _, l := range listings {
		if !since.IsZero() && !l.FirstSeenAt.Before(since) {
			report.NewSince++
		}
		if l.Favorite {
			report.Favorites++
		}
		if l.Dismissed {
			report.Dismissed++
		}
		if l.Price > 0 {
			priced = append(priced, l)
		}

		hosts := make(map[string]bool)
		for _, ref := range l.Refs {
			if h := models.RefHost(ref); h != "" && !hosts[h] {
				hosts[h] = true
				report.ListingsByHost[h]++
			}
		}
	}

	// Price stats (known prices only)
	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		var total float64
		for _, l := range priced {
			total += float64(l.Price)
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
			}

			if l.Dismissed {
				continue
			}
			perBed := PricePerBed(l.Price, l.Beds)
			if report.CheapestPerBed == nil || perBed < report.CheapestPerBedAmt {
				cheapest := l.Clone()
				report.CheapestPerBed = &cheapest
				report.CheapestPerBedAmt = round2(perBed)
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
	}

	s.logger.Debug("[insights] %d listings, %d new, %d priced", report.TotalListings, report.NewSince, len(priced))
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 RENTAL LISTING INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Known listings : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  New this run   : \033[1m%d\033[0m\n", r.NewSince)
	fmt.Fprintf(w, "  Favorites      : \033[1m%d\033[0m\n", r.Favorites)
	fmt.Fprintf(w, "  Dismissed      : \033[1m%d\033[0m\n", r.Dismissed)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (per month)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%d\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%d\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.CheapestPerBed != nil {
		fmt.Fprintf(w, "\033[1;33m  Cheapest Per Bed\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.CheapestPerBed.Address, 50))
		fmt.Fprintf(w, "  Beds/Baths : %g / %g\n", r.CheapestPerBed.Beds, r.CheapestPerBed.Baths)
		fmt.Fprintf(w, "  Per bed    : \033[1;32m$%.2f\033[0m\n", r.CheapestPerBedAmt)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Host\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByHost) == 0 {
		fmt.Fprintf(w, "  No reference data\n")
	} else {
		type hostCount struct {
			host  string
			count int
		}
		var hosts []hostCount
		for h, cnt := range r.ListingsByHost {
			hosts = append(hosts, hostCount{h, cnt})
		}
		sort.Slice(hosts, func(i, j int) bool {
			if hosts[i].count != hosts[j].count {
				return hosts[i].count > hosts[j].count
			}
			return hosts[i].host < hosts[j].host
		})
		for _, hc := range hosts {
			bar := strings.Repeat("█", min(hc.count, 40))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(hc.host, 28), bar, hc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
