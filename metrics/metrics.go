package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the ingestion counters. All vectors are labelled by source.
type Registry struct {
	reg *prometheus.Registry

	PagesFetched   *prometheus.CounterVec
	ItemsParsed    *prometheus.CounterVec
	Malformed      *prometheus.CounterVec
	Filtered       *prometheus.CounterVec
	NewListings    *prometheus.CounterVec
	RepeatSighting *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	NotifyFailures *prometheus.CounterVec
	RunDurationSec prometheus.Gauge
	IndexSize      prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"source"})
	}

	m := &Registry{
		reg:            r,
		PagesFetched:   counter("ingest_pages_fetched_total", "Result pages fetched."),
		ItemsParsed:    counter("ingest_items_parsed_total", "Raw items parsed from result pages."),
		Malformed:      counter("ingest_items_malformed_total", "Raw items skipped as malformed."),
		Filtered:       counter("ingest_items_filtered_total", "Records rejected by the filter."),
		NewListings:    counter("ingest_new_listings_total", "Addresses seen for the first time."),
		RepeatSighting: counter("ingest_repeat_sightings_total", "Sightings of already known addresses."),
		FetchErrors:    counter("ingest_fetch_errors_total", "Walks aborted by a fetch failure."),
		NotifyFailures: counter("ingest_notify_failures_total", "Failed notification attempts."),
		RunDurationSec: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_last_run_duration_seconds"}),
		IndexSize:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_index_size"}),
	}

	r.MustRegister(m.PagesFetched, m.ItemsParsed, m.Malformed, m.Filtered, m.NewListings,
		m.RepeatSighting, m.FetchErrors, m.NotifyFailures, m.RunDurationSec, m.IndexSize)
	return m
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
