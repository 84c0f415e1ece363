package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRegistryCountsPerSource(t *testing.T) {
	m := NewRegistry()
	m.NewListings.WithLabelValues("Leigha").Inc()
	m.NewListings.WithLabelValues("Leigha").Inc()
	m.NewListings.WithLabelValues("Denis").Inc()

	body := scrape(t, m)
	assert.Contains(t, body, `ingest_new_listings_total{source="Leigha"} 2`)
	assert.Contains(t, body, `ingest_new_listings_total{source="Denis"} 1`)
}

func TestHandlerExposesGauges(t *testing.T) {
	m := NewRegistry()
	m.PagesFetched.WithLabelValues("Leigha").Add(3)
	m.IndexSize.Set(42)

	body := scrape(t, m)
	assert.Contains(t, body, `ingest_pages_fetched_total{source="Leigha"} 3`)
	assert.Contains(t, body, "ingest_index_size 42")
}
