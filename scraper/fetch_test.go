package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-watch/models"
)

func TestHTTPFetcherReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rental-watch/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, "rental-watch/test")
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
}

func TestHTTPFetcherNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Equal(t, srv.URL, fe.URL)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(50*time.Millisecond, "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
	assert.Error(t, fe.Err)
}

func TestHTTPFetcherRejectsOversizedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), maxPageBytes+1))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, "")
	body, err := f.Fetch(context.Background(), srv.URL)

	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, errPageTooLarge)
	assert.Empty(t, body)
}

func TestHTTPFetcherAcceptsPageAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), maxPageBytes))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(5*time.Second, "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, maxPageBytes)
}
