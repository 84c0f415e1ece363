package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rental-watch/models"
)

const maxPageBytes = 10 << 20

var errPageTooLarge = errors.New("page too large")

// Fetcher retrieves the raw HTML of one result page.
// Failures are reported as *models.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET bounded by a per-request timeout.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &models.FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &models.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &models.FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return "", &models.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxPageBytes {
		return "", &models.FetchError{URL: url, Err: fmt.Errorf("%w: over %d bytes", errPageTooLarge, maxPageBytes)}
	}
	return string(body), nil
}
