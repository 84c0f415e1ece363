package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-watch/models"
	"rental-watch/utils"
)

// ErrPageLimit ends a walk that reached the page cap without seeing the
// no-results marker.
var ErrPageLimit = errors.New("page limit reached before no-results marker")

// Parser splits one result page into raw items. noResults reports the
// explicit end-of-results marker and is checked before any item extraction.
type Parser interface {
	Parse(html string) (noResults bool, items []models.RawListing, err error)
}

// Query yields the URL of a 1-based result page.
type Query interface {
	PageURL(page int) (string, error)
}

// WalkerOptions tunes a Walker. Zero values pick defaults.
type WalkerOptions struct {
	MaxPages  int
	PageDelay time.Duration
}

// Walker drives sequential fetch-and-parse of result pages.
type Walker struct {
	fetcher Fetcher
	parser  Parser
	logger  *utils.Logger
	opts    WalkerOptions
	now     func() time.Time
}

// NewWalker returns a Walker over the given collaborators.
func NewWalker(fetcher Fetcher, parser Parser, logger *utils.Logger, opts WalkerOptions) *Walker {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	return &Walker{fetcher: fetcher, parser: parser, logger: logger, opts: opts, now: time.Now}
}

// Walk starts a fresh walk at page 1. Items are fetched lazily by Next.
func (w *Walker) Walk(source string, q Query) *Walk {
	return &Walk{w: w, source: source, q: q}
}

// Walk is a single pass over one source's result pages. Use it like
// bufio.Scanner: loop on Next, read Item, then check Err.
type Walk struct {
	w      *Walker
	source string
	q      Query

	page int
	buf  []models.RawListing
	cur  models.RawListing
	done bool
	err  error
}

// Next advances to the next raw item, fetching further pages as needed.
// It returns false at the no-results marker or on the first error.
func (it *Walk) Next(ctx context.Context) bool {
	for {
		if len(it.buf) > 0 {
			it.cur = it.buf[0]
			it.buf = it.buf[1:]
			return true
		}
		if it.done || it.err != nil {
			return false
		}
		if err := it.fetchNext(ctx); err != nil {
			it.err = err
			return false
		}
	}
}

// Item returns the current raw item.
func (it *Walk) Item() models.RawListing { return it.cur }

// Err returns the error that ended the walk, or nil if it ended at the marker.
func (it *Walk) Err() error { return it.err }

// Pages returns the number of pages fetched so far.
func (it *Walk) Pages() int { return it.page }

func (it *Walk) fetchNext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if it.page >= it.w.opts.MaxPages {
		return fmt.Errorf("%s: %w (%d pages)", it.source, ErrPageLimit, it.page)
	}
	if it.page > 0 && it.w.opts.PageDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(it.w.opts.PageDelay):
		}
	}

	it.page++
	url, err := it.q.PageURL(it.page)
	if err != nil {
		return err
	}

	html, err := it.w.fetcher.Fetch(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var fe *models.FetchError
		if !errors.As(err, &fe) {
			fe = &models.FetchError{URL: url, Err: err}
		}
		fe.Page = it.page
		return fe
	}

	noResults, items, err := it.w.parser.Parse(html)
	if err != nil {
		return fmt.Errorf("parse page %d (%s): %w", it.page, url, err)
	}
	if noResults {
		it.w.logger.Debug("[walker] %s: no-results marker on page %d", it.source, it.page)
		it.done = true
		return nil
	}
	if len(items) == 0 {
		it.w.logger.Warn("[walker] %s: page %d has no items and no marker, moving on", it.source, it.page)
		return nil
	}

	scrapedAt := it.w.now()
	for i := range items {
		items[i].Source = it.source
		items[i].Page = it.page
		items[i].ScrapedAt = scrapedAt
	}
	it.w.logger.Debug("[walker] %s: page %d yielded %d items", it.source, it.page, len(items))
	it.buf = items
	return nil
}
