// Package ygl parses ygl search-result pages.
//
// Column contract: every property_item carries exactly four div.column
// blocks in the order price, beds, baths, availability date. The parser
// passes them through positionally; a reorder upstream is not detected here.
package ygl

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rental-watch/models"
)

const (
	noResultsSelector = "div.nothing_found"
	itemSelector      = "div.property_item"
	titleSelector     = "a.item_title"
	columnSelector    = "div.column"
)

// Parser implements scraper.Parser for ygl markup.
type Parser struct{}

// NewParser returns a ygl Parser.
func NewParser() *Parser { return &Parser{} }

func (p *Parser) Parse(html string) (bool, []models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, nil, fmt.Errorf("ygl: parse document: %w", err)
	}

	if doc.Find(noResultsSelector).Length() > 0 {
		return true, nil, nil
	}

	var items []models.RawListing
	doc.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
		title := s.Find(titleSelector).First()
		href, _ := title.Attr("href")

		columns := s.Find(columnSelector).Map(func(_ int, c *goquery.Selection) string {
			return strings.TrimSpace(c.Text())
		})

		items = append(items, models.RawListing{
			Address: strings.TrimSpace(title.Text()),
			Ref:     strings.TrimSpace(href),
			Columns: columns,
		})
	})

	return false, items, nil
}
