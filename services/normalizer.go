package services

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"rental-watch/models"
)

// Column positions in RawListing.Columns. The upstream markup fixes this
// order; a reorder there is not detectable here.
const (
	colPrice = iota
	colBeds
	colBaths
	colDate
	columnCount
)

// Normalizer turns raw sightings into ListingRecords.
type Normalizer struct{}

func NewNormalizer() *Normalizer { return &Normalizer{} }

// Normalize maps one raw item to a record. Failures are *models.MalformedRecordError.
func (n *Normalizer) Normalize(raw models.RawListing) (models.ListingRecord, error) {
	address := normaliseText(raw.Address)
	if address == "" {
		return models.ListingRecord{}, malformed("address", raw.Address, "empty")
	}
	ref := strings.TrimSpace(raw.Ref)
	if ref == "" {
		return models.ListingRecord{}, malformed("ref", raw.Ref, "empty")
	}
	if len(raw.Columns) < columnCount {
		return models.ListingRecord{}, malformed("columns", strings.Join(raw.Columns, "|"),
			"want "+strconv.Itoa(columnCount)+" columns, got "+strconv.Itoa(len(raw.Columns)))
	}

	price, err := parsePrice(raw.Columns[colPrice])
	if err != nil {
		return models.ListingRecord{}, err
	}
	beds, err := parseBeds(raw.Columns[colBeds])
	if err != nil {
		return models.ListingRecord{}, err
	}
	baths, err := parseLeadingFloat("baths", raw.Columns[colBaths])
	if err != nil {
		return models.ListingRecord{}, err
	}
	date, err := parseDate(raw.Columns[colDate])
	if err != nil {
		return models.ListingRecord{}, err
	}

	return models.ListingRecord{
		Address:    address,
		Price:      price,
		Beds:       beds,
		Baths:      baths,
		ListedDate: date,
		SourceRef:  ref,
	}, nil
}

// parsePrice keeps only the digits: "$2,200" -> 2200.
func parsePrice(raw string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, malformed("price", raw, "no digits")
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, malformed("price", raw, err.Error())
	}
	return v, nil
}

// parseLeadingFloat reads the first whitespace-delimited token: "1.5 Baths" -> 1.5.
func parseLeadingFloat(field, raw string) (float64, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, malformed(field, raw, "empty")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, malformed(field, raw, "leading token is not a non-negative number")
	}
	return v, nil
}

// parseBeds reads the bed count; a "Studio" column counts as zero beds.
func parseBeds(raw string) (float64, error) {
	if fields := strings.Fields(raw); len(fields) > 0 && strings.EqualFold(fields[0], "studio") {
		return 0, nil
	}
	return parseLeadingFloat("beds", raw)
}

// parseDate returns the second token: "Avail 09/01/2024" -> "09/01/2024".
func parseDate(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", malformed("date", raw, "missing second token")
	}
	return fields[1], nil
}

func malformed(field, value, reason string) error {
	return &models.MalformedRecordError{Field: field, Value: value, Reason: reason}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
