package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Source is one configured search endpoint with fixed query parameters.
type Source struct {
	Name   string            `yaml:"name"`
	URL    string            `yaml:"url"`
	Query  map[string]string `yaml:"query"`
	Filter *FilterOverride   `yaml:"filter"`
}

// FilterOverride is a per-source filter block. Absent keys fall back to the
// global filter. A block that sets a threshold but omits enabled is enabled.
type FilterOverride struct {
	Enabled        *bool    `yaml:"enabled"`
	MinBaths       *float64 `yaml:"min_baths"`
	MaxPricePerBed *float64 `yaml:"max_price_per_bed"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// PageURL returns the URL of 1-based result page n for this source.
func (s Source) PageURL(page int) (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("source %q: parse url: %w", s.Name, err)
	}
	q := u.Query()
	for k, v := range s.Query {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FilterOr merges the source's filter override onto fallback.
func (s Source) FilterOr(fallback FilterConfig) FilterConfig {
	o := s.Filter
	if o == nil {
		return fallback
	}
	cfg := fallback
	if o.MinBaths != nil {
		cfg.MinBaths = *o.MinBaths
		cfg.Enabled = true
	}
	if o.MaxPricePerBed != nil {
		cfg.MaxPricePerBed = *o.MaxPricePerBed
		cfg.Enabled = true
	}
	if o.Enabled != nil {
		cfg.Enabled = *o.Enabled
	}
	return cfg
}

// LoadSources reads the ordered source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read %q: %w", path, err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a sources document.
func ParseSources(data []byte) ([]Source, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("sources: decode: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sources))
	for i := range f.Sources {
		s := &f.Sources[i]
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			return nil, fmt.Errorf("sources: entry %d has no url", i)
		}
		if _, err := url.ParseRequestURI(s.URL); err != nil {
			return nil, fmt.Errorf("sources: entry %d: %w", i, err)
		}
		if s.Name == "" {
			s.Name = s.URL
		}
		if _, dup := seen[s.URL]; dup {
			return nil, fmt.Errorf("sources: duplicate url %q", s.URL)
		}
		seen[s.URL] = struct{}{}
	}
	return f.Sources, nil
}
