// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ScholarHarvester imports a Google Scholar result set from a manually
// exported JSON file. Scholar has no public API; results are collected
// with a browser-side exporter and dropped into the configured path.
type ScholarHarvester struct {
	Path string
}

// NewScholar builds the Scholar import harvester from config.
func NewScholar(cfg types.HarvestConfig) *ScholarHarvester {
	return &ScholarHarvester{Path: cfg.ScholarFile}
}

func (h *ScholarHarvester) Source() types.Source { return types.SourceGoogleScholar }

func (h *ScholarHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	if h.Path == "" {
		return Export{}, fmt.Errorf("no Scholar export file configured")
	}

	data, err := os.ReadFile(h.Path)
	if err != nil {
		return Export{}, fmt.Errorf("reading Scholar export: %w", err)
	}

	var entries []scholarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Export{}, fmt.Errorf("parsing Scholar export: %w", err)
	}

	var records []types.RawRecord
	for _, entry := range entries {
		rec := entry.toRawRecord()
		if rec.Title == "" {
			continue
		}
		if !dateWithinCutoff(rec.Date, cfg.DateCutoff) {
			continue
		}
		records = append(records, rec)
	}

	return Export{
		Database:     types.SourceGoogleScholar,
		Query:        cfg.Queries[types.SourceGoogleScholar],
		Filters:      fmt.Sprintf("manual export %s, post-filter <= %s", h.Path, cfg.DateCutoff),
		TotalResults: len(records),
		Records:      records,
	}, nil
}

// scholarEntry matches the browser exporter's JSON shape.
type scholarEntry struct {
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Year     string `json:"year"`
	Venue    string `json:"venue"`
	Abstract string `json:"abstract"`
	URL      string `json:"url"`
	DOI      string `json:"doi"`
}

func (e scholarEntry) toRawRecord() types.RawRecord {
	return types.RawRecord{
		DOI:      e.DOI,
		Title:    e.Title,
		Abstract: e.Abstract,
		Authors:  e.Authors,
		Venue:    e.Venue,
		Year:     e.Year,
		Date:     e.Year,
		URL:      e.URL,
	}
}
