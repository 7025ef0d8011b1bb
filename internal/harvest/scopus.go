// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// scopusAPIBase is the Elsevier Scopus search endpoint. Declared as a
// var so tests can substitute an httptest server.
var scopusAPIBase = "https://api.elsevier.com/content/search/scopus"

// scopusPageSize is the maximum page size for the standard API view.
const scopusPageSize = 25

// ScopusHarvester pages through the Elsevier Scopus search API. The
// standard view carries no abstracts; Scopus contributes identifiers
// and citation metadata, abstracts come from other databases.
type ScopusHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewScopus builds the Scopus harvester from config.
func NewScopus(cfg types.HarvestConfig) *ScopusHarvester {
	return &ScopusHarvester{Client: newClient(cfg), Limiter: newLimiter(cfg)}
}

func (h *ScopusHarvester) Source() types.Source { return types.SourceScopus }

func (h *ScopusHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	if cfg.ScopusAPIKey == "" {
		return Export{}, fmt.Errorf("no Scopus API key configured")
	}
	query := cfg.Queries[types.SourceScopus]
	if query == "" {
		return Export{}, fmt.Errorf("no scopus query configured")
	}

	var records []types.RawRecord
	total := -1
	for start := 0; total < 0 || start < total; start += scopusPageSize {
		page, pageTotal, err := h.fetchPage(ctx, query, start, cfg)
		if err != nil {
			return Export{}, err
		}
		if total < 0 {
			total = pageTotal
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
	}

	// The API date filter is coarse; drop anything past the cutoff here.
	kept := records[:0]
	for _, r := range records {
		if dateWithinCutoff(r.Date, cfg.DateCutoff) {
			kept = append(kept, r)
		}
	}

	return Export{
		Database:     types.SourceScopus,
		Query:        query,
		Filters:      fmt.Sprintf("post-filter <= %s", cfg.DateCutoff),
		TotalResults: total,
		Records:      kept,
	}, nil
}

func (h *ScopusHarvester) fetchPage(ctx context.Context, query string, start int, cfg types.HarvestConfig) ([]types.RawRecord, int, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	params := url.Values{
		"query":  {query},
		"start":  {strconv.Itoa(start)},
		"count":  {strconv.Itoa(scopusPageSize)},
		"sort":   {"pubyear"},
		"apiKey": {cfg.ScopusAPIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scopusAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("Scopus API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("Scopus API returned HTTP %d", resp.StatusCode)
	}

	var sr scopusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("parsing Scopus response: %w", err)
	}

	total, _ := strconv.Atoi(sr.SearchResults.TotalResults)

	var records []types.RawRecord
	for _, entry := range sr.SearchResults.Entries {
		if entry.Error != "" {
			continue
		}
		year := ""
		if len(entry.CoverDate) >= 4 {
			year = entry.CoverDate[:4]
		}
		records = append(records, types.RawRecord{
			ScopusID: trimPrefix(entry.Identifier, "SCOPUS_ID:"),
			DOI:      entry.DOI,
			Title:    entry.Title,
			Authors:  entry.Creator,
			Journal:  entry.PublicationName,
			Year:     year,
			Date:     entry.CoverDate,
		})
	}
	return records, total, nil
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

// Scopus search JSON structures (prism/dc namespaced keys).
type scopusResponse struct {
	SearchResults struct {
		TotalResults string        `json:"opensearch:totalResults"`
		Entries      []scopusEntry `json:"entry"`
	} `json:"search-results"`
}

type scopusEntry struct {
	Error           string `json:"error"`
	Identifier      string `json:"dc:identifier"`
	DOI             string `json:"prism:doi"`
	Title           string `json:"dc:title"`
	Creator         string `json:"dc:creator"`
	PublicationName string `json:"prism:publicationName"`
	CoverDate       string `json:"prism:coverDate"`
}
