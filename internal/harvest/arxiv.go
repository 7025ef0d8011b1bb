// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivPageSize is the Atom feed page size.
const arxivPageSize = 500

// ArxivHarvester pages through the arXiv Atom API. IDs keep their
// version suffix in the export; the normalizer strips it at dedup time.
type ArxivHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewArxiv builds the arXiv harvester from config.
func NewArxiv(cfg types.HarvestConfig) *ArxivHarvester {
	return &ArxivHarvester{Client: newClient(cfg), Limiter: newLimiter(cfg)}
}

func (h *ArxivHarvester) Source() types.Source { return types.SourceArxiv }

func (h *ArxivHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	query := cfg.Queries[types.SourceArxiv]
	if query == "" {
		return Export{}, fmt.Errorf("no arxiv query configured")
	}

	seen := make(map[string]bool)
	var records []types.RawRecord

	for start := 0; ; start += arxivPageSize {
		entries, err := h.fetchPage(ctx, query, start, cfg)
		if err != nil {
			return Export{}, err
		}
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			rec, ok := entry.toRawRecord()
			if !ok || seen[rec.ArxivID] {
				continue
			}
			if !dateWithinCutoff(rec.Date, cfg.DateCutoff) {
				continue
			}
			seen[rec.ArxivID] = true
			records = append(records, rec)
		}
		if len(entries) < arxivPageSize {
			break
		}
	}

	return Export{
		Database:     types.SourceArxiv,
		Query:        query,
		Filters:      fmt.Sprintf("post-filter <= %s", cfg.DateCutoff),
		TotalResults: len(records),
		Records:      records,
	}, nil
}

func (h *ArxivHarvester) fetchPage(ctx context.Context, query string, start int, cfg types.HarvestConfig) ([]arxivEntry, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search_query": {query},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(arxivPageSize)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed.Entries, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Authors   []arxivName `xml:"author"`
	Links     []arxivLink `xml:"link"`
}

type arxivName struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

func (e arxivEntry) toRawRecord() (types.RawRecord, bool) {
	// Extract the ID from the entry URL: http://arxiv.org/abs/2301.07041v1.
	const marker = "/abs/"
	idx := strings.Index(e.ID, marker)
	if idx < 0 {
		return types.RawRecord{}, false
	}
	arxivID := e.ID[idx+len(marker):]

	var authors []string
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	// arXiv publishes a DOI link for entries with a journal version.
	doi := ""
	for _, l := range e.Links {
		if l.Title == "doi" {
			doi = l.Href
		}
	}

	published := e.Published
	if len(published) > 10 {
		published = published[:10]
	}
	year := ""
	if len(published) >= 4 {
		year = published[:4]
	}

	collapse := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}

	return types.RawRecord{
		ArxivID:  arxivID,
		DOI:      doi,
		Title:    collapse(e.Title),
		Abstract: collapse(e.Summary),
		Authors:  strings.Join(authors, "; "),
		Date:     published,
		Year:     year,
	}, true
}
