// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar bulk search endpoint.
// Declared as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search/bulk"

const semanticFields = "title,abstract,authors,externalIds,year,venue,publicationDate,openAccessPdf"

// SemanticScholarHarvester pages through the Semantic Scholar Graph
// bulk search API using its continuation tokens.
type SemanticScholarHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewSemanticScholar builds the Semantic Scholar harvester from config.
func NewSemanticScholar(cfg types.HarvestConfig) *SemanticScholarHarvester {
	return &SemanticScholarHarvester{Client: newClient(cfg), Limiter: newLimiter(cfg)}
}

func (h *SemanticScholarHarvester) Source() types.Source { return types.SourceSemanticScholar }

func (h *SemanticScholarHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	query := cfg.Queries[types.SourceSemanticScholar]
	if query == "" {
		return Export{}, fmt.Errorf("no semantic_scholar query configured")
	}

	// Bulk pages can repeat papers across continuations; key by paper ID.
	seen := make(map[string]bool)
	var records []types.RawRecord

	token := ""
	for {
		page, nextToken, err := h.fetchPage(ctx, query, token, cfg)
		if err != nil {
			return Export{}, err
		}
		for _, p := range page {
			if p.PaperID == "" || seen[p.PaperID] {
				continue
			}
			seen[p.PaperID] = true
			rec := p.toRawRecord()
			if dateWithinCutoff(rec.PublicationDate, cfg.DateCutoff) {
				records = append(records, rec)
			}
		}
		if nextToken == "" || nextToken == token {
			break
		}
		token = nextToken
	}

	return Export{
		Database:     types.SourceSemanticScholar,
		Query:        query,
		Filters:      fmt.Sprintf("post-filter <= %s", cfg.DateCutoff),
		TotalResults: len(records),
		Records:      records,
	}, nil
}

func (h *SemanticScholarHarvester) fetchPage(ctx context.Context, query, token string, cfg types.HarvestConfig) ([]semanticPaper, string, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	params := url.Values{
		"query":  {query},
		"fields": {semanticFields},
	}
	if token != "" {
		params.Set("token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if cfg.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", cfg.SemanticScholarAPIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, "", fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, "", fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return sr.Data, sr.Token, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Token string          `json:"token"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	Venue           string              `json:"venue"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF   struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	ArXiv  string `json:"ArXiv"`
	PubMed string `json:"PubMed"`
}

func (p semanticPaper) toRawRecord() types.RawRecord {
	var names []string
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	year := ""
	if p.Year > 0 {
		year = fmt.Sprintf("%d", p.Year)
	}
	return types.RawRecord{
		S2ID:            p.PaperID,
		DOI:             p.ExternalIDs.DOI,
		ArxivID:         p.ExternalIDs.ArXiv,
		PMID:            p.ExternalIDs.PubMed,
		Title:           p.Title,
		Abstract:        p.Abstract,
		Authors:         strings.Join(names, "; "),
		Year:            year,
		Venue:           p.Venue,
		PublicationDate: p.PublicationDate,
		OpenAccessPDF:   p.OpenAccessPDF.URL,
	}
}
