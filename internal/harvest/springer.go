// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// springerAPIBase is the Springer Nature Meta API endpoint. Declared as
// a var so tests can substitute an httptest server.
var springerAPIBase = "https://api.springernature.com/meta/v2/json"

const springerPageSize = 25

// SpringerHarvester pages through the Springer Nature Meta API using
// s (start, 1-based) and p (page size) parameters.
type SpringerHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
	APIKey  string
}

// NewSpringer builds the Springer Nature harvester from config.
func NewSpringer(cfg types.HarvestConfig) *SpringerHarvester {
	return &SpringerHarvester{
		Client:  newClient(cfg),
		Limiter: newLimiter(cfg),
		APIKey:  cfg.SpringerAPIKey,
	}
}

func (h *SpringerHarvester) Source() types.Source { return types.SourceSpringerNature }

func (h *SpringerHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	query := cfg.Queries[types.SourceSpringerNature]
	if query == "" {
		return Export{}, fmt.Errorf("no springernature query configured")
	}
	if h.APIKey == "" {
		return Export{}, fmt.Errorf("no Springer Nature API key configured")
	}

	var records []types.RawRecord
	total := -1
	for start := 1; total < 0 || start <= total; start += springerPageSize {
		page, err := h.fetchPage(ctx, query, start, cfg)
		if err != nil {
			return Export{}, err
		}
		if total < 0 {
			total = page.total()
		}
		if len(page.Records) == 0 {
			break
		}
		for _, entry := range page.Records {
			rec := entry.toRawRecord()
			if !dateWithinCutoff(rec.Date, cfg.DateCutoff) {
				continue
			}
			records = append(records, rec)
		}
	}

	return Export{
		Database:     types.SourceSpringerNature,
		Query:        query,
		Filters:      fmt.Sprintf("post-filter <= %s", cfg.DateCutoff),
		TotalResults: len(records),
		Records:      records,
	}, nil
}

func (h *SpringerHarvester) fetchPage(ctx context.Context, query string, start int, cfg types.HarvestConfig) (*springerResponse, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"q":       {query},
		"s":       {strconv.Itoa(start)},
		"p":       {strconv.Itoa(springerPageSize)},
		"api_key": {h.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, springerAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Springer API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Springer API returned HTTP %d", resp.StatusCode)
	}

	var page springerResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing Springer response: %w", err)
	}
	return &page, nil
}

// Springer Nature Meta API JSON structures.
type springerResponse struct {
	Result []struct {
		Total string `json:"total"`
	} `json:"result"`
	Records []springerRecord `json:"records"`
}

func (r *springerResponse) total() int {
	if len(r.Result) == 0 {
		return 0
	}
	n, err := strconv.Atoi(r.Result[0].Total)
	if err != nil {
		return 0
	}
	return n
}

type springerRecord struct {
	Identifier      string `json:"identifier"`
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationName string `json:"publicationName"`
	PublicationDate string `json:"publicationDate"`
	URL             []struct {
		Value string `json:"value"`
	} `json:"url"`
	Creators []struct {
		Creator string `json:"creator"`
	} `json:"creators"`
}

func (r springerRecord) toRawRecord() types.RawRecord {
	doi := r.DOI
	if doi == "" {
		// The identifier field carries the DOI as "doi:10.1007/...".
		doi = strings.TrimPrefix(r.Identifier, "doi:")
	}

	var authors []string
	for _, c := range r.Creators {
		if name := strings.TrimSpace(c.Creator); name != "" {
			authors = append(authors, name)
		}
	}

	year := ""
	if len(r.PublicationDate) >= 4 {
		year = r.PublicationDate[:4]
	}

	u := ""
	if len(r.URL) > 0 {
		u = r.URL[0].Value
	}

	return types.RawRecord{
		DOI:             doi,
		Title:           r.Title,
		Abstract:        r.Abstract,
		Authors:         strings.Join(authors, "; "),
		PublicationName: r.PublicationName,
		PublicationDate: r.PublicationDate,
		Year:            year,
		URL:             u,
	}
}
