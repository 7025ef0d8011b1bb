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

// epmcAPIBase is the Europe PMC REST search endpoint. Declared as a var
// so tests can substitute an httptest server.
var epmcAPIBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

const epmcPageSize = 1000

// EuropePMCHarvester queries Europe PMC restricted to preprint servers
// (SRC:PPR covers bioRxiv and medRxiv among others). Pagination uses
// the cursor mark returned with each page.
type EuropePMCHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewEuropePMC builds the preprint harvester from config.
func NewEuropePMC(cfg types.HarvestConfig) *EuropePMCHarvester {
	return &EuropePMCHarvester{Client: newClient(cfg), Limiter: newLimiter(cfg)}
}

func (h *EuropePMCHarvester) Source() types.Source { return types.SourceBiorxivMedrxiv }

func (h *EuropePMCHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	query := cfg.Queries[types.SourceBiorxivMedrxiv]
	if query == "" {
		return Export{}, fmt.Errorf("no biorxiv_medrxiv query configured")
	}
	fullQuery := fmt.Sprintf("(%s) AND SRC:PPR", query)

	var records []types.RawRecord
	cursor := "*"
	for {
		page, err := h.fetchPage(ctx, fullQuery, cursor, cfg)
		if err != nil {
			return Export{}, err
		}
		for _, result := range page.ResultList.Results {
			rec := result.toRawRecord()
			if !dateWithinCutoff(rec.Date, cfg.DateCutoff) {
				continue
			}
			records = append(records, rec)
		}
		if page.NextCursorMark == "" || page.NextCursorMark == cursor || len(page.ResultList.Results) == 0 {
			break
		}
		cursor = page.NextCursorMark
	}

	return Export{
		Database:     types.SourceBiorxivMedrxiv,
		Query:        fullQuery,
		Filters:      fmt.Sprintf("SRC:PPR, post-filter <= %s", cfg.DateCutoff),
		TotalResults: len(records),
		Records:      records,
	}, nil
}

func (h *EuropePMCHarvester) fetchPage(ctx context.Context, query, cursor string, cfg types.HarvestConfig) (*epmcResponse, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"query":      {query},
		"format":     {"json"},
		"pageSize":   {strconv.Itoa(epmcPageSize)},
		"cursorMark": {cursor},
		"resultType": {"core"},
	}
	if cfg.ContactEmail != "" {
		params.Set("email", cfg.ContactEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, epmcAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Europe PMC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Europe PMC returned HTTP %d", resp.StatusCode)
	}

	var page epmcResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing Europe PMC response: %w", err)
	}
	return &page, nil
}

// Europe PMC JSON structures.
type epmcResponse struct {
	NextCursorMark string `json:"nextCursorMark"`
	ResultList     struct {
		Results []epmcResult `json:"result"`
	} `json:"resultList"`
}

type epmcResult struct {
	ID                   string `json:"id"`
	DOI                  string `json:"doi"`
	PMID                 string `json:"pmid"`
	Title                string `json:"title"`
	AbstractText         string `json:"abstractText"`
	AuthorString         string `json:"authorString"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	PubYear              string `json:"pubYear"`
	BookOrReportDetails  struct {
		Publisher string `json:"publisher"`
	} `json:"bookOrReportDetails"`
}

func (r epmcResult) toRawRecord() types.RawRecord {
	year := r.PubYear
	if year == "" && len(r.FirstPublicationDate) >= 4 {
		year = r.FirstPublicationDate[:4]
	}
	return types.RawRecord{
		EPMCID:   r.ID,
		DOI:      r.DOI,
		PMID:     r.PMID,
		Title:    r.Title,
		Abstract: r.AbstractText,
		Authors:  r.AuthorString,
		Venue:    r.BookOrReportDetails.Publisher,
		Date:     r.FirstPublicationDate,
		Year:     year,
	}
}
