// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Entrez endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	entrezSearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	entrezFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// pubmedBatchSize is the efetch page size. Entrez allows up to 10000
// with an API key but 500 keeps responses small.
const pubmedBatchSize = 500

// PubMedHarvester queries PubMed through the NCBI Entrez E-utilities:
// one esearch call to get the hit count and a history token, then
// batched efetch calls returning article XML.
type PubMedHarvester struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewPubMed builds the PubMed harvester from config.
func NewPubMed(cfg types.HarvestConfig) *PubMedHarvester {
	return &PubMedHarvester{Client: newClient(cfg), Limiter: newLimiter(cfg)}
}

func (h *PubMedHarvester) Source() types.Source { return types.SourcePubMed }

func (h *PubMedHarvester) Search(ctx context.Context, cfg types.HarvestConfig) (Export, error) {
	query := cfg.Queries[types.SourcePubMed]
	if query == "" {
		return Export{}, fmt.Errorf("no pubmed query configured")
	}

	count, webEnv, queryKey, err := h.esearch(ctx, query, cfg)
	if err != nil {
		return Export{}, err
	}

	var records []types.RawRecord
	for start := 0; start < count; start += pubmedBatchSize {
		batch, err := h.efetch(ctx, webEnv, queryKey, start, cfg)
		if err != nil {
			return Export{}, err
		}
		records = append(records, batch...)
	}

	return Export{
		Database:     types.SourcePubMed,
		Query:        query,
		TotalResults: count,
		Records:      records,
	}, nil
}

// esearch returns the result count plus the history server token used
// by subsequent efetch calls.
func (h *PubMedHarvester) esearch(ctx context.Context, query string, cfg types.HarvestConfig) (int, string, string, error) {
	params := url.Values{
		"db":         {"pubmed"},
		"retmode":    {"json"},
		"retmax":     {"0"},
		"usehistory": {"y"},
		"term":       {query},
	}
	if cfg.NCBIAPIKey != "" {
		params.Set("api_key", cfg.NCBIAPIKey)
	}

	body, err := h.get(ctx, entrezSearchBase+"?"+params.Encode(), cfg)
	if err != nil {
		return 0, "", "", err
	}
	defer body.Close()

	var sr entrezSearchResponse
	if err := json.NewDecoder(body).Decode(&sr); err != nil {
		return 0, "", "", fmt.Errorf("parsing esearch response: %w", err)
	}
	count, err := strconv.Atoi(sr.ESearchResult.Count)
	if err != nil {
		return 0, "", "", fmt.Errorf("esearch count %q: %w", sr.ESearchResult.Count, err)
	}
	return count, sr.ESearchResult.WebEnv, sr.ESearchResult.QueryKey, nil
}

// efetch retrieves one XML batch from the history server.
func (h *PubMedHarvester) efetch(ctx context.Context, webEnv, queryKey string, start int, cfg types.HarvestConfig) ([]types.RawRecord, error) {
	params := url.Values{
		"db":        {"pubmed"},
		"retmode":   {"xml"},
		"rettype":   {"abstract"},
		"WebEnv":    {webEnv},
		"query_key": {queryKey},
		"retstart":  {strconv.Itoa(start)},
		"retmax":    {strconv.Itoa(pubmedBatchSize)},
	}
	if cfg.NCBIAPIKey != "" {
		params.Set("api_key", cfg.NCBIAPIKey)
	}

	body, err := h.get(ctx, entrezFetchBase+"?"+params.Encode(), cfg)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	var records []types.RawRecord
	for _, article := range set.Articles {
		if rec, ok := article.toRawRecord(); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (h *PubMedHarvester) get(ctx context.Context, reqURL string, cfg types.HarvestConfig) (io.ReadCloser, error) {
	if err := h.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Entrez request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("Entrez returned HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Entrez JSON/XML structures.

type entrezSearchResponse struct {
	ESearchResult struct {
		Count    string `json:"count"`
		WebEnv   string `json:"webenv"`
		QueryKey string `json:"querykey"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string `xml:"MedlineCitation>PMID"`
	Article struct {
		Title         string   `xml:"ArticleTitle"`
		AbstractTexts []string `xml:"Abstract>AbstractText"`
		Journal       struct {
			Title string `xml:"Title"`
			Issue struct {
				PubDate struct {
					Year  string `xml:"Year"`
					Month string `xml:"Month"`
				} `xml:"PubDate"`
			} `xml:"JournalIssue"`
		} `xml:"Journal"`
		Authors []struct {
			LastName string `xml:"LastName"`
			ForeName string `xml:"ForeName"`
		} `xml:"AuthorList>Author"`
	} `xml:"MedlineCitation>Article"`
	ArticleIDs []struct {
		IDType string `xml:"IdType,attr"`
		Value  string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

func (a pubmedArticle) toRawRecord() (types.RawRecord, bool) {
	if a.PMID == "" {
		return types.RawRecord{}, false
	}

	var authors []string
	for _, au := range a.Article.Authors {
		if au.LastName != "" {
			authors = append(authors, strings.TrimSpace(au.LastName+" "+au.ForeName))
		}
	}

	doi := ""
	for _, id := range a.ArticleIDs {
		if id.IDType == "doi" {
			doi = id.Value
			break
		}
	}

	return types.RawRecord{
		PMID:     a.PMID,
		DOI:      doi,
		Title:    strings.TrimSpace(a.Article.Title),
		Abstract: strings.TrimSpace(strings.Join(a.Article.AbstractTexts, " ")),
		Authors:  strings.Join(authors, "; "),
		Year:     a.Article.Journal.Issue.PubDate.Year,
		Journal:  a.Article.Journal.Title,
	}, true
}
