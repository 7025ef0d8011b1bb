// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/review-engine/internal/httputil"
)

// API endpoints. Declared as vars so tests can substitute httptest
// servers.
var (
	s2PaperBase      = "https://api.semanticscholar.org/graph/v1/paper"
	s2SearchBase     = "https://api.semanticscholar.org/graph/v1/paper/search"
	crossrefBase     = "https://api.crossref.org/works"
	enrichEntrezBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// jatsRe strips the JATS XML tags Crossref embeds in abstracts.
var jatsRe = regexp.MustCompile(`<[^>]+>`)

func (e *Enricher) s2Headers() map[string]string {
	if e.Config.SemanticScholarAPIKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": e.Config.SemanticScholarAPIKey}
}

// fetchS2ByDOI looks the DOI up in the Semantic Scholar Graph API.
func (e *Enricher) fetchS2ByDOI(ctx context.Context, doi string) string {
	reqURL := fmt.Sprintf("%s/DOI:%s?fields=abstract", s2PaperBase, url.PathEscape(doi))

	var out struct {
		Abstract string `json:"abstract"`
	}
	if err := httputil.GetJSON(ctx, e.Client, reqURL, e.Config.UserAgent, e.s2Headers(), &out); err != nil {
		return ""
	}
	return e.usable(out.Abstract)
}

// fetchS2ByTitle searches Semantic Scholar by title and accepts the hit
// only on an exact title match or a word overlap above 0.8.
func (e *Enricher) fetchS2ByTitle(ctx context.Context, title string) string {
	q := title
	if len(q) > 200 {
		q = q[:200]
	}
	params := url.Values{
		"query":  {q},
		"limit":  {"3"},
		"fields": {"title,abstract"},
	}

	var out struct {
		Data []struct {
			Title    string `json:"title"`
			Abstract string `json:"abstract"`
		} `json:"data"`
	}
	if err := httputil.GetJSON(ctx, e.Client, s2SearchBase+"?"+params.Encode(), e.Config.UserAgent, e.s2Headers(), &out); err != nil {
		return ""
	}
	if len(out.Data) == 0 {
		return ""
	}

	want := strings.ToLower(strings.TrimSpace(title))
	for _, p := range out.Data {
		if strings.ToLower(strings.TrimSpace(p.Title)) == want && p.Abstract != "" {
			return e.usable(p.Abstract)
		}
	}

	// No exact match: accept the top hit when the titles share most of
	// their words.
	top := out.Data[0]
	if top.Abstract != "" && titleOverlap(want, strings.ToLower(top.Title)) > 0.8 {
		return e.usable(top.Abstract)
	}
	return ""
}

// titleOverlap is the shared-word fraction of two titles, relative to
// the longer one.
func titleOverlap(a, b string) float64 {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	set := make(map[string]bool, len(aw))
	for _, w := range aw {
		set[w] = true
	}
	shared := 0
	for _, w := range dedupWords(bw) {
		if set[w] {
			shared++
		}
	}
	longer := len(dedupWords(aw))
	if n := len(dedupWords(bw)); n > longer {
		longer = n
	}
	return float64(shared) / float64(longer)
}

func dedupWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// fetchCrossref looks the DOI up in the Crossref works API and strips
// the JATS markup its abstracts carry.
func (e *Enricher) fetchCrossref(ctx context.Context, doi string) string {
	reqURL := crossrefBase + "/" + url.PathEscape(doi)
	ua := e.Config.UserAgent
	if e.Config.ContactEmail != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", ua, e.Config.ContactEmail)
	}

	var out struct {
		Message struct {
			Abstract string `json:"abstract"`
		} `json:"message"`
	}
	if err := httputil.GetJSON(ctx, e.Client, reqURL, ua, nil, &out); err != nil {
		return ""
	}
	return e.usable(jatsRe.ReplaceAllString(out.Message.Abstract, ""))
}

// fetchPubMed retrieves the article XML for one PMID and joins its
// AbstractText sections.
func (e *Enricher) fetchPubMed(ctx context.Context, pmid string) string {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"rettype": {"abstract"},
		"retmode": {"xml"},
	}
	if e.Config.NCBIAPIKey != "" {
		params.Set("api_key", e.Config.NCBIAPIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, enrichEntrezBase+"?"+params.Encode(), nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", e.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, 0)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var set struct {
		Sections []string `xml:"PubmedArticle>MedlineCitation>Article>Abstract>AbstractText"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return ""
	}
	return e.usable(strings.Join(set.Sections, " "))
}

// usable trims the candidate and drops it below the minimum length.
func (e *Enricher) usable(abstract string) string {
	abstract = strings.TrimSpace(abstract)
	if len(abstract) <= e.minLen() {
		return ""
	}
	return abstract
}
