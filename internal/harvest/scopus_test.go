// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleScopusJSON = `{
  "search-results": {
    "opensearch:totalResults": "2",
    "entry": [
      {
        "dc:identifier": "SCOPUS_ID:85123456789",
        "prism:doi": "10.1016/j.jbi.2025.104512",
        "dc:title": "Automated screening in systematic reviews",
        "dc:creator": "Nguyen T.",
        "prism:publicationName": "Journal of Biomedical Informatics",
        "prism:coverDate": "2025-10-01"
      },
      {
        "dc:identifier": "SCOPUS_ID:85999999999",
        "dc:title": "Too new for the cutoff",
        "prism:coverDate": "2026-03-01"
      }
    ]
  }
}`

func TestScopusSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "scopus-key" {
			t.Errorf("apiKey = %q", r.URL.Query().Get("apiKey"))
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("start") == "0" {
			fmt.Fprint(w, sampleScopusJSON)
			return
		}
		fmt.Fprint(w, `{"search-results":{"opensearch:totalResults":"2","entry":[]}}`)
	}))
	defer ts.Close()

	old := scopusAPIBase
	scopusAPIBase = ts.URL
	defer func() { scopusAPIBase = old }()

	cfg := testCfg()
	h := NewScopus(cfg)
	h.Client = ts.Client()

	export, err := h.Search(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if export.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2", export.TotalResults)
	}
	if len(export.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1 (entry past cutoff dropped)", len(export.Records))
	}

	r := export.Records[0]
	if r.ScopusID != "85123456789" {
		t.Errorf("ScopusID = %q, want prefix stripped", r.ScopusID)
	}
	if r.DOI != "10.1016/j.jbi.2025.104512" {
		t.Errorf("DOI = %q", r.DOI)
	}
	if r.Journal != "Journal of Biomedical Informatics" || r.Year != "2025" {
		t.Errorf("Journal = %q, Year = %q", r.Journal, r.Year)
	}
}

func TestScopusSearchRequiresKey(t *testing.T) {
	cfg := testCfg()
	cfg.ScopusAPIKey = ""
	h := NewScopus(cfg)

	if _, err := h.Search(context.Background(), cfg); err == nil {
		t.Fatal("Search succeeded without an API key")
	}
}

func TestScopusSearchHTTPError(t *testing.T) {
	ts := jsonTestServer(http.StatusUnauthorized, `{"service-error":{}}`)
	defer ts.Close()

	old := scopusAPIBase
	scopusAPIBase = ts.URL
	defer func() { scopusAPIBase = old }()

	cfg := testCfg()
	h := NewScopus(cfg)
	h.Client = ts.Client()

	if _, err := h.Search(context.Background(), cfg); err == nil {
		t.Fatal("Search succeeded against a failing server")
	}
}
