// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEuropePMCSearchFollowsCursor(t *testing.T) {
	page1 := `{
	  "nextCursorMark": "CURSOR2",
	  "resultList": {"result": [{
	    "id": "PPR100001",
	    "doi": "10.1101/2025.06.01.650001",
	    "title": "A preprint on screening automation",
	    "abstractText": "We describe a pipeline.",
	    "authorString": "Chen A, Park B.",
	    "firstPublicationDate": "2025-06-01"
	  }]}
	}`
	page2 := `{
	  "nextCursorMark": "CURSOR2",
	  "resultList": {"result": [{
	    "id": "PPR100002",
	    "doi": "10.1101/2025.07.01.650002",
	    "title": "A second preprint",
	    "firstPublicationDate": "2025-07-01"
	  }]}
	}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !strings.Contains(q.Get("query"), "SRC:PPR") {
			t.Errorf("query %q missing preprint source restriction", q.Get("query"))
		}
		w.Header().Set("Content-Type", "application/json")
		if q.Get("cursorMark") == "*" {
			fmt.Fprint(w, page1)
			return
		}
		fmt.Fprint(w, page2)
	}))
	defer ts.Close()

	old := epmcAPIBase
	epmcAPIBase = ts.URL
	defer func() { epmcAPIBase = old }()

	cfg := testCfg()
	h := NewEuropePMC(cfg)
	h.Client = ts.Client()

	export, err := h.Search(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Second page repeats the cursor mark, which terminates pagination.
	if len(export.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(export.Records))
	}

	r := export.Records[0]
	if r.EPMCID != "PPR100001" {
		t.Errorf("EPMCID = %q", r.EPMCID)
	}
	if r.DOI != "10.1101/2025.06.01.650001" {
		t.Errorf("DOI = %q", r.DOI)
	}
	if r.Authors != "Chen A, Park B." {
		t.Errorf("Authors = %q", r.Authors)
	}
	if r.Date != "2025-06-01" || r.Year != "2025" {
		t.Errorf("Date = %q, Year = %q", r.Date, r.Year)
	}
}

func TestEuropePMCSearchHTTPError(t *testing.T) {
	ts := jsonTestServer(http.StatusBadRequest, `{"error":"bad query"}`)
	defer ts.Close()

	old := epmcAPIBase
	epmcAPIBase = ts.URL
	defer func() { epmcAPIBase = old }()

	cfg := testCfg()
	h := NewEuropePMC(cfg)
	h.Client = ts.Client()

	if _, err := h.Search(context.Background(), cfg); err == nil {
		t.Fatal("Search succeeded against a failing server")
	}
}
