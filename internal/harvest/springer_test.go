// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"net/http"
	"testing"
)

const sampleSpringerJSON = `{
  "result": [{"total": "1"}],
  "records": [{
    "identifier": "doi:10.1007/s10462-025-1001-2",
    "title": "Survey of review automation",
    "abstract": "Abstract: This survey covers tooling.",
    "publicationName": "Artificial Intelligence Review",
    "publicationDate": "2025-09-15",
    "url": [{"format": "html", "value": "https://link.springer.com/article/1001"}],
    "creators": [{"creator": "Rossi, M."}, {"creator": "Tanaka, K."}]
  }]
}`

func TestSpringerSearch(t *testing.T) {
	ts := jsonTestServer(http.StatusOK, sampleSpringerJSON)
	defer ts.Close()

	old := springerAPIBase
	springerAPIBase = ts.URL
	defer func() { springerAPIBase = old }()

	cfg := testCfg()
	h := NewSpringer(cfg)
	h.Client = ts.Client()

	export, err := h.Search(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(export.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(export.Records))
	}

	r := export.Records[0]
	// DOI comes from the identifier's doi: prefix.
	if r.DOI != "10.1007/s10462-025-1001-2" {
		t.Errorf("DOI = %q", r.DOI)
	}
	if r.PublicationName != "Artificial Intelligence Review" {
		t.Errorf("PublicationName = %q", r.PublicationName)
	}
	if r.Authors != "Rossi, M.; Tanaka, K." {
		t.Errorf("Authors = %q", r.Authors)
	}
	if r.URL != "https://link.springer.com/article/1001" {
		t.Errorf("URL = %q", r.URL)
	}
	if r.PublicationDate != "2025-09-15" || r.Year != "2025" {
		t.Errorf("PublicationDate = %q, Year = %q", r.PublicationDate, r.Year)
	}
}

func TestSpringerSearchRequiresKey(t *testing.T) {
	cfg := testCfg()
	cfg.SpringerAPIKey = ""
	h := NewSpringer(cfg)

	if _, err := h.Search(context.Background(), cfg); err == nil {
		t.Fatal("Search succeeded without an API key")
	}
}
