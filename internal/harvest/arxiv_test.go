// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"net/http"
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

const sampleArxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Large language models
      for systematic reviews</title>
    <summary>  We study the use of language models
      in evidence synthesis.  </summary>
    <published>2025-08-14T17:59:02Z</published>
    <author><name>Alice Chen</name></author>
    <author><name>Bob Park</name></author>
    <link title="doi" href="https://doi.org/10.1000/published.1" rel="related"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v2" rel="related"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2509.00123v1</id>
    <title>Future work</title>
    <summary>Dated past the search cutoff.</summary>
    <published>2026-09-01T00:00:00Z</published>
    <author><name>Carol Diaz</name></author>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	ts := jsonTestServer(http.StatusOK, sampleArxivAtom)
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	cfg := testCfg()
	h := NewArxiv(cfg)
	h.Client = ts.Client()

	export, err := h.Search(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if export.Database != types.SourceArxiv {
		t.Errorf("Database = %q", export.Database)
	}
	if len(export.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1 (entry past cutoff dropped)", len(export.Records))
	}

	r := export.Records[0]
	// The version suffix stays; normalization strips it later.
	if r.ArxivID != "2301.07041v2" {
		t.Errorf("ArxivID = %q", r.ArxivID)
	}
	if r.DOI != "https://doi.org/10.1000/published.1" {
		t.Errorf("DOI = %q, want the doi link href", r.DOI)
	}
	// Feed whitespace and newlines collapse to single spaces.
	if r.Title != "Large language models for systematic reviews" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Abstract != "We study the use of language models in evidence synthesis." {
		t.Errorf("Abstract = %q", r.Abstract)
	}
	if r.Authors != "Alice Chen; Bob Park" {
		t.Errorf("Authors = %q", r.Authors)
	}
	if r.Date != "2025-08-14" || r.Year != "2025" {
		t.Errorf("Date = %q, Year = %q", r.Date, r.Year)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	ts := jsonTestServer(http.StatusServiceUnavailable, "busy")
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	cfg := testCfg()
	h := NewArxiv(cfg)
	h.Client = ts.Client()

	if _, err := h.Search(context.Background(), cfg); err == nil {
		t.Fatal("Search succeeded against a failing server")
	}
}
