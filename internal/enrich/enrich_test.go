// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

func testEnricher(client *http.Client) *Enricher {
	e := New(types.EnrichConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "review-engine/test"},
	}, io.Discard)
	if client != nil {
		e.Client = client
	}
	return e
}

// --- HasAbstract ---

func TestHasAbstract(t *testing.T) {
	tests := []struct {
		name     string
		abstract string
		want     bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"too short", "short", false},
		{"exactly at threshold", "0123456789", false},
		{"just above threshold", "01234567890", true},
		{"real abstract", "We present a method for clustering bibliographic records.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := types.DeduplicatedRecord{Abstract: tt.abstract}
			if got := HasAbstract(r, defaultMinAbstractLen); got != tt.want {
				t.Errorf("HasAbstract(%q) = %v, want %v", tt.abstract, got, tt.want)
			}
		})
	}
}

// --- titleOverlap ---

func TestTitleOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		high bool
	}{
		{"identical", "deep learning for variant calling", "deep learning for variant calling", true},
		{"one word differs out of six", "deep learning methods for variant calling", "deep learning methods for variant detection", true},
		{"unrelated", "deep learning for variant calling", "a survey of graph databases", false},
		{"empty side", "", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleOverlap(tt.a, tt.b)
			if tt.high && got <= 0.8 {
				t.Errorf("titleOverlap = %v, want > 0.8", got)
			}
			if !tt.high && got > 0.8 {
				t.Errorf("titleOverlap = %v, want <= 0.8", got)
			}
		})
	}
}

// --- lookup chain ---

func TestEnrichFallsThroughToCrossref(t *testing.T) {
	// S2 has no record for the DOI; Crossref has a JATS-tagged abstract.
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer s2.Close()
	crossref := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":{"abstract":"<jats:p>We present a <jats:italic>tagged</jats:italic> abstract.</jats:p>"}}`)
	}))
	defer crossref.Close()

	oldPaper, oldCrossref := s2PaperBase, crossrefBase
	s2PaperBase, crossrefBase = s2.URL, crossref.URL
	defer func() { s2PaperBase, crossrefBase = oldPaper, oldCrossref }()

	e := testEnricher(nil)
	records := []types.DeduplicatedRecord{
		{ClusterID: 1, Title: "Tagged abstract paper", DOI: "10.1000/x"},
	}

	log, err := e.Enrich(context.Background(), records)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if records[0].Abstract != "We present a tagged abstract." {
		t.Errorf("Abstract = %q, want JATS tags stripped", records[0].Abstract)
	}
	if records[0].AbstractSource != "crossref" {
		t.Errorf("AbstractSource = %q", records[0].AbstractSource)
	}
	if log.Enriched != 1 || log.FoundBySource["crossref"] != 1 {
		t.Errorf("log = %+v", log)
	}
}

func TestEnrichUsesPubMedForPMIDOnly(t *testing.T) {
	entrez := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "38012345" {
			t.Errorf("id = %q", r.URL.Query().Get("id"))
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, `<PubmedArticleSet><PubmedArticle><MedlineCitation><Article><Abstract>`+
			`<AbstractText>Background section.</AbstractText>`+
			`<AbstractText>Results section.</AbstractText>`+
			`</Abstract></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`)
	}))
	defer entrez.Close()

	old := enrichEntrezBase
	enrichEntrezBase = entrez.URL
	defer func() { enrichEntrezBase = old }()

	e := testEnricher(nil)
	records := []types.DeduplicatedRecord{
		{ClusterID: 3, Title: "PMID only paper", PMID: "38012345"},
	}

	if _, err := e.Enrich(context.Background(), records); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if records[0].Abstract != "Background section. Results section." {
		t.Errorf("Abstract = %q", records[0].Abstract)
	}
	if records[0].AbstractSource != "pubmed" {
		t.Errorf("AbstractSource = %q", records[0].AbstractSource)
	}
}

func TestEnrichTitleSearchNeedsCloseMatch(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"title":"A completely different paper","abstract":"This abstract belongs to another work entirely."}]}`)
	}))
	defer search.Close()

	old := s2SearchBase
	s2SearchBase = search.URL
	defer func() { s2SearchBase = old }()

	e := testEnricher(nil)
	records := []types.DeduplicatedRecord{
		{ClusterID: 7, Title: "Clustering bibliographic records at scale"},
	}

	log, err := e.Enrich(context.Background(), records)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if records[0].Abstract != "" {
		t.Errorf("Abstract = %q, want mismatched title rejected", records[0].Abstract)
	}
	if log.StillMissing != 1 {
		t.Errorf("StillMissing = %d, want 1", log.StillMissing)
	}
}

func TestEnrichSkipsRecordsWithAbstracts(t *testing.T) {
	// No servers are substituted: any network attempt would fail the
	// lookup, but a record with an abstract is never looked up.
	e := testEnricher(&http.Client{Transport: failingTransport{}})
	records := []types.DeduplicatedRecord{
		{ClusterID: 1, Title: "Has one", Abstract: strings.Repeat("x", 50), DOI: "10.1/a"},
	}

	log, err := e.Enrich(context.Background(), records)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if log.MissingBefore != 0 || len(log.Details) != 0 {
		t.Errorf("log = %+v", log)
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("unexpected network call")
}

// --- Partition ---

func TestPartition(t *testing.T) {
	e := testEnricher(nil)
	records := []types.DeduplicatedRecord{
		{ClusterID: 1, Abstract: strings.Repeat("a", 40)},
		{ClusterID: 2, Abstract: ""},
		{ClusterID: 3, Abstract: strings.Repeat("b", 40)},
	}

	kept, excluded := e.Partition(records)
	if len(kept) != 2 {
		t.Fatalf("len(kept) = %d, want 2", len(kept))
	}
	if kept[0].ClusterID != 1 || kept[1].ClusterID != 3 {
		t.Errorf("kept = %+v", kept)
	}
	if excluded.TotalExcluded != 1 || excluded.Records[0].ClusterID != 2 {
		t.Errorf("excluded = %+v", excluded)
	}
	if excluded.ExclusionCode != ExclusionNoAbstract {
		t.Errorf("ExclusionCode = %q", excluded.ExclusionCode)
	}
}

func TestAuditLogCountsMissingWithoutFetching(t *testing.T) {
	e := testEnricher(nil)
	records := []types.DeduplicatedRecord{
		{ClusterID: 1, Abstract: strings.Repeat("a", 40)},
		{ClusterID: 2, Abstract: ""},
		{ClusterID: 3, Abstract: "short"},
	}

	log := e.AuditLog(records)
	if log.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", log.TotalRecords)
	}
	if log.MissingBefore != 2 {
		t.Errorf("MissingBefore = %d, want 2", log.MissingBefore)
	}
	if log.StillMissing != 2 {
		t.Errorf("StillMissing = %d, want 2", log.StillMissing)
	}
	if log.Enriched != 0 || len(log.FoundBySource) != 0 {
		t.Errorf("log = %+v, want no lookups recorded", log)
	}
}
