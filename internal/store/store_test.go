package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{IndexDir: t.TempDir(), MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []types.DeduplicatedRecord {
	return []types.DeduplicatedRecord{
		{
			ClusterID: 1,
			Title:     "Deep learning for variant calling",
			DOI:       "10.1038/s41592-025-0001-x",
			PMID:      "38012345",
			Abstract:  "We apply convolutional networks to genomic variant calling.",
			Year:      "2025",
			Sources:   []types.Source{types.SourcePubMed, types.SourceScopus},
			NSources:  2, DuplicateCount: 2,
			AllDOIs: []string{"10.1038/s41592-025-0001-x"},
		},
		{
			ClusterID:   2,
			Title:       "Language models for literature screening",
			DOI:         "10.1000/screen.2",
			PreprintDOI: "10.1101/2025.01.01.000001",
			Abstract:    "A study of transformer assistance in title and abstract screening.",
			Year:        "2024",
			Sources:     []types.Source{types.SourceBiorxivMedrxiv},
			NSources:    1, DuplicateCount: 1,
			AllDOIs: []string{"10.1101/2025.01.01.000001", "10.1000/screen.2"},
		},
	}
}

func ingest(t *testing.T, s *Store) IngestSummary {
	t.Helper()
	log := []types.LogEntry{
		{Action: types.ActionNew, Reason: "No match found", ClusterID: 1, SourceDB: types.SourcePubMed, Title: "Deep learning for variant calling"},
		{Action: types.ActionMerge, Reason: "DOI match: 10.1038/s41592-025-0001-x", ClusterID: 1, SourceDB: types.SourceScopus, MatchedWithDB: types.SourcePubMed},
		{Action: types.ActionNew, Reason: "No match found", ClusterID: 2, SourceDB: types.SourceBiorxivMedrxiv},
	}
	links := []types.PreprintLink{
		{ClusterID: 2, PublishedDOI: "10.1000/screen.2", PreprintDOIs: []string{"10.1101/2025.01.01.000001"}, Title: "Language models for literature screening"},
	}
	summary, err := s.Ingest(context.Background(), testRecords(), log, links, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return summary
}

// --- Ingest ---

func TestIngestCounts(t *testing.T) {
	s := testStore(t)
	summary := ingest(t, s)
	if summary.Records != 2 || summary.LogEntries != 3 || summary.Links != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	s := testStore(t)
	ingest(t, s)
	summary := ingest(t, s)
	if summary.Records != 2 || summary.LogEntries != 3 {
		t.Errorf("second ingest summary = %+v", summary)
	}

	results, err := s.Retrieve(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d after re-ingest, want 2", len(results))
	}
}

func TestReingestReplacesFullTextPostings(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	// Re-ingest cluster 1 with a rewritten abstract. The full-text index
	// must track the new content: the old term stops matching and the new
	// one starts.
	records := testRecords()
	records[0].Abstract = "Recurrent architectures for haplotype phasing."
	records[0].AbstractSource = "crossref"
	if _, err := s.Ingest(context.Background(), records, nil, nil, io.Discard); err != nil {
		t.Fatal(err)
	}

	stale, err := s.Retrieve(context.Background(), QueryOptions{Query: "convolutional"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Errorf("stale term still matches %d record(s) after re-ingest", len(stale))
	}

	fresh, err := s.Retrieve(context.Background(), QueryOptions{Query: "haplotype"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 || fresh[0].ClusterID != 1 {
		t.Errorf("fresh term results = %+v, want cluster 1", fresh)
	}
}

// --- Retrieve ---

func TestRetrieveFullText(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	results, err := s.Retrieve(context.Background(), QueryOptions{Query: "screening"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ClusterID != 2 {
		t.Errorf("ClusterID = %d, want 2", results[0].ClusterID)
	}
	if results[0].PreprintDOI != "10.1101/2025.01.01.000001" {
		t.Errorf("PreprintDOI = %q", results[0].PreprintDOI)
	}
	if len(results[0].Sources) != 1 || results[0].Sources[0] != types.SourceBiorxivMedrxiv {
		t.Errorf("Sources = %v", results[0].Sources)
	}
}

func TestRetrieveMatchesAbstract(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	results, err := s.Retrieve(context.Background(), QueryOptions{Query: "genomic"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ClusterID != 1 {
		t.Errorf("results = %+v", results)
	}
}

func TestRetrieveStructuredFilters(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	tests := []struct {
		name string
		opts QueryOptions
		want []int
	}{
		{"by source", QueryOptions{Source: types.SourceScopus}, []int{1}},
		{"by year", QueryOptions{Year: "2024"}, []int{2}},
		{"by min sources", QueryOptions{MinSources: 2}, []int{1}},
		{"no filters returns all in cluster order", QueryOptions{}, []int{1, 2}},
		{"combined text and source", QueryOptions{Query: "variant", Source: types.SourcePubMed}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Retrieve(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			var got []int
			for _, r := range results {
				got = append(got, r.ClusterID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("cluster ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("cluster ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRetrieveRespectsMaxResults(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	results, err := s.Retrieve(context.Background(), QueryOptions{MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
}

// --- History / PreprintLink ---

func TestHistory(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	entries, err := s.History(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Action != types.ActionNew || entries[1].Action != types.ActionMerge {
		t.Errorf("actions = %v, %v", entries[0].Action, entries[1].Action)
	}
	if entries[1].Reason != "DOI match: 10.1038/s41592-025-0001-x" {
		t.Errorf("Reason = %q", entries[1].Reason)
	}
}

func TestPreprintLinkLookup(t *testing.T) {
	s := testStore(t)
	ingest(t, s)

	link, ok, err := s.PreprintLink(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("ok = false, want link for cluster 2")
	}
	if link.PublishedDOI != "10.1000/screen.2" || len(link.PreprintDOIs) != 1 {
		t.Errorf("link = %+v", link)
	}

	if _, ok, err := s.PreprintLink(context.Background(), 1); err != nil || ok {
		t.Errorf("cluster 1: ok=%v err=%v, want no link", ok, err)
	}
}

// --- Export ---

func TestExportFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(types.StoreConfig{IndexDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ingest(t, s)

	if err := s.ExportYAML(context.Background(), QueryOptions{}); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	if err := s.ExportJSON(context.Background(), QueryOptions{}); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	for _, name := range []string{"export.yaml", "export.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
