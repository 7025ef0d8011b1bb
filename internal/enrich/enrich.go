// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fills missing abstracts on deduplicated records by
// querying external APIs, then partitions the set into records fit for
// screening and records excluded for lack of an abstract. Lookup
// failures are soft: a record that cannot be enriched is excluded, the
// run never aborts.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ExclusionNoAbstract is the audit code attached to records dropped
// because no abstract could be found.
const ExclusionNoAbstract = "EC_NO_ABSTRACT"

const defaultMinAbstractLen = 10

// Detail is one per-record line of the enrichment log.
type Detail struct {
	ClusterID   int    `json:"cluster_id"`
	Title       string `json:"title"`
	DOI         string `json:"doi"`
	SourceAPI   string `json:"source_api,omitempty"`
	AbstractLen int    `json:"abstract_len"`
}

// Log summarizes one enrichment run.
type Log struct {
	TotalRecords       int            `json:"total_records"`
	MissingBefore      int            `json:"total_missing_before"`
	FoundBySource      map[string]int `json:"found_by_source"`
	Enriched           int            `json:"enriched"`
	StillMissing       int            `json:"still_missing_after_fetch"`
	ExcludedNoAbstract int            `json:"excluded_no_abstract"`
	ForScreening       int            `json:"records_for_screening"`
	Details            []Detail       `json:"details"`
}

// Enricher runs the abstract lookup chain over deduplicated records.
type Enricher struct {
	Client   *http.Client
	Config   types.EnrichConfig
	Progress io.Writer
}

// New builds an Enricher from config. Progress output goes to w.
func New(cfg types.EnrichConfig, w io.Writer) *Enricher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if w == nil {
		w = io.Discard
	}
	return &Enricher{
		Client:   &http.Client{Timeout: timeout},
		Config:   cfg,
		Progress: w,
	}
}

func (e *Enricher) minLen() int {
	if e.Config.MinAbstractLen > 0 {
		return e.Config.MinAbstractLen
	}
	return defaultMinAbstractLen
}

// HasAbstract reports whether the record carries a usable abstract:
// more than minLen characters after trimming.
func HasAbstract(r types.DeduplicatedRecord, minLen int) bool {
	return len(strings.TrimSpace(r.Abstract)) > minLen
}

// Enrich fills missing abstracts in place and returns the run log. The
// lookup chain per record is Semantic Scholar by DOI, Crossref by DOI,
// PubMed by PMID, and Semantic Scholar title search for records with
// neither identifier. The first hit wins and is tagged as the record's
// abstract source.
func (e *Enricher) Enrich(ctx context.Context, records []types.DeduplicatedRecord) (Log, error) {
	log := Log{
		TotalRecords:  len(records),
		FoundBySource: make(map[string]int),
	}

	var missing []int
	for i, r := range records {
		if !HasAbstract(r, e.minLen()) {
			missing = append(missing, i)
		}
	}
	log.MissingBefore = len(missing)
	fmt.Fprintf(e.Progress, "records: %d, missing abstracts: %d\n", len(records), len(missing))

	if e.Config.Limit > 0 && len(missing) > e.Config.Limit {
		missing = missing[:e.Config.Limit]
		fmt.Fprintf(e.Progress, "processing first %d\n", len(missing))
	}

	for n, idx := range missing {
		if err := ctx.Err(); err != nil {
			return log, err
		}
		if n%50 == 0 && n > 0 {
			fmt.Fprintf(e.Progress, "  %d/%d (enriched so far: %d)\n", n, len(missing), log.Enriched)
		}

		rec := &records[idx]
		abstract, sourceAPI := e.lookup(ctx, rec)

		detail := Detail{
			ClusterID: rec.ClusterID,
			Title:     truncate(rec.Title, 100),
			DOI:       rec.DOI,
		}
		if abstract != "" {
			rec.Abstract = abstract
			rec.AbstractSource = sourceAPI
			log.Enriched++
			log.FoundBySource[sourceAPI]++
			detail.SourceAPI = sourceAPI
			detail.AbstractLen = len(abstract)
		}
		log.Details = append(log.Details, detail)
	}

	for _, r := range records {
		if !HasAbstract(r, e.minLen()) {
			log.StillMissing++
		}
	}
	return log, nil
}

// lookup runs the strategy chain for one record. Every strategy failure
// is a soft miss.
func (e *Enricher) lookup(ctx context.Context, rec *types.DeduplicatedRecord) (abstract, sourceAPI string) {
	doi := strings.TrimSpace(rec.DOI)
	pmid := strings.TrimSpace(rec.PMID)
	title := strings.TrimSpace(rec.Title)

	type strategy struct {
		name   string
		usable bool
		fetch  func(context.Context) string
	}
	chain := []strategy{
		{"s2_doi", doi != "", func(ctx context.Context) string { return e.fetchS2ByDOI(ctx, doi) }},
		{"crossref", doi != "", func(ctx context.Context) string { return e.fetchCrossref(ctx, doi) }},
		{"pubmed", pmid != "", func(ctx context.Context) string { return e.fetchPubMed(ctx, pmid) }},
		{"s2_title", doi == "" && pmid == "" && title != "", func(ctx context.Context) string { return e.fetchS2ByTitle(ctx, title) }},
	}

	for _, s := range chain {
		if !s.usable {
			continue
		}
		if a := s.fetch(ctx); a != "" {
			return a, s.name
		}
		e.pause(ctx)
	}
	return "", ""
}

func (e *Enricher) pause(ctx context.Context) {
	if e.Config.FetchDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.Config.FetchDelay):
	}
}

// AuditLog builds an enrichment log without any API lookups, for runs
// that only apply the exclusion step. Every record missing an abstract
// is counted both before and after, since nothing was fetched.
func (e *Enricher) AuditLog(records []types.DeduplicatedRecord) Log {
	log := Log{TotalRecords: len(records), FoundBySource: map[string]int{}}
	for _, r := range records {
		if !HasAbstract(r, e.minLen()) {
			log.MissingBefore++
		}
	}
	log.StillMissing = log.MissingBefore
	return log
}

// Exclusion is the audit envelope written for records excluded after
// enrichment.
type Exclusion struct {
	Reason        string                     `json:"reason"`
	ExclusionCode string                     `json:"exclusion_code"`
	TotalExcluded int                        `json:"total_excluded"`
	Records       []types.DeduplicatedRecord `json:"records"`
}

// Partition splits records into those fit for screening and those
// still lacking an abstract.
func (e *Enricher) Partition(records []types.DeduplicatedRecord) (kept []types.DeduplicatedRecord, excluded Exclusion) {
	for _, r := range records {
		if HasAbstract(r, e.minLen()) {
			kept = append(kept, r)
		} else {
			excluded.Records = append(excluded.Records, r)
		}
	}
	excluded.Reason = "No abstract available after API enrichment (S2, Crossref, PubMed)"
	excluded.ExclusionCode = ExclusionNoAbstract
	excluded.TotalExcluded = len(excluded.Records)
	return kept, excluded
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
