// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup merges search records that represent the same
// publication. The strategy is deliberately conservative: only exact
// matches on normalized identifiers ever join two records, tried in a
// fixed priority order (DOI, then PMID, then arXiv ID, then normalized
// title). There is no fuzzy matching and clusters are never merged after
// creation, so a wrong merge can only come from a wrong identifier, not
// from the algorithm. Every decision is logged for audit.
package dedup

import (
	"fmt"

	"github.com/pdiddy/review-engine/pkg/types"
)

// logTitleLen caps title snapshots in log entries and preprint links.
const logTitleLen = 100

// Cluster is a group of records judged to represent one publication.
// Records appear in processing order; the first one founded the cluster.
type Cluster struct {
	ID      int
	Records []types.UnifiedRecord
}

// Founder returns the record that created the cluster.
func (c *Cluster) Founder() types.UnifiedRecord {
	return c.Records[0]
}

// Batch is one database's records in that database's export order.
type Batch struct {
	Source  types.Source
	Records []types.UnifiedRecord
}

// Engine clusters records by exact identifier matching. One Engine
// instance handles one run; construct it fresh with NewEngine and feed
// it a single deterministic sequence of records. It is not safe for
// concurrent use and does not need to be: correctness of the
// first-writer-wins indexes depends on one sequential processing order.
type Engine struct {
	clusters []*Cluster

	// Indexes map a normalized key to the cluster that first registered
	// it. Registration is first-writer-wins: once a key points at a
	// cluster, later records never repoint it.
	doiIndex   map[string]int
	pmidIndex  map[string]int
	arxivIndex map[string]int
	titleIndex map[string]int

	log []types.LogEntry

	inputCounts map[types.Source]int
}

// NewEngine returns an empty engine ready for one dedup run.
func NewEngine() *Engine {
	return &Engine{
		doiIndex:    make(map[string]int),
		pmidIndex:   make(map[string]int),
		arxivIndex:  make(map[string]int),
		titleIndex:  make(map[string]int),
		inputCounts: make(map[types.Source]int),
	}
}

// Process feeds batches to the engine in the given order. The order is a
// correctness precondition, not a convenience: callers must pass batches
// in descending metadata-quality order (types.HarvestOrder) so cluster
// founders tend to come from the better databases. The engine applies no
// source-quality logic of its own while clustering.
func (e *Engine) Process(batches []Batch) {
	for _, b := range batches {
		for _, r := range b.Records {
			e.AddRecord(r)
		}
	}
}

// AddRecord assigns one record to a cluster: the first existing cluster
// found via the key priority chain, or a fresh singleton when no key
// matches. It never rejects a record; one with no usable identifier at
// all always founds its own cluster.
func (e *Engine) AddRecord(r types.UnifiedRecord) {
	e.inputCounts[r.SourceDB]++

	cid, reason, ok := e.findCluster(r)
	if !ok {
		cid = e.newCluster(r)
		e.registerKeys(r, cid)
		e.log = append(e.log, types.LogEntry{
			Action:    types.ActionNew,
			Reason:    "No match found",
			ClusterID: cid,
			SourceDB:  r.SourceDB,
			Title:     truncate(r.TitleOriginal, logTitleLen),
			DOI:       r.DOIOriginal,
		})
		return
	}

	cluster := e.clusters[cid]
	founder := cluster.Founder()
	cluster.Records = append(cluster.Records, r)
	e.log = append(e.log, types.LogEntry{
		Action:           types.ActionMerge,
		Reason:           reason,
		ClusterID:        cid,
		SourceDB:         r.SourceDB,
		Title:            truncate(r.TitleOriginal, logTitleLen),
		DOI:              r.DOIOriginal,
		MatchedWithDB:    founder.SourceDB,
		MatchedWithTitle: truncate(founder.TitleOriginal, logTitleLen),
	})

	// A merged record can still carry identifiers the cluster has not
	// seen. Register them so later records find the cluster through
	// them, but never repoint keys already claimed elsewhere.
	e.registerKeys(r, cid)
}

// findCluster consults the indexes in fixed priority order — global
// persistent identifiers before the assembled arXiv ID, before the exact
// title key — and returns the first hit. Empty keys are never looked up.
func (e *Engine) findCluster(r types.UnifiedRecord) (int, string, bool) {
	if r.DOINormalized != "" {
		if cid, ok := e.doiIndex[r.DOINormalized]; ok {
			return cid, fmt.Sprintf("DOI match: %s", r.DOINormalized), true
		}
	}
	if r.PMID != "" {
		if cid, ok := e.pmidIndex[r.PMID]; ok {
			return cid, fmt.Sprintf("PMID match: %s", r.PMID), true
		}
	}
	if r.ArxivIDNormalized != "" {
		if cid, ok := e.arxivIndex[r.ArxivIDNormalized]; ok {
			return cid, fmt.Sprintf("arXiv ID match: %s", r.ArxivIDNormalized), true
		}
	}
	if r.TitleNormalized != "" {
		if cid, ok := e.titleIndex[r.TitleNormalized]; ok {
			return cid, "Exact title match", true
		}
	}
	return 0, "", false
}

// newCluster allocates the next cluster ID for a founding record.
func (e *Engine) newCluster(r types.UnifiedRecord) int {
	cid := len(e.clusters)
	e.clusters = append(e.clusters, &Cluster{ID: cid, Records: []types.UnifiedRecord{r}})
	return cid
}

// registerKeys records every non-empty key of r as pointing at cid,
// unless the key is already claimed. First writer wins permanently.
func (e *Engine) registerKeys(r types.UnifiedRecord, cid int) {
	if r.DOINormalized != "" {
		if _, claimed := e.doiIndex[r.DOINormalized]; !claimed {
			e.doiIndex[r.DOINormalized] = cid
		}
	}
	if r.PMID != "" {
		if _, claimed := e.pmidIndex[r.PMID]; !claimed {
			e.pmidIndex[r.PMID] = cid
		}
	}
	if r.ArxivIDNormalized != "" {
		if _, claimed := e.arxivIndex[r.ArxivIDNormalized]; !claimed {
			e.arxivIndex[r.ArxivIDNormalized] = cid
		}
	}
	if r.TitleNormalized != "" {
		if _, claimed := e.titleIndex[r.TitleNormalized]; !claimed {
			e.titleIndex[r.TitleNormalized] = cid
		}
	}
}

// Clusters returns all clusters in creation order.
func (e *Engine) Clusters() []*Cluster {
	return e.clusters
}

// Log returns the decision log, one entry per input record in
// processing order.
func (e *Engine) Log() []types.LogEntry {
	return e.log
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
