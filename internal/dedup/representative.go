// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"sort"

	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/pkg/types"
)

// unknownSourceRank places records from unrecognized databases after all
// known ones when choosing a representative.
const unknownSourceRank = 99

// DeduplicatedRecords returns one output record per cluster, ordered by
// cluster ID. The representative is the member that sorts first under
// (has published DOI, has any DOI, source priority, longer abstract),
// ties broken by encounter order. The output abstract is overridden with
// the longest non-empty abstract found anywhere in the cluster, since
// the representative may come from a database that carries none.
func (e *Engine) DeduplicatedRecords() []types.DeduplicatedRecord {
	results := make([]types.DeduplicatedRecord, 0, len(e.clusters))
	for _, c := range e.clusters {
		results = append(results, clusterRecord(c))
	}
	// Clusters are stored in creation order already; keep the sort as a
	// guard so output order survives any future storage change.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ClusterID < results[j].ClusterID
	})
	return results
}

func clusterRecord(c *Cluster) types.DeduplicatedRecord {
	best := selectRepresentative(c.Records)

	// Longest abstract across the whole cluster wins, whoever the
	// representative is.
	abstract := best.Abstract
	for _, r := range c.Records {
		if len(r.Abstract) > len(abstract) {
			abstract = r.Abstract
		}
	}

	sources := distinctSources(c.Records)
	allDOIs := distinctValues(c.Records, func(r types.UnifiedRecord) string { return r.DOIOriginal })
	allPMIDs := distinctValues(c.Records, func(r types.UnifiedRecord) string { return r.PMID })
	allArxivIDs := distinctValues(c.Records, func(r types.UnifiedRecord) string { return r.ArxivIDOriginal })

	var preprintDOIs, publishedDOIs []string
	for _, d := range allDOIs {
		if normalize.IsPreprintDOI(d) {
			preprintDOIs = append(preprintDOIs, d)
		} else {
			publishedDOIs = append(publishedDOIs, d)
		}
	}

	doi := ""
	switch {
	case len(publishedDOIs) > 0:
		doi = publishedDOIs[0]
	case len(allDOIs) > 0:
		doi = allDOIs[0]
	}

	preprintDOI := ""
	if len(preprintDOIs) > 0 && len(publishedDOIs) > 0 {
		preprintDOI = preprintDOIs[0]
	}

	return types.DeduplicatedRecord{
		ClusterID:       c.ID,
		Title:           best.TitleOriginal,
		TitleNormalized: best.TitleNormalized,
		DOI:             doi,
		PreprintDOI:     preprintDOI,
		PMID:            first(allPMIDs),
		ArxivID:         first(allArxivIDs),
		Abstract:        abstract,
		Authors:         best.Authors,
		Year:            best.Year,
		Venue:           best.Venue,
		Date:            best.Date,
		URL:             best.URL,
		Sources:         sources,
		NSources:        len(sources),
		AllDOIs:         allDOIs,
		DuplicateCount:  len(c.Records),
	}
}

// selectRepresentative picks the member with the most trustworthy
// metadata. The sort is stable so equal records keep processing order,
// which favors the earlier (higher-quality) source batch.
func selectRepresentative(records []types.UnifiedRecord) types.UnifiedRecord {
	sorted := make([]types.UnifiedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := rankOf(sorted[i]), rankOf(sorted[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return sorted[0]
}

// rankOf builds the ascending sort key for representative selection:
// published DOI, any DOI, database priority, negated abstract length.
func rankOf(r types.UnifiedRecord) [4]int {
	hasPublishedDOI := 2
	if r.DOINormalized != "" && !normalize.IsPreprintDOI(r.DOINormalized) {
		hasPublishedDOI = 1
	}
	hasAnyDOI := 2
	if r.DOINormalized != "" {
		hasAnyDOI = 1
	}
	prio, ok := types.SourcePriority[r.SourceDB]
	if !ok {
		prio = unknownSourceRank
	}
	return [4]int{hasPublishedDOI, hasAnyDOI, prio, -len(r.Abstract)}
}

// distinctSources returns the sorted set of databases that contributed
// to the cluster.
func distinctSources(records []types.UnifiedRecord) []types.Source {
	seen := make(map[types.Source]bool)
	var sources []types.Source
	for _, r := range records {
		if !seen[r.SourceDB] {
			seen[r.SourceDB] = true
			sources = append(sources, r.SourceDB)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// distinctValues collects non-empty field values in first-seen order.
func distinctValues(records []types.UnifiedRecord, field func(types.UnifiedRecord) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, r := range records {
		v := field(r)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
