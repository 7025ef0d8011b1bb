// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// mergeReasonBuckets maps a log-entry reason prefix to its stats bucket.
var mergeReasonBuckets = []string{
	"DOI match",
	"PMID match",
	"arXiv ID match",
	"Exact title match",
}

// Stats summarizes a finished run: totals, merge reasons, how many
// databases found each record, and pairwise database overlap. The
// preprint links are included so one stats file carries the whole audit
// summary.
func (e *Engine) Stats() types.DedupStats {
	records := e.DeduplicatedRecords()
	links := e.ResolvePreprints()

	total := 0
	perDB := make(map[types.Source]int, len(e.inputCounts))
	for src, n := range e.inputCounts {
		perDB[src] = n
		total += n
	}

	reasons := make(map[string]int)
	for _, entry := range e.log {
		if entry.Action != types.ActionMerge {
			continue
		}
		for _, bucket := range mergeReasonBuckets {
			if strings.HasPrefix(entry.Reason, bucket) {
				reasons[bucket]++
				break
			}
		}
	}

	distribution := make(map[int]int)
	overlap := make(map[string]int)
	for _, r := range records {
		distribution[r.NSources]++
		for i, a := range r.Sources {
			for _, b := range r.Sources[i+1:] {
				overlap[overlapKey(a, b)]++
			}
		}
	}

	duplicates := total - len(records)
	rate := 0.0
	if total > 0 {
		rate = float64(duplicates) / float64(total) * 100
	}

	return types.DedupStats{
		RecordsPerDatabase: perDB,
		TotalBeforeDedup:   total,
		TotalAfterDedup:    len(records),
		DuplicatesRemoved:  duplicates,
		DuplicateRate:      rate,
		MergeReasons:       reasons,
		SourceDistribution: distribution,
		SourceOverlap:      overlap,
		PreprintLinkCount:  len(links),
		PreprintLinks:      links,
	}
}

// overlapKey builds the canonical unordered pair key "a|b". Sources in a
// DeduplicatedRecord are already sorted, so a < b holds, but normalize
// anyway for callers holding unsorted pairs.
func overlapKey(a, b types.Source) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}
