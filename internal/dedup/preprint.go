// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/pkg/types"
)

// ResolvePreprints scans every cluster with two or more members and
// reports those containing both a preprint DOI and a published DOI.
// The link is audit metadata only: by the time this runs the cluster was
// already merged through some exact key, this pass just classifies the
// nature of that merge. Links come out in cluster-ID order.
func (e *Engine) ResolvePreprints() []types.PreprintLink {
	var links []types.PreprintLink

	for _, c := range e.clusters {
		if len(c.Records) < 2 {
			continue
		}

		var preprint, published []string
		for _, r := range c.Records {
			if r.DOINormalized == "" {
				continue
			}
			if normalize.IsPreprintDOI(r.DOINormalized) {
				preprint = append(preprint, r.DOINormalized)
			} else {
				published = append(published, r.DOINormalized)
			}
		}

		if len(preprint) > 0 && len(published) > 0 {
			links = append(links, types.PreprintLink{
				ClusterID:    c.ID,
				PublishedDOI: published[0],
				PreprintDOIs: preprint,
				Title:        truncate(c.Founder().TitleOriginal, logTitleLen),
			})
		}
	}

	return links
}
