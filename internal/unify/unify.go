// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package unify maps heterogeneous per-database record shapes into the
// single internal schema consumed by the dedup engine.
//
// Each database returns a different subset of fields under different
// names (journal vs. publicationName vs. venue). Record reconciles the
// aliases, trims everything, and computes the normalized match keys via
// the normalize package. The mapping is pure: the input is not mutated
// and the same raw record always yields the same unified record.
package unify

import (
	"strings"

	"github.com/pdiddy/review-engine/internal/normalize"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Record converts one raw export record from the named database into a
// UnifiedRecord. It never fails: missing fields stay empty and empty
// identifiers normalize to the empty non-matching sentinel.
func Record(source types.Source, raw types.RawRecord) types.UnifiedRecord {
	u := types.UnifiedRecord{
		SourceDB:          source,
		TitleOriginal:     strings.TrimSpace(raw.Title),
		TitleNormalized:   normalize.Title(raw.Title),
		DOIOriginal:       strings.TrimSpace(raw.DOI),
		DOINormalized:     normalize.DOI(raw.DOI),
		PMID:              strings.TrimSpace(raw.PMID),
		ArxivIDOriginal:   strings.TrimSpace(raw.ArxivID),
		ArxivIDNormalized: normalize.ArxivID(raw.ArxivID),
		S2ID:              strings.TrimSpace(raw.S2ID),
		Abstract:          strings.TrimSpace(raw.Abstract),
		Authors:           strings.TrimSpace(raw.Authors),
		Year:              strings.TrimSpace(raw.Year),
		Venue:             firstNonEmpty(raw.Venue, raw.Journal, raw.PublicationName),
		Date:              firstNonEmpty(raw.Date, raw.PublicationDate),
		URL:               firstNonEmpty(raw.URL, raw.OpenAccessPDF),
	}

	// Source-specific extras.
	switch source {
	case types.SourceScopus:
		u.ScopusID = strings.TrimSpace(raw.ScopusID)
	case types.SourceBiorxivMedrxiv:
		u.EPMCID = strings.TrimSpace(raw.EPMCID)
	}

	return u
}

// Records converts a whole export batch, preserving order.
func Records(source types.Source, raws []types.RawRecord) []types.UnifiedRecord {
	unified := make([]types.UnifiedRecord, 0, len(raws))
	for _, raw := range raws {
		unified = append(unified, Record(source, raw))
	}
	return unified
}

// firstNonEmpty returns the first argument with non-whitespace content.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
