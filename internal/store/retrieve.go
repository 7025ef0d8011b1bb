// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// QueryOptions holds parameters for screening index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over title and abstract.
	Query string

	// Source keeps only clusters that include a record from this database.
	Source types.Source

	// Year filters by publication year.
	Year string

	// MinSources keeps only clusters found by at least this many databases.
	MinSources int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Source == "" && q.Year == "" && q.MinSources == 0
}

// QueryResult is a screening record with its full-text rank. Rank is
// zero for structured-only queries.
type QueryResult struct {
	types.DeduplicatedRecord
	Rank float64 `json:"rank" yaml:"rank"`
}

// Retrieve queries the screening index with optional full-text search
// and structured filters. Full-text results come back in relevance
// order, structured-only results in cluster order.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.cluster_id, r.title, r.title_normalized, r.doi, r.preprint_doi,
				r.pmid, r.arxiv_id, r.abstract, r.abstract_source, r.authors,
				r.year, r.venue, r.date, r.url, r.sources, r.n_sources,
				r.all_dois, r.duplicate_count, records_fts.rank
			FROM records_fts
			JOIN records r ON r.cluster_id = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT r.cluster_id, r.title, r.title_normalized, r.doi, r.preprint_doi,
				r.pmid, r.arxiv_id, r.abstract, r.abstract_source, r.authors,
				r.year, r.venue, r.date, r.url, r.sources, r.n_sources,
				r.all_dois, r.duplicate_count, 0 AS rank
			FROM records r
			WHERE 1=1`)
	}

	if opts.Source != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(r.sources) WHERE value = ?)`)
		args = append(args, string(opts.Source))
	}
	if opts.Year != "" {
		qb.WriteString(` AND r.year = ?`)
		args = append(args, opts.Year)
	}
	if opts.MinSources > 0 {
		qb.WriteString(` AND r.n_sources >= ?`)
		args = append(args, opts.MinSources)
	}

	if useFTS {
		qb.WriteString(` ORDER BY records_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.cluster_id`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying screening index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr          QueryResult
			sourcesJSON sql.NullString
			doisJSON    sql.NullString
		)
		if err := rows.Scan(
			&qr.ClusterID, &qr.Title, &qr.TitleNormalized, &qr.DOI, &qr.PreprintDOI,
			&qr.PMID, &qr.ArxivID, &qr.Abstract, &qr.AbstractSource, &qr.Authors,
			&qr.Year, &qr.Venue, &qr.Date, &qr.URL, &sourcesJSON, &qr.NSources,
			&doisJSON, &qr.DuplicateCount, &qr.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if sourcesJSON.Valid {
			json.Unmarshal([]byte(sourcesJSON.String), &qr.Sources)
		}
		if doisJSON.Valid {
			json.Unmarshal([]byte(doisJSON.String), &qr.AllDOIs)
		}
		results = append(results, qr)
	}
	return results, rows.Err()
}

// History returns the dedup decision log lines for one cluster, in
// processing order.
func (s *Store) History(ctx context.Context, clusterID int) ([]types.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, reason, cluster_id, source_db, title, doi, matched_with_db, matched_with_title
		 FROM decision_log WHERE cluster_id = ? ORDER BY rowid`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("querying decision log: %w", err)
	}
	defer rows.Close()

	var entries []types.LogEntry
	for rows.Next() {
		var e types.LogEntry
		var action, sourceDB, matchedDB string
		if err := rows.Scan(&action, &e.Reason, &e.ClusterID, &sourceDB,
			&e.Title, &e.DOI, &matchedDB, &e.MatchedWithTitle); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Action = types.LogAction(action)
		e.SourceDB = types.Source(sourceDB)
		e.MatchedWithDB = types.Source(matchedDB)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PreprintLink returns the preprint-to-published annotation for a
// cluster, or ok=false when the cluster has none.
func (s *Store) PreprintLink(ctx context.Context, clusterID int) (types.PreprintLink, bool, error) {
	var link types.PreprintLink
	var doisJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT cluster_id, published_doi, preprint_dois, title
		 FROM preprint_links WHERE cluster_id = ?`, clusterID,
	).Scan(&link.ClusterID, &link.PublishedDOI, &doisJSON, &link.Title)
	if err == sql.ErrNoRows {
		return types.PreprintLink{}, false, nil
	}
	if err != nil {
		return types.PreprintLink{}, false, fmt.Errorf("querying preprint link: %w", err)
	}
	json.Unmarshal([]byte(doisJSON), &link.PreprintDOIs)
	return link, true, nil
}
