// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists the deduplicated screening set in SQLite and
// builds a full-text index over titles and abstracts for screening
// queries.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/review-engine/pkg/types"
)

const dbFile = "screening.db"

// Store manages the screening index SQLite database.
type Store struct {
	db         *sql.DB
	indexDir   string
	maxResults int
}

// NewStore opens or creates the screening index at
// cfg.IndexDir/screening.db, creating the schema if needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, indexDir: cfg.IndexDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			cluster_id INTEGER PRIMARY KEY,
			title TEXT,
			title_normalized TEXT,
			doi TEXT,
			preprint_doi TEXT,
			pmid TEXT,
			arxiv_id TEXT,
			abstract TEXT,
			abstract_source TEXT,
			authors TEXT,
			year TEXT,
			venue TEXT,
			date TEXT,
			url TEXT,
			sources TEXT,
			n_sources INTEGER,
			all_dois TEXT,
			duplicate_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_doi ON records(doi)`,
		`CREATE INDEX IF NOT EXISTS idx_records_year ON records(year)`,
		`CREATE TABLE IF NOT EXISTS decision_log (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			reason TEXT,
			cluster_id INTEGER NOT NULL,
			source_db TEXT,
			title TEXT,
			doi TEXT,
			matched_with_db TEXT,
			matched_with_title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_cluster ON decision_log(cluster_id)`,
		`CREATE TABLE IF NOT EXISTS preprint_links (
			cluster_id INTEGER PRIMARY KEY,
			published_doi TEXT,
			preprint_dois TEXT,
			title TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE records_fts USING fts5(title, abstract, content=records, content_rowid=cluster_id)`,
			`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
				INSERT INTO records_fts(rowid, title, abstract) VALUES (new.cluster_id, new.title, new.abstract);
			END`,
			`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, title, abstract) VALUES('delete', old.cluster_id, old.title, old.abstract);
			END`,
			`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, title, abstract) VALUES('delete', old.cluster_id, old.title, old.abstract);
				INSERT INTO records_fts(rowid, title, abstract) VALUES (new.cluster_id, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from one indexing run.
type IngestSummary struct {
	Records    int
	LogEntries int
	Links      int
}

// Ingest loads the deduplicated screening set plus its audit artifacts
// into the index. Records upsert by cluster ID; the decision log and
// preprint links are replaced wholesale so a re-run is idempotent.
func (s *Store) Ingest(ctx context.Context, records []types.DeduplicatedRecord, log []types.LogEntry, links []types.PreprintLink, w io.Writer) (IngestSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete before reinserting so the FTS delete trigger fires; a bare
	// INSERT OR REPLACE skips it and leaves stale postings in the
	// external-content index.
	del, err := tx.PrepareContext(ctx, `DELETE FROM records WHERE cluster_id = ?`)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("preparing record delete: %w", err)
	}
	defer del.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (
			cluster_id, title, title_normalized, doi, preprint_doi, pmid, arxiv_id,
			abstract, abstract_source, authors, year, venue, date, url,
			sources, n_sources, all_dois, duplicate_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	var summary IngestSummary
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := del.ExecContext(ctx, r.ClusterID); err != nil {
			return summary, fmt.Errorf("deleting cluster %d: %w", r.ClusterID, err)
		}
		sourcesJSON, _ := json.Marshal(r.Sources)
		doisJSON, _ := json.Marshal(r.AllDOIs)
		if _, err := stmt.ExecContext(ctx,
			r.ClusterID, r.Title, r.TitleNormalized, r.DOI, r.PreprintDOI, r.PMID, r.ArxivID,
			r.Abstract, r.AbstractSource, r.Authors, r.Year, r.Venue, r.Date, r.URL,
			string(sourcesJSON), r.NSources, string(doisJSON), r.DuplicateCount,
		); err != nil {
			return summary, fmt.Errorf("inserting cluster %d: %w", r.ClusterID, err)
		}
		summary.Records++
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM decision_log`); err != nil {
		return summary, fmt.Errorf("clearing decision log: %w", err)
	}
	for _, entry := range log {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decision_log (action, reason, cluster_id, source_db, title, doi, matched_with_db, matched_with_title)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(entry.Action), entry.Reason, entry.ClusterID, string(entry.SourceDB),
			entry.Title, entry.DOI, string(entry.MatchedWithDB), entry.MatchedWithTitle,
		); err != nil {
			return summary, fmt.Errorf("inserting log entry: %w", err)
		}
		summary.LogEntries++
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM preprint_links`); err != nil {
		return summary, fmt.Errorf("clearing preprint links: %w", err)
	}
	for _, link := range links {
		doisJSON, _ := json.Marshal(link.PreprintDOIs)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preprint_links (cluster_id, published_doi, preprint_dois, title)
			 VALUES (?, ?, ?, ?)`,
			link.ClusterID, link.PublishedDOI, string(doisJSON), link.Title,
		); err != nil {
			return summary, fmt.Errorf("inserting preprint link: %w", err)
		}
		summary.Links++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing: %w", err)
	}

	fmt.Fprintf(w, "indexed %d records, %d log entries, %d preprint links\n",
		summary.Records, summary.LogEntries, summary.Links)
	return summary, nil
}
