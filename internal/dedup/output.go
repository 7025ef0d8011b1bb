// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Output file names within the output directory.
const (
	RecordsFile = "deduplicated_records.json"
	LogFile     = "deduplication_log.csv"
	StatsFile   = "deduplication_stats.json"
)

// RecordsEnvelope is the on-disk shape of deduplicated_records.json.
type RecordsEnvelope struct {
	Metadata RecordsMetadata            `json:"metadata"`
	Records  []types.DeduplicatedRecord `json:"records"`
}

// RecordsMetadata describes how the screening set was produced. The
// enrichment stage annotates it in place when it rewrites the file.
type RecordsMetadata struct {
	Created           string   `json:"created"`
	Strategy          string   `json:"strategy"`
	TotalBeforeDedup  int      `json:"total_before_dedup"`
	TotalAfterDedup   int      `json:"total_after_dedup"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	SourceFiles       []string `json:"source_files,omitempty"`
	Enrichment        any      `json:"abstract_enrichment,omitempty"`
}

const strategyDescription = "Conservative exact matching (DOI → PMID → arXiv ID → normalized title)"

// WriteRecords saves the deduplicated screening set with its metadata
// envelope.
func WriteRecords(dir string, records []types.DeduplicatedRecord, stats types.DedupStats, sourceFiles []string) (string, error) {
	envelope := RecordsEnvelope{
		Metadata: RecordsMetadata{
			Created:           time.Now().Format(time.RFC3339),
			Strategy:          strategyDescription,
			TotalBeforeDedup:  stats.TotalBeforeDedup,
			TotalAfterDedup:   stats.TotalAfterDedup,
			DuplicatesRemoved: stats.DuplicatesRemoved,
			SourceFiles:       sourceFiles,
		},
		Records: records,
	}
	return envelope.Save(dir)
}

// Save writes the envelope back to dir/deduplicated_records.json.
func (env RecordsEnvelope) Save(dir string) (string, error) {
	path := filepath.Join(dir, RecordsFile)
	return path, writeJSON(path, env)
}

// LoadRecords reads a previously written screening set.
func LoadRecords(dir string) (RecordsEnvelope, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordsFile))
	if err != nil {
		return RecordsEnvelope{}, fmt.Errorf("reading records: %w", err)
	}
	var envelope RecordsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return RecordsEnvelope{}, fmt.Errorf("parsing records: %w", err)
	}
	return envelope, nil
}

// WriteLogCSV saves the decision log, one row per input record.
func WriteLogCSV(dir string, log []types.LogEntry) (string, error) {
	path := filepath.Join(dir, LogFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"action", "reason", "cluster_id", "source_db", "title", "doi", "matched_with_db", "matched_with_title"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("writing log header: %w", err)
	}
	for _, entry := range log {
		row := []string{
			string(entry.Action),
			entry.Reason,
			strconv.Itoa(entry.ClusterID),
			string(entry.SourceDB),
			entry.Title,
			entry.DOI,
			string(entry.MatchedWithDB),
			entry.MatchedWithTitle,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing log: %w", err)
	}
	return path, nil
}

// LoadLogCSV reads a previously written decision log.
func LoadLogCSV(dir string) ([]types.LogEntry, error) {
	f, err := os.Open(filepath.Join(dir, LogFile))
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing log: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	log := make([]types.LogEntry, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		clusterID, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("parsing log cluster id %q: %w", row[2], err)
		}
		log = append(log, types.LogEntry{
			Action:           types.LogAction(row[0]),
			Reason:           row[1],
			ClusterID:        clusterID,
			SourceDB:         types.Source(row[3]),
			Title:            row[4],
			DOI:              row[5],
			MatchedWithDB:    types.Source(row[6]),
			MatchedWithTitle: row[7],
		})
	}
	return log, nil
}

// StatsEnvelope is the on-disk shape of deduplication_stats.json.
type StatsEnvelope struct {
	Created string `json:"created"`
	types.DedupStats
}

// WriteStats saves the run statistics.
func WriteStats(dir string, stats types.DedupStats) (string, error) {
	path := filepath.Join(dir, StatsFile)
	envelope := StatsEnvelope{
		Created:    time.Now().Format(time.RFC3339),
		DedupStats: stats,
	}
	return path, writeJSON(path, envelope)
}

// LoadStats reads previously written run statistics.
func LoadStats(dir string) (StatsEnvelope, error) {
	data, err := os.ReadFile(filepath.Join(dir, StatsFile))
	if err != nil {
		return StatsEnvelope{}, fmt.Errorf("reading stats: %w", err)
	}
	var envelope StatsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return StatsEnvelope{}, fmt.Errorf("parsing stats: %w", err)
	}
	return envelope, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
