// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Output file names within the output directory.
const (
	ExcludedFile = "excluded_no_abstract.json"
	LogFile      = "enrichment_log.json"
)

// WriteExcluded saves the excluded records with their audit metadata.
func WriteExcluded(dir string, excluded Exclusion) (string, error) {
	envelope := struct {
		Metadata struct {
			Created       string `json:"created"`
			Reason        string `json:"reason"`
			TotalExcluded int    `json:"total_excluded"`
			ExclusionCode string `json:"exclusion_code"`
		} `json:"metadata"`
		Records []types.DeduplicatedRecord `json:"records"`
	}{Records: excluded.Records}
	envelope.Metadata.Created = time.Now().Format(time.RFC3339)
	envelope.Metadata.Reason = excluded.Reason
	envelope.Metadata.TotalExcluded = excluded.TotalExcluded
	envelope.Metadata.ExclusionCode = excluded.ExclusionCode

	path := filepath.Join(dir, ExcludedFile)
	return path, writeJSON(path, envelope)
}

// WriteLog saves the enrichment run log.
func WriteLog(dir string, log Log) (string, error) {
	envelope := struct {
		Created string `json:"created"`
		Log
	}{Created: time.Now().Format(time.RFC3339), Log: log}

	path := filepath.Join(dir, LogFile)
	return path, writeJSON(path, envelope)
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
