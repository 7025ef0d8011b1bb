// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest queries the review's bibliographic databases and
// writes one export file per database. Each client implements the
// Harvester interface per the Strategy pattern; the runner executes them
// sequentially, respecting per-API rate limits, and a failed database is
// a warning rather than an aborted run.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Harvester searches a single bibliographic database.
type Harvester interface {
	Source() types.Source
	Search(ctx context.Context, cfg types.HarvestConfig) (Export, error)
}

// Export is the on-disk envelope for one database's results, written to
// exports/<db>_<date>.json.
type Export struct {
	Database     types.Source      `json:"database"`
	SearchDate   string            `json:"search_date"`
	Query        string            `json:"query"`
	Filters      string            `json:"filters,omitempty"`
	TotalResults int               `json:"total_results"`
	Records      []types.RawRecord `json:"records"`
}

// Summary reports one harvest run.
type Summary struct {
	PerDatabase map[types.Source]int
	Failed      []string
}

// Run executes the given harvesters in order and writes their exports.
// A harvester error is reported on w and recorded in the summary; the
// remaining databases still run.
func Run(ctx context.Context, harvesters []Harvester, cfg types.HarvestConfig, w io.Writer) (Summary, error) {
	if err := os.MkdirAll(cfg.ExportsDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating exports directory: %w", err)
	}

	summary := Summary{PerDatabase: make(map[types.Source]int)}
	for _, h := range harvesters {
		fmt.Fprintf(w, "%s: searching...\n", h.Source())
		export, err := h.Search(ctx, cfg)
		if err != nil {
			fmt.Fprintf(w, "warning: %s failed: %v\n", h.Source(), err)
			summary.Failed = append(summary.Failed, fmt.Sprintf("%s: %v", h.Source(), err))
			continue
		}

		path, err := WriteExport(cfg.ExportsDir, export)
		if err != nil {
			return summary, err
		}
		summary.PerDatabase[h.Source()] = len(export.Records)
		fmt.Fprintf(w, "%s: %d records -> %s\n", h.Source(), len(export.Records), path)
	}
	return summary, nil
}

// WriteExport saves an export as exports/<db>_<date>.json.
func WriteExport(dir string, export Export) (string, error) {
	if export.SearchDate == "" {
		export.SearchDate = time.Now().Format("2006-01-02")
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", export.Database, export.SearchDate))

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s export: %w", export.Database, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s export: %w", export.Database, err)
	}
	return path, nil
}

// LoadExport reads the newest export file for a database from dir.
// A database with no export present returns ok=false, not an error, so
// a partial harvest still deduplicates.
func LoadExport(dir string, db types.Source) (Export, bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, string(db)+"_*.json"))
	if err != nil {
		return Export{}, false, err
	}
	if len(matches) == 0 {
		return Export{}, false, nil
	}

	// Glob output is sorted; the date suffix makes the last file the
	// newest.
	path := matches[len(matches)-1]
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return Export{}, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return export, true, nil
}

// newLimiter builds the per-client rate limiter from config.
func newLimiter(cfg types.HarvestConfig) *rate.Limiter {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// newClient builds the HTTP client for one harvester.
func newClient(cfg types.HarvestConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// dateWithinCutoff reports whether a record date (YYYY, YYYY-MM, or
// YYYY-MM-DD) is on or before the cutoff. Date and cutoff are compared
// at the coarser of their two granularities, so a year-only cutoff from
// the config still works. Unparsable or empty dates are kept; the
// cutoff exists to drop results published after the search date, not to
// validate metadata.
func dateWithinCutoff(dateStr, cutoff string) bool {
	n := dateGranularity(dateStr)
	if m := dateGranularity(cutoff); m < n {
		n = m
	}
	if n == 0 {
		return true
	}
	return dateStr[:n] <= cutoff[:n]
}

// dateGranularity returns the comparable prefix length of a date
// string: 10 for YYYY-MM-DD (timestamps included), 7 for YYYY-MM, 4 for
// YYYY, 0 for anything else.
func dateGranularity(s string) int {
	switch {
	case len(s) >= 10:
		return 10
	case len(s) == 7:
		return 7
	case len(s) == 4:
		return 4
	default:
		return 0
	}
}
