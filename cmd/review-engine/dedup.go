// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/dedup"
	"github.com/pdiddy/review-engine/internal/harvest"
	"github.com/pdiddy/review-engine/internal/unify"
	"github.com/pdiddy/review-engine/pkg/types"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Merge database exports into one deduplicated screening set",
	Long: `Dedup loads the newest export per database, feeds them to the
clustering engine in metadata-quality order (PubMed first, Google
Scholar last), and writes the screening set with its audit trail:

  deduplicated_records.json   one representative record per cluster
  deduplication_log.csv       one NEW/MERGE decision per input record
  deduplication_stats.json    totals, merge reasons, source overlap

Matching is exact-only: DOI, then PMID, then arXiv ID, then normalized
title. Records without a shared identifier never merge.`,
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().String("exports-dir", "", "directory holding export files (default: data/exports)")
	dedupCmd.Flags().String("output-dir", "", "directory for dedup outputs (default: data)")

	rootCmd.AddCommand(dedupCmd)
}

func dedupDirs(cmd *cobra.Command) (exportsDir, outputDir string) {
	exportsDir, _ = cmd.Flags().GetString("exports-dir")
	if exportsDir == "" {
		exportsDir = viper.GetString("dedup.exports_dir")
	}
	if exportsDir == "" {
		exportsDir = "data/exports"
	}
	outputDir, _ = cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = viper.GetString("dedup.output_dir")
	}
	if outputDir == "" {
		outputDir = "data"
	}
	return exportsDir, outputDir
}

func runDedup(cmd *cobra.Command, args []string) error {
	exportsDir, outputDir := dedupDirs(cmd)

	var (
		batches     []dedup.Batch
		sourceFiles []string
	)
	for _, db := range types.HarvestOrder {
		export, ok, err := harvest.LoadExport(exportsDir, db)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "no export for %s, skipping\n", db)
			continue
		}
		batches = append(batches, dedup.Batch{
			Source:  db,
			Records: unify.Records(db, export.Records),
		})
		sourceFiles = append(sourceFiles, fmt.Sprintf("%s_%s.json", db, export.SearchDate))
		fmt.Printf("%s: %d records\n", db, len(export.Records))
	}
	if len(batches) == 0 {
		return fmt.Errorf("no exports found in %s: run harvest first", exportsDir)
	}

	engine := dedup.NewEngine()
	engine.Process(batches)

	records := engine.DeduplicatedRecords()
	stats := engine.Stats()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if _, err := dedup.WriteRecords(outputDir, records, stats, sourceFiles); err != nil {
		return err
	}
	if _, err := dedup.WriteLogCSV(outputDir, engine.Log()); err != nil {
		return err
	}
	if _, err := dedup.WriteStats(outputDir, stats); err != nil {
		return err
	}

	fmt.Printf("\n%d records in, %d clusters out (%d duplicates, %.1f%%)\n",
		stats.TotalBeforeDedup, stats.TotalAfterDedup, stats.DuplicatesRemoved, stats.DuplicateRate)
	for _, reason := range []string{"DOI match", "PMID match", "arXiv ID match", "Exact title match"} {
		if n := stats.MergeReasons[reason]; n > 0 {
			fmt.Printf("  %-18s %d\n", reason+":", n)
		}
	}
	if stats.PreprintLinkCount > 0 {
		fmt.Printf("  preprint links:    %d\n", stats.PreprintLinkCount)
	}
	fmt.Printf("outputs in %s\n", filepath.Clean(outputDir))
	return nil
}
