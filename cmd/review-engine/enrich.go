// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/dedup"
	"github.com/pdiddy/review-engine/internal/enrich"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch missing abstracts, then exclude records still lacking one",
	Long: `Enrich looks up abstracts for deduplicated records that lack one,
trying Semantic Scholar by DOI, Crossref, PubMed by PMID, and a
Semantic Scholar title search in turn. Records still without an
abstract are moved to excluded_no_abstract.json with exclusion code
EC_NO_ABSTRACT; the remainder is rewritten as the screening set.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("output-dir", "", "directory holding deduplicated_records.json (default: data)")
	enrichCmd.Flags().Int("limit", 0, "max records to look up (0 = all)")
	enrichCmd.Flags().Bool("dry-run", false, "report what would change without writing files")
	enrichCmd.Flags().Bool("skip-fetch", false, "skip API lookups, only run the exclusion step")
	enrichCmd.Flags().Duration("fetch-delay", 150*time.Millisecond, "pause between API lookups")

	rootCmd.AddCommand(enrichCmd)
}

func enrichConfigFromFlags(cmd *cobra.Command) types.EnrichConfig {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = viper.GetString("enrich.output_dir")
	}
	if outputDir == "" {
		outputDir = "data"
	}
	limit, _ := cmd.Flags().GetInt("limit")
	delay, _ := cmd.Flags().GetDuration("fetch-delay")

	cfg := types.PipelineConfig{
		Enrich: types.EnrichConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("enrich.timeout"),
				UserAgent: defaultUserAgent,
			},
			OutputDir:             outputDir,
			MinAbstractLen:        viper.GetInt("enrich.min_abstract_len"),
			Limit:                 limit,
			FetchDelay:            delay,
			ContactEmail:          viper.GetString("enrich.contact_email"),
			NCBIAPIKey:            viper.GetString("enrich.ncbi_api_key"),
			SemanticScholarAPIKey: viper.GetString("enrich.semantic_scholar_api_key"),
		},
	}
	secrets.Apply(loadedSecrets, &cfg)
	return cfg.Enrich
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg := enrichConfigFromFlags(cmd)
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipFetch, _ := cmd.Flags().GetBool("skip-fetch")

	envelope, err := dedup.LoadRecords(cfg.OutputDir)
	if err != nil {
		return err
	}

	e := enrich.New(cfg, os.Stdout)

	var log enrich.Log
	if skipFetch {
		fmt.Println("skipping API fetch")
		log = e.AuditLog(envelope.Records)
	} else {
		log, err = e.Enrich(cmd.Context(), envelope.Records)
		if err != nil {
			return err
		}
		fmt.Printf("\nenriched %d of %d missing abstracts\n", log.Enriched, log.MissingBefore)
		for api, n := range log.FoundBySource {
			fmt.Printf("  %-10s %d\n", api+":", n)
		}
	}

	kept, excluded := e.Partition(envelope.Records)
	log.ExcludedNoAbstract = excluded.TotalExcluded
	log.ForScreening = len(kept)

	if dryRun {
		fmt.Printf("[dry run] would exclude %d record(s), keep %d for screening\n",
			excluded.TotalExcluded, len(kept))
		return nil
	}

	if _, err := enrich.WriteExcluded(cfg.OutputDir, excluded); err != nil {
		return err
	}

	envelope.Records = kept
	envelope.Metadata.TotalAfterDedup = len(kept)
	envelope.Metadata.Enrichment = map[string]any{
		"date":                  time.Now().Format(time.RFC3339),
		"enriched_count":        log.Enriched,
		"excluded_no_abstract":  excluded.TotalExcluded,
		"records_for_screening": len(kept),
		"sources":               log.FoundBySource,
	}
	if _, err := envelope.Save(cfg.OutputDir); err != nil {
		return err
	}
	if _, err := enrich.WriteLog(cfg.OutputDir, log); err != nil {
		return err
	}

	fmt.Printf("excluded %d record(s), %d kept for screening\n", excluded.TotalExcluded, len(kept))
	return nil
}
