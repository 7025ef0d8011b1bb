// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/harvest"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/pkg/types"
)

const defaultUserAgent = "review-engine/0.1"

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Search the review's bibliographic databases and save exports",
	Long: `Harvest runs the review's search query against each configured
database (PubMed, Scopus, Semantic Scholar, bioRxiv/medRxiv via Europe
PMC, Springer Nature, arXiv, and a manual Google Scholar export) and
writes one JSON export per database. A database that fails is reported
as a warning; the remaining databases still run.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("databases", "", "comma-separated database subset (default: all configured)")
	harvestCmd.Flags().String("exports-dir", "", "directory for export files (default: data/exports)")
	harvestCmd.Flags().String("cutoff", "", "inclusive publication-date cutoff YYYY-MM-DD")
	harvestCmd.Flags().String("scholar-file", "", "path to a manual Google Scholar JSON export")
	harvestCmd.Flags().Float64("rps", 0, "max requests per second per API (default 3)")
	harvestCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	rootCmd.AddCommand(harvestCmd)
}

func harvestConfigFromFlags(cmd *cobra.Command) types.HarvestConfig {
	exportsDir, _ := cmd.Flags().GetString("exports-dir")
	if exportsDir == "" {
		exportsDir = viper.GetString("harvest.exports_dir")
	}
	if exportsDir == "" {
		exportsDir = "data/exports"
	}
	cutoff, _ := cmd.Flags().GetString("cutoff")
	if cutoff == "" {
		cutoff = viper.GetString("harvest.date_cutoff")
	}
	scholarFile, _ := cmd.Flags().GetString("scholar-file")
	if scholarFile == "" {
		scholarFile = viper.GetString("harvest.scholar_file")
	}
	rps, _ := cmd.Flags().GetFloat64("rps")
	if rps == 0 {
		rps = viper.GetFloat64("harvest.requests_per_second")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("harvest.timeout")
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	cfg := types.PipelineConfig{
		Harvest: types.HarvestConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: defaultUserAgent,
			},
			ExportsDir:            exportsDir,
			DateCutoff:            cutoff,
			Queries:               configQueries(),
			RequestsPerSecond:     rps,
			ScholarFile:           scholarFile,
			ContactEmail:          viper.GetString("harvest.contact_email"),
			NCBIAPIKey:            viper.GetString("harvest.ncbi_api_key"),
			ScopusAPIKey:          viper.GetString("harvest.scopus_api_key"),
			SemanticScholarAPIKey: viper.GetString("harvest.semantic_scholar_api_key"),
			SpringerAPIKey:        viper.GetString("harvest.springer_api_key"),
		},
	}
	secrets.Apply(loadedSecrets, &cfg)
	return cfg.Harvest
}

// newHarvester builds the client for one database.
func newHarvester(db types.Source, cfg types.HarvestConfig) (harvest.Harvester, error) {
	switch db {
	case types.SourcePubMed:
		return harvest.NewPubMed(cfg), nil
	case types.SourceScopus:
		return harvest.NewScopus(cfg), nil
	case types.SourceSemanticScholar:
		return harvest.NewSemanticScholar(cfg), nil
	case types.SourceBiorxivMedrxiv:
		return harvest.NewEuropePMC(cfg), nil
	case types.SourceSpringerNature:
		return harvest.NewSpringer(cfg), nil
	case types.SourceArxiv:
		return harvest.NewArxiv(cfg), nil
	case types.SourceGoogleScholar:
		return harvest.NewScholar(cfg), nil
	default:
		return nil, fmt.Errorf("unknown database %q", db)
	}
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg := harvestConfigFromFlags(cmd)

	selected := make(map[types.Source]bool)
	if list, _ := cmd.Flags().GetString("databases"); list != "" {
		for _, name := range strings.Split(list, ",") {
			selected[types.Source(strings.TrimSpace(name))] = true
		}
	}

	var harvesters []harvest.Harvester
	for _, db := range types.HarvestOrder {
		if len(selected) > 0 && !selected[db] {
			continue
		}
		if cfg.Queries[db] == "" && db != types.SourceGoogleScholar {
			fmt.Fprintf(os.Stderr, "skipping %s: no query configured\n", db)
			continue
		}
		if db == types.SourceGoogleScholar && cfg.ScholarFile == "" {
			fmt.Fprintln(os.Stderr, "skipping google_scholar: no export file configured")
			continue
		}
		h, err := newHarvester(db, cfg)
		if err != nil {
			return err
		}
		harvesters = append(harvesters, h)
	}
	if len(harvesters) == 0 {
		return fmt.Errorf("no databases to harvest: configure harvest.queries in review-engine.yaml")
	}

	summary, err := harvest.Run(cmd.Context(), harvesters, cfg, os.Stdout)
	if err != nil {
		return err
	}

	total := 0
	for _, n := range summary.PerDatabase {
		total += n
	}
	fmt.Printf("\nharvested %d records from %d database(s)\n", total, len(summary.PerDatabase))
	if len(summary.Failed) > 0 {
		fmt.Printf("failed: %s\n", strings.Join(summary.Failed, "; "))
	}
	return nil
}
