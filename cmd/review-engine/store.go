// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/dedup"
	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the screening index (ingest, retrieve, export)",
	Long: `Store manages a local SQLite index over the screening set. Use
subcommands to ingest the dedup outputs, query records with full-text
search and filters, or export the index.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the dedup outputs into the screening index",
	Long: `Ingest reads deduplicated_records.json, deduplication_log.csv and
deduplication_stats.json from the output directory and loads them into
the SQLite index with FTS5 indexing. Re-running replaces existing rows,
so the index always mirrors the latest dedup run.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = viper.GetString("dedup.output_dir")
	}
	if outputDir == "" {
		outputDir = "data"
	}

	envelope, err := dedup.LoadRecords(outputDir)
	if err != nil {
		return err
	}
	log, err := dedup.LoadLogCSV(outputDir)
	if err != nil {
		return err
	}
	stats, err := dedup.LoadStats(outputDir)
	if err != nil {
		return err
	}

	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.Ingest(cmd.Context(), envelope.Records, log, stats.PreprintLinks, os.Stdout)
	return err
}

// --- retrieve subcommand ---

var storeRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the screening index with full-text search and filters",
	Long: `Retrieve searches titles and abstracts using FTS5 full-text search,
structured filters (source, year, minimum source count), or both.

Use --history with a cluster ID to view a cluster's merge decisions,
or --preprint-link to view its preprint-to-published annotation.`,
	RunE: runStoreRetrieve,
}

func runStoreRetrieve(cmd *cobra.Command, args []string) error {
	s, err := store.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	historyID, _ := cmd.Flags().GetInt("history")
	if historyID > 0 {
		return printHistory(cmd, s, historyID)
	}
	linkID, _ := cmd.Flags().GetInt("preprint-link")
	if linkID > 0 {
		return printPreprintLink(cmd, s, linkID)
	}

	opts := storeQueryOpts(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --source, --year, or --min-sources")
	}

	results, err := s.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func printHistory(cmd *cobra.Command, s *store.Store, clusterID int) error {
	entries, err := s.History(cmd.Context(), clusterID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No decisions recorded for cluster %d.\n", clusterID)
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-5s  %-24s  %s", e.Action, e.Reason, e.SourceDB)
		if e.Action == types.ActionMerge {
			line += fmt.Sprintf("  (matched %s)", e.MatchedWithDB)
		}
		fmt.Println(line)
	}
	return nil
}

func printPreprintLink(cmd *cobra.Command, s *store.Store, clusterID int) error {
	link, ok, err := s.PreprintLink(cmd.Context(), clusterID)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("Cluster %d has no preprint-to-published link.\n", clusterID)
		return nil
	}
	fmt.Printf("Cluster %d: %s\n", link.ClusterID, link.Title)
	fmt.Printf("  published: %s\n", link.PublishedDOI)
	for _, doi := range link.PreprintDOIs {
		fmt.Printf("  preprint:  %s\n", doi)
	}
	return nil
}

func formatRetrieveOutput(results []store.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-60s  %-6s  %-30s  %s\n",
		"Cluster", "Title", "Year", "DOI", "Sources")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for _, r := range results {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		doi := r.DOI
		if len(doi) > 30 {
			doi = doi[:27] + "..."
		}
		sources := make([]string, len(r.Sources))
		for i, src := range r.Sources {
			sources[i] = string(src)
		}
		fmt.Fprintf(os.Stdout, "%-8d  %-60s  %-6s  %-30s  %s\n",
			r.ClusterID, title, r.Year, doi, strings.Join(sources, ","))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the screening index to YAML or JSON",
	Long: `Export writes the full screening index (or a filtered subset) to
export.yaml or export.json in the index directory. Supports the same
filter flags as retrieve for partial exports.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := storeConfig(cmd)
	s, err := store.NewStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := storeQueryOpts(cmd, args)

	switch format {
	case "yaml", "":
		if err := s.ExportYAML(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.yaml\n", cfg.IndexDir)
	case "json":
		if err := s.ExportJSON(cmd.Context(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.json\n", cfg.IndexDir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func storeConfig(cmd *cobra.Command) types.StoreConfig {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if indexDir == "" {
		indexDir = viper.GetString("store.index_dir")
	}
	if indexDir == "" {
		indexDir = "data/index"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.StoreConfig{
		IndexDir:   indexDir,
		MaxResults: maxResults,
	}
}

func storeQueryOpts(cmd *cobra.Command, args []string) store.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	source, _ := cmd.Flags().GetString("source")
	year, _ := cmd.Flags().GetString("year")
	minSources, _ := cmd.Flags().GetInt("min-sources")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.QueryOptions{
		Query:      queryText,
		Source:     types.Source(source),
		Year:       year,
		MinSources: minSources,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("index-dir", "", "directory for the SQLite index (default: data/index)")
	storeCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Ingest flags.
	storeIngestCmd.Flags().String("output-dir", "", "directory holding the dedup outputs (default: data)")

	// Retrieve flags.
	storeRetrieveCmd.Flags().String("query", "", "full-text search query over titles and abstracts")
	storeRetrieveCmd.Flags().String("source", "", "filter by contributing database, e.g. pubmed")
	storeRetrieveCmd.Flags().String("year", "", "filter by publication year")
	storeRetrieveCmd.Flags().Int("min-sources", 0, "filter by minimum number of contributing databases")
	storeRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeRetrieveCmd.Flags().Int("history", 0, "show merge decisions for a cluster ID")
	storeRetrieveCmd.Flags().Int("preprint-link", 0, "show the preprint-to-published link for a cluster ID")
	storeRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	storeExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	storeExportCmd.Flags().String("source", "", "filter by database for partial export")
	storeExportCmd.Flags().String("year", "", "filter by year for partial export")
	storeExportCmd.Flags().Int("min-sources", 0, "filter by minimum source count for partial export")
	storeExportCmd.Flags().Int("limit", 0, "maximum records to export (0 = all)")

	// Wire subcommands.
	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeRetrieveCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
