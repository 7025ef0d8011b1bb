package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "review-engine/0.1 (mailto:researcher@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// HarvestConfig holds settings for the harvest stage.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// ExportsDir is the directory where per-database export files are
	// written (e.g. "data/exports/").
	ExportsDir string `json:"exports_dir" yaml:"exports_dir"`

	// DateCutoff is the inclusive publication-date upper bound
	// (YYYY-MM-DD). Records dated after the cutoff are dropped.
	DateCutoff string `json:"date_cutoff" yaml:"date_cutoff"`

	// Queries maps a database name to its query string in that
	// database's native syntax.
	Queries map[Source]string `json:"queries" yaml:"queries"`

	// RequestsPerSecond caps the request rate against each API (default 3).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// ScholarFile is the path to a manually produced Google Scholar
	// export, the one database without a usable API.
	ScholarFile string `json:"scholar_file" yaml:"scholar_file"`

	// ContactEmail identifies the harvester to polite-pool APIs
	// (Europe PMC, Crossref).
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	// API credentials, usually filled from .secrets/.
	NCBIAPIKey            string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`
	ScopusAPIKey          string `json:"scopus_api_key,omitempty" yaml:"scopus_api_key,omitempty"`
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`
	SpringerAPIKey        string `json:"springer_api_key,omitempty" yaml:"springer_api_key,omitempty"`
}

// DedupConfig holds settings for the dedup stage.
type DedupConfig struct {
	// ExportsDir is the directory holding per-database export files.
	ExportsDir string `json:"exports_dir" yaml:"exports_dir"`

	// OutputDir is the directory for deduplicated_records.json,
	// deduplication_log.csv and dedup_stats.json.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// EnrichConfig holds settings for the abstract-enrichment stage.
type EnrichConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutputDir is the directory holding deduplicated_records.json; the
	// enrichment log and exclusion file are written next to it.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MinAbstractLen is the minimum trimmed length for an abstract to
	// count as present (default 10).
	MinAbstractLen int `json:"min_abstract_len" yaml:"min_abstract_len"`

	// Limit caps the number of records to enrich (0 = all).
	Limit int `json:"limit" yaml:"limit"`

	// FetchDelay is the pause between consecutive API lookups.
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay"`

	// ContactEmail identifies the client to the Crossref polite pool.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`

	NCBIAPIKey            string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`
}

// StoreConfig holds settings for the screening index.
type StoreConfig struct {
	// IndexDir is the directory containing the SQLite database
	// (e.g. "data/index/").
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Harvest HarvestConfig `json:"harvest" yaml:"harvest"`
	Dedup   DedupConfig   `json:"dedup" yaml:"dedup"`
	Enrich  EnrichConfig  `json:"enrich" yaml:"enrich"`
	Store   StoreConfig   `json:"store" yaml:"store"`
}
