// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the review-engine pipeline.
package types

// Source identifies a bibliographic database that contributes records.
type Source string

const (
	SourcePubMed          Source = "pubmed"
	SourceScopus          Source = "scopus"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceBiorxivMedrxiv  Source = "biorxiv_medrxiv"
	SourceSpringerNature  Source = "springernature"
	SourceArxiv           Source = "arxiv"
	SourceGoogleScholar   Source = "google_scholar"
)

// SourcePriority is the fixed metadata-quality order over the known
// databases. Lower is better. It decides both the order in which record
// batches are fed to the dedup engine and the tie-break when choosing a
// cluster representative. Unknown sources rank last.
var SourcePriority = map[Source]int{
	SourcePubMed:          1,
	SourceScopus:          2,
	SourceSemanticScholar: 3,
	SourceBiorxivMedrxiv:  4,
	SourceSpringerNature:  5,
	SourceArxiv:           6,
	SourceGoogleScholar:   7,
}

// HarvestOrder lists the sources in the order the dedup engine must
// consume them (best metadata first).
var HarvestOrder = []Source{
	SourcePubMed,
	SourceScopus,
	SourceSemanticScholar,
	SourceBiorxivMedrxiv,
	SourceSpringerNature,
	SourceArxiv,
	SourceGoogleScholar,
}

// RawRecord is one search hit as exported by a harvester, before
// unification. Field availability varies by source: only the fields the
// database returns are set, the rest stay empty. Aliased fields (Journal
// vs. PublicationName vs. Venue) are reconciled by the unifier.
type RawRecord struct {
	Title    string `json:"title"`
	DOI      string `json:"doi,omitempty"`
	PMID     string `json:"pmid,omitempty"`
	ArxivID  string `json:"arxiv_id,omitempty"`
	S2ID     string `json:"s2_id,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Year     string `json:"year,omitempty"`

	// Venue aliases. PubMed fills Journal, Springer fills
	// PublicationName, Semantic Scholar and Scopus fill Venue.
	Venue           string `json:"venue,omitempty"`
	Journal         string `json:"journal,omitempty"`
	PublicationName string `json:"publicationName,omitempty"`

	// Date aliases.
	Date            string `json:"date,omitempty"`
	PublicationDate string `json:"publicationDate,omitempty"`

	// URL aliases.
	URL           string `json:"url,omitempty"`
	OpenAccessPDF string `json:"open_access_pdf,omitempty"`

	// Source-specific extras.
	ScopusID string `json:"scopus_id,omitempty"`
	EPMCID   string `json:"epmc_id,omitempty"`
}

// UnifiedRecord is the internal schema every raw record is mapped into
// before clustering. It carries both the original field values and the
// normalized derivatives used as match keys. A normalized field is a
// pure function of its original; absent or unparsable input yields ""
// and an empty key never matches anything.
type UnifiedRecord struct {
	SourceDB          Source `json:"source_db" yaml:"source_db"`
	TitleOriginal     string `json:"title_original" yaml:"title_original"`
	TitleNormalized   string `json:"title_normalized" yaml:"title_normalized"`
	DOIOriginal       string `json:"doi_original" yaml:"doi_original"`
	DOINormalized     string `json:"doi_normalized" yaml:"doi_normalized"`
	PMID              string `json:"pmid" yaml:"pmid"`
	ArxivIDOriginal   string `json:"arxiv_id_original" yaml:"arxiv_id_original"`
	ArxivIDNormalized string `json:"arxiv_id_normalized" yaml:"arxiv_id_normalized"`
	S2ID              string `json:"s2_id" yaml:"s2_id"`
	Abstract          string `json:"abstract" yaml:"abstract"`
	Authors           string `json:"authors" yaml:"authors"`
	Year              string `json:"year" yaml:"year"`
	Venue             string `json:"venue" yaml:"venue"`
	Date              string `json:"date" yaml:"date"`
	URL               string `json:"url" yaml:"url"`
	ScopusID          string `json:"scopus_id,omitempty" yaml:"scopus_id,omitempty"`
	EPMCID            string `json:"epmc_id,omitempty" yaml:"epmc_id,omitempty"`
}

// DeduplicatedRecord is the single output record produced per cluster:
// the representative's core fields, the best abstract found anywhere in
// the cluster, and the union of sources and identifiers.
type DeduplicatedRecord struct {
	ClusterID       int      `json:"cluster_id"`
	Title           string   `json:"title"`
	TitleNormalized string   `json:"title_normalized"`
	DOI             string   `json:"doi"`
	PreprintDOI     string   `json:"preprint_doi,omitempty"`
	PMID            string   `json:"pmid"`
	ArxivID         string   `json:"arxiv_id"`
	Abstract        string   `json:"abstract"`
	AbstractSource  string   `json:"abstract_source,omitempty"`
	Authors         string   `json:"authors"`
	Year            string   `json:"year"`
	Venue           string   `json:"venue"`
	Date            string   `json:"date"`
	URL             string   `json:"url"`
	Sources         []Source `json:"sources"`
	NSources        int      `json:"n_sources"`
	AllDOIs         []string `json:"all_dois"`
	DuplicateCount  int      `json:"duplicate_count"`
}

// LogAction is the decision recorded for one input record.
type LogAction string

const (
	ActionNew   LogAction = "NEW"
	ActionMerge LogAction = "MERGE"
)

// LogEntry is one line of the dedup decision log. Exactly one entry is
// appended per input record, in processing order.
type LogEntry struct {
	Action           LogAction `json:"action"`
	Reason           string    `json:"reason"`
	ClusterID        int       `json:"cluster_id"`
	SourceDB         Source    `json:"source_db"`
	Title            string    `json:"title"`
	DOI              string    `json:"doi"`
	MatchedWithDB    Source    `json:"matched_with_db,omitempty"`
	MatchedWithTitle string    `json:"matched_with_title,omitempty"`
}

// PreprintLink annotates a cluster that contains both a preprint DOI and
// a published DOI for the same work. It is advisory audit metadata: the
// cluster was already merged by some exact key before this is computed.
type PreprintLink struct {
	ClusterID    int      `json:"cluster_id"`
	PublishedDOI string   `json:"published_doi"`
	PreprintDOIs []string `json:"preprint_dois"`
	Title        string   `json:"title"`
}

// DedupStats summarizes one dedup run.
type DedupStats struct {
	RecordsPerDatabase map[Source]int `json:"records_per_database"`
	TotalBeforeDedup   int            `json:"total_before_dedup"`
	TotalAfterDedup    int            `json:"total_after_dedup"`
	DuplicatesRemoved  int            `json:"duplicates_removed"`
	DuplicateRate      float64        `json:"duplicate_rate"`
	MergeReasons       map[string]int `json:"merge_reasons"`

	// SourceDistribution maps "records found by N databases" to a count.
	SourceDistribution map[int]int `json:"source_distribution"`

	// SourceOverlap counts, per unordered source pair "a|b", the clusters
	// containing records from both.
	SourceOverlap map[string]int `json:"source_overlap"`

	PreprintLinkCount int            `json:"preprint_to_published_links"`
	PreprintLinks     []PreprintLink `json:"preprint_links"`
}
