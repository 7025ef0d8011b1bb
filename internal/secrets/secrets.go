// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, scopus-api-key, semantic-scholar-api-key,
// springer-api-key, contact-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Key file names recognized by Apply.
const (
	KeyNCBI            = "ncbi-api-key"
	KeyScopus          = "scopus-api-key"
	KeySemanticScholar = "semantic-scholar-api-key"
	KeySpringer        = "springer-api-key"
	KeyContactEmail    = "contact-email"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies loaded secrets into the pipeline config. Values already
// present in the config (from the config file or environment) win over
// the secrets directory.
func Apply(secrets map[string]string, cfg *types.PipelineConfig) {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	setIfEmpty(&cfg.Harvest.NCBIAPIKey, KeyNCBI)
	setIfEmpty(&cfg.Harvest.ScopusAPIKey, KeyScopus)
	setIfEmpty(&cfg.Harvest.SemanticScholarAPIKey, KeySemanticScholar)
	setIfEmpty(&cfg.Harvest.SpringerAPIKey, KeySpringer)
	setIfEmpty(&cfg.Harvest.ContactEmail, KeyContactEmail)
	setIfEmpty(&cfg.Enrich.NCBIAPIKey, KeyNCBI)
	setIfEmpty(&cfg.Enrich.SemanticScholarAPIKey, KeySemanticScholar)
	setIfEmpty(&cfg.Enrich.ContactEmail, KeyContactEmail)
}
