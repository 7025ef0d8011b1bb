// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts raw identifier and title strings into
// canonical comparison keys for exact-match deduplication.
//
// Every function is pure and total: malformed or missing input yields
// the empty string, never an error. The empty string is a sentinel that
// must never be used as a match key.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// doiURLPrefixes are the URL forms a DOI commonly arrives wrapped in.
// Matched case-insensitively; only the first matching prefix is stripped.
var doiURLPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// preprintDOIPrefixes identify preprint servers by DOI prefix:
// bioRxiv/medRxiv and arXiv-assigned DOIs.
var preprintDOIPrefixes = []string{
	"10.1101/",
	"10.48550/arxiv",
}

var (
	arxivVersionRe = regexp.MustCompile(`v\d+$`)
	markupRe       = regexp.MustCompile(`<[^>]+>`)
)

// DOI returns the canonical lowercase form of a DOI without any URL
// prefix. It does not validate DOI syntax.
func DOI(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range doiURLPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(strings.ToLower(s))
}

// ArxivID returns the lowercase arXiv ID with any trailing version
// suffix ("v1", "v2", ...) removed.
func ArxivID(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(s)
	return strings.ToLower(arxivVersionRe.ReplaceAllString(s, ""))
}

// Title returns a title key suitable for exact matching: NFC-normalized,
// lowercased, markup spans removed, punctuation dropped, whitespace runs
// collapsed to a single space. Two titles differing only in case,
// punctuation, markup or spacing normalize identically; titles differing
// by a single word do not.
func Title(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	// Some Semantic Scholar titles carry HTML-like tags.
	s = markupRe.ReplaceAllString(s, "")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsPreprintDOI reports whether the DOI belongs to a preprint server.
// The input is normalized first, so URL-wrapped and mixed-case DOIs
// classify correctly.
func IsPreprintDOI(doi string) bool {
	ndoi := DOI(doi)
	if ndoi == "" {
		return false
	}
	for _, prefix := range preprintDOIPrefixes {
		if strings.HasPrefix(ndoi, prefix) {
			return true
		}
	}
	return false
}
