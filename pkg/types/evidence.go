// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the biomed-agent research loop.
package types

import "unicode/utf8"

// SourceName identifies the origin of a piece of evidence.
type SourceName string

const (
	SourcePubMed         SourceName = "pubmed"
	SourceClinicalTrials SourceName = "clinicaltrials"
	SourceEuropePMC      SourceName = "europepmc"
	SourceBioRxiv        SourceName = "biorxiv"
	SourceWeb            SourceName = "web"
	SourceRAG            SourceName = "rag"
)

const (
	// MaxTitleLen bounds citation titles.
	MaxTitleLen = 500

	// MaxContentLen bounds evidence snippets.
	MaxContentLen = 2000
)

// Citation is the bibliographic metadata for one Evidence item. Fields are
// set once by the search tool that produced the item and never mutated.
type Citation struct {
	// Source identifies which tool found this item.
	Source SourceName `json:"source" yaml:"source"`

	// Title is the paper/trial/page title, truncated to MaxTitleLen.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical link and doubles as a natural identifier.
	URL string `json:"url" yaml:"url"`

	// Date is a free-form date string as returned by the source. It is
	// not guaranteed to parse; sources disagree on formats.
	Date string `json:"date" yaml:"date"`

	// Authors lists authors in source order. May be empty.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// Evidence is a single retrieved snippet of literature or trial data plus
// its citation. Created by a search tool from a raw API response and never
// mutated afterwards.
type Evidence struct {
	// Content is the text snippet, truncated to MaxContentLen.
	Content string `json:"content" yaml:"content"`

	// Citation describes where the content came from.
	Citation Citation `json:"citation" yaml:"citation"`

	// Relevance is a score in [0,1]. The default depends on the source.
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

// NewEvidence builds an Evidence item, applying the content and title
// length bounds so callers cannot accidentally exceed them.
func NewEvidence(content string, citation Citation, relevance float64) Evidence {
	citation.Title = Truncate(citation.Title, MaxTitleLen)
	return Evidence{
		Content:   Truncate(content, MaxContentLen),
		Citation:  citation,
		Relevance: relevance,
	}
}

// Truncate trims s to at most max bytes without splitting a multibyte
// rune: the cut backs up to the nearest rune boundary. Short strings pass
// through.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// SearchResult is the aggregate returned by one scatter-gather invocation.
type SearchResult struct {
	// Query is the query that was fanned out.
	Query string `json:"query" yaml:"query"`

	// Evidence holds the deduplicated evidence from all successful tools.
	Evidence []Evidence `json:"evidence" yaml:"evidence"`

	// SourcesSearched lists the tools that returned without error or
	// timeout. Failed tools appear in Errors instead.
	SourcesSearched []string `json:"sources_searched" yaml:"sources_searched"`

	// TotalFound equals len(Evidence).
	TotalFound int `json:"total_found" yaml:"total_found"`

	// Errors holds one entry per failed tool, prefixed with the tool name.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}
