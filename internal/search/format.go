// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// FormatTable writes a search result as a human-readable table to w.
func FormatTable(result types.SearchResult, w io.Writer) {
	if len(result.Evidence) == 0 {
		fmt.Fprintln(w, "No evidence found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Date", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 116))

	for i, ev := range result.Evidence {
		title := ev.Citation.Title
		if len(title) > 60 {
			title = types.Truncate(title, 57) + "..."
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s  %-6.2f  %s\n",
			i+1, title, formatAuthors(ev.Citation.Authors), ev.Citation.Date,
			ev.Relevance, ev.Citation.Source)
	}

	fmt.Fprintf(w, "\n%d evidence items from %s\n",
		len(result.Evidence), strings.Join(result.SourcesSearched, ", "))

	for _, e := range result.Errors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes a search result as indented JSON to w.
func FormatJSON(result types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}
