// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strings"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// Canonical identifier patterns. A PMID is only recognized in URL or
// labelled form; bare digit runs in content are too ambiguous.
var (
	pmidURLRe   = regexp.MustCompile(`pubmed\.ncbi\.nlm\.nih\.gov/(\d{1,9})`)
	pmidLabelRe = regexp.MustCompile(`(?i)\bPMID:?\s*(\d{1,9})\b`)
	doiRe       = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)
	nctRe       = regexp.MustCompile(`(?i)\bNCT\d{8}\b`)
)

// sourcePriority ranks sources for the duplicate tie-break. Lower wins:
// peer-reviewed and registry sources outrank preprints, preprints outrank
// general web results, and index-retrieved copies rank last.
var sourcePriority = map[types.SourceName]int{
	types.SourcePubMed:         0,
	types.SourceClinicalTrials: 1,
	types.SourceEuropePMC:      2,
	types.SourceBioRxiv:        3,
	types.SourceWeb:            4,
	types.SourceRAG:            5,
}

// ExtractPaperID derives a canonical identifier from an Evidence item so
// the same underlying work is recognized across sources. It returns
// "PMID:<id>", "DOI:<id>" (lowercased, DOIs are case-insensitive), or
// "NCT:<id>", checking the citation URL before the content. An empty
// string means no recognizable identifier: such items are treated as
// unique, since falsely merging unrelated web results is worse than a
// harmless duplicate.
func ExtractPaperID(ev types.Evidence) string {
	for _, text := range []string{ev.Citation.URL, ev.Content} {
		if m := pmidURLRe.FindStringSubmatch(text); m != nil {
			return "PMID:" + m[1]
		}
		if m := pmidLabelRe.FindStringSubmatch(text); m != nil {
			return "PMID:" + m[1]
		}
	}
	for _, text := range []string{ev.Citation.URL, ev.Content} {
		if m := doiRe.FindString(text); m != "" {
			return "DOI:" + strings.ToLower(strings.TrimRight(m, "."))
		}
	}
	for _, text := range []string{ev.Citation.URL, ev.Content} {
		if m := nctRe.FindString(text); m != "" {
			return "NCT:" + strings.ToUpper(m)[3:]
		}
	}
	return ""
}

// Deduplicate collapses evidence items that share an extracted identifier.
// When two items collide, the one from the higher-priority source is kept;
// on equal priority the first-seen wins. Items without an identifier are
// never merged. The relative order of surviving items is preserved, so the
// operation is idempotent.
func Deduplicate(items []types.Evidence) []types.Evidence {
	seen := make(map[string]int) // paper ID -> index in out
	out := make([]types.Evidence, 0, len(items))

	for _, ev := range items {
		id := ExtractPaperID(ev)
		if id == "" {
			out = append(out, ev)
			continue
		}
		idx, dup := seen[id]
		if !dup {
			seen[id] = len(out)
			out = append(out, ev)
			continue
		}
		if priorityOf(ev.Citation.Source) < priorityOf(out[idx].Citation.Source) {
			out[idx] = ev
		}
	}
	return out
}

// priorityOf returns the tie-break rank for a source. Unknown sources rank
// after every known one.
func priorityOf(s types.SourceName) int {
	if p, ok := sourcePriority[s]; ok {
		return p
	}
	return len(sourcePriority)
}
