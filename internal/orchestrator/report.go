// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// FallbackReport renders a deterministic report from the pooled evidence.
// It is used when no model is available for synthesis: same evidence and
// assessment always produce the same report.
func FallbackReport(query string, evidence []types.Evidence, assessment types.JudgeAssessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report: %s\n\n", query)
	fmt.Fprintf(&b, "Generated without model synthesis from %d evidence items.\n\n", len(evidence))

	if assessment.Reasoning != "" {
		fmt.Fprintf(&b, "## Assessment\n\n%s\n\n", assessment.Reasoning)
	}

	if findings := assessment.Details.KeyFindings; len(findings) > 0 {
		b.WriteString("## Key Findings\n\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if candidates := drugCandidates(assessment); len(candidates) > 0 {
		b.WriteString("## Drug Candidates\n\n")
		for _, c := range candidates {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Evidence\n\n")
	for i, ev := range evidence {
		fmt.Fprintf(&b, "%d. **%s** (%s", i+1, ev.Citation.Title, ev.Citation.Source)
		if ev.Citation.Date != "" {
			fmt.Fprintf(&b, ", %s", ev.Citation.Date)
		}
		b.WriteString(")\n")
		if len(ev.Citation.Authors) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(ev.Citation.Authors, "; "))
		}
		if ev.Citation.URL != "" {
			fmt.Fprintf(&b, "   %s\n", ev.Citation.URL)
		}
		fmt.Fprintf(&b, "   %s\n\n", types.Truncate(ev.Content, 400))
	}

	return b.String()
}

// drugCandidates filters out the extraction-unavailable sentinel, which is
// a signal to callers, not a finding to print.
func drugCandidates(assessment types.JudgeAssessment) []string {
	var out []string
	for _, c := range assessment.Details.DrugCandidates {
		if c != types.DrugExtractionUnavailable {
			out = append(out, c)
		}
	}
	return out
}
