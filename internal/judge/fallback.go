// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// ExtractFindings lists the evidence titles, deduplicated and in order.
// It is the degraded stand-in for model-extracted key findings: titles are
// the one summary every source reliably provides.
func ExtractFindings(evidence []types.Evidence) []string {
	seen := make(map[string]bool)
	var findings []string
	for _, ev := range evidence {
		title := ev.Citation.Title
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		findings = append(findings, title)
	}
	return findings
}

// QuotaAssessment is the deterministic assessment used when model quota is
// exhausted. It always terminates the search loop: without a judge there is
// no basis for requesting more iterations, and the evidence gathered so far
// is better surfaced than discarded.
func QuotaAssessment(evidence []types.Evidence) types.JudgeAssessment {
	return types.JudgeAssessment{
		Sufficient: true,
		Reasoning: fmt.Sprintf(
			"model quota exhausted; returning the %d collected evidence items without further analysis",
			len(evidence)),
		Details: types.AssessmentDetails{
			KeyFindings:    ExtractFindings(evidence),
			DrugCandidates: []string{types.DrugExtractionUnavailable},
		},
	}
}

// HeuristicJudge assesses sufficiency without a model, for keyless
// deployments. Evidence is sufficient once enough items from enough
// distinct sources have accumulated.
type HeuristicJudge struct {
	// MinEvidence is the item threshold; zero selects 8.
	MinEvidence int
	// MinSources is the distinct-source threshold; zero selects 2.
	MinSources int
}

// Assess applies the thresholds. Drug candidates are never available on
// this path.
func (j *HeuristicJudge) Assess(_ context.Context, _ string, evidence []types.Evidence, _, _ int) (types.JudgeAssessment, error) {
	minEvidence := j.MinEvidence
	if minEvidence <= 0 {
		minEvidence = 8
	}
	minSources := j.MinSources
	if minSources <= 0 {
		minSources = 2
	}

	sources := make(map[types.SourceName]bool)
	for _, ev := range evidence {
		sources[ev.Citation.Source] = true
	}

	sufficient := len(evidence) >= minEvidence && len(sources) >= minSources
	reasoning := fmt.Sprintf(
		"heuristic assessment: %d evidence items from %d sources (need %d from %d)",
		len(evidence), len(sources), minEvidence, minSources)

	return types.JudgeAssessment{
		Sufficient: sufficient,
		Reasoning:  reasoning,
		Details: types.AssessmentDetails{
			KeyFindings:    ExtractFindings(evidence),
			DrugCandidates: []string{types.DrugExtractionUnavailable},
		},
	}, nil
}
