// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DrugExtractionUnavailable is the sentinel placed in
// AssessmentDetails.DrugCandidates when the heuristic fallback produced the
// assessment. Callers use it to distinguish "no candidates found" from
// "extraction was not performed".
const DrugExtractionUnavailable = "drug extraction unavailable: model access required"

// AssessmentDetails carries the structured findings behind a verdict.
type AssessmentDetails struct {
	// KeyFindings summarizes the most relevant evidence. Populated by the
	// model, or from citation titles by the heuristic fallback.
	KeyFindings []string `json:"key_findings" yaml:"key_findings"`

	// DrugCandidates lists drug names the model identified. Contains only
	// DrugExtractionUnavailable when the fallback path produced it.
	DrugCandidates []string `json:"drug_candidates" yaml:"drug_candidates"`
}

// JudgeAssessment is the result of one sufficiency judgment.
type JudgeAssessment struct {
	// Sufficient reports whether the accumulated evidence answers the
	// question well enough to stop searching.
	Sufficient bool `json:"sufficient" yaml:"sufficient"`

	// Reasoning explains the verdict in prose.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Details holds the structured findings.
	Details AssessmentDetails `json:"details" yaml:"details"`
}

// FallbackAssessment reports whether the assessment came from the
// deterministic fallback extractor rather than a model call.
func (a JudgeAssessment) FallbackAssessment() bool {
	for _, c := range a.Details.DrugCandidates {
		if c == DrugExtractionUnavailable {
			return true
		}
	}
	return false
}
