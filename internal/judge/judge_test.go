// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	old := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = old })
}

func testEvidence() []types.Evidence {
	return []types.Evidence{
		{
			Content:   "Sildenafil improves exercise capacity.",
			Citation:  types.Citation{Source: types.SourcePubMed, Title: "Sildenafil in PAH"},
			Relevance: 0.9,
		},
		{
			Content:   "[COMPLETED] Trial NCT00000001.",
			Citation:  types.Citation{Source: types.SourceClinicalTrials, Title: "Sildenafil trial"},
			Relevance: 0.8,
		},
	}
}

// chatHandler answers the chat completions endpoint with a fixed content
// string.
func chatCompletion(content string) string {
	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func apiError(status int, code, message string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":%q,"type":"api_error","code":%q}}`, message, code)
	}
}

func newTestJudge(t *testing.T, handler http.HandlerFunc) *LLMJudge {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewLLMJudge(types.ModelConfig{
		Model:      "test-model",
		APIKey:     "test-key",
		BaseURL:    ts.URL + "/v1",
		MaxRetries: 2,
	}, nil)
}

func TestLLMJudgeParsesVerdict(t *testing.T) {
	fastBackoff(t)

	verdict := `{"sufficient": true, "reasoning": "multiple independent sources", "key_findings": ["finding one"], "drug_candidates": ["sildenafil"]}`
	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(verdict))
	})

	assessment, err := j.Assess(context.Background(), "sildenafil repurposing", testEvidence(), 1, 10)
	require.NoError(t, err)

	assert.True(t, assessment.Sufficient)
	assert.Equal(t, "multiple independent sources", assessment.Reasoning)
	assert.Equal(t, []string{"finding one"}, assessment.Details.KeyFindings)
	assert.Equal(t, []string{"sildenafil"}, assessment.Details.DrugCandidates)
	assert.False(t, assessment.FallbackAssessment())
}

func TestLLMJudgeParsesFencedVerdict(t *testing.T) {
	fastBackoff(t)

	fenced := "```json\n{\"sufficient\": false, \"reasoning\": \"only one source\"}\n```"
	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(fenced))
	})

	assessment, err := j.Assess(context.Background(), "q", testEvidence(), 1, 10)
	require.NoError(t, err)
	assert.False(t, assessment.Sufficient)
	assert.Equal(t, "only one source", assessment.Reasoning)
}

func TestLLMJudgeQuotaFallback(t *testing.T) {
	fastBackoff(t)

	var calls atomic.Int32
	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		apiError(http.StatusPaymentRequired, "insufficient_quota", "quota exceeded")(w)
	})

	evidence := testEvidence()
	first, err := j.Assess(context.Background(), "q", evidence, 1, 10)
	require.NoError(t, err, "quota exhaustion must degrade, not fail")

	assert.True(t, first.Sufficient, "degraded assessment must terminate the loop")
	assert.Contains(t, first.Reasoning, "model quota exhausted")
	assert.Equal(t, []string{"Sildenafil in PAH", "Sildenafil trial"}, first.Details.KeyFindings)
	assert.Equal(t, []string{types.DrugExtractionUnavailable}, first.Details.DrugCandidates)
	assert.True(t, first.FallbackAssessment())
	assert.Equal(t, int32(1), calls.Load(), "quota errors must not be retried")

	// Degradation is deterministic for identical evidence.
	second, err := j.Assess(context.Background(), "q", evidence, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLLMJudgeRetriesTransientThenSucceeds(t *testing.T) {
	fastBackoff(t)

	verdict := `{"sufficient": true, "reasoning": "ok"}`
	var calls atomic.Int32
	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			apiError(http.StatusInternalServerError, "server_error", "boom")(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(verdict))
	})

	assessment, err := j.Assess(context.Background(), "q", testEvidence(), 1, 10)
	require.NoError(t, err)
	assert.True(t, assessment.Sufficient)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLLMJudgeRetriesExhaustedDegrades(t *testing.T) {
	fastBackoff(t)

	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		apiError(http.StatusServiceUnavailable, "server_error", "down")(w)
	})

	assessment, err := j.Assess(context.Background(), "q", testEvidence(), 1, 10)
	require.NoError(t, err, "persistent transient failure must degrade, not fail")
	assert.True(t, assessment.FallbackAssessment())
}

func TestLLMJudgeFatalErrorSurfaces(t *testing.T) {
	fastBackoff(t)

	j := newTestJudge(t, func(w http.ResponseWriter, _ *http.Request) {
		apiError(http.StatusUnauthorized, "invalid_api_key", "bad key")(w)
	})

	_, err := j.Assess(context.Background(), "q", testEvidence(), 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judging evidence")
}

func TestBuildJudgePromptBoundsEvidence(t *testing.T) {
	evidence := make([]types.Evidence, 50)
	for i := range evidence {
		evidence[i] = types.Evidence{
			Content:  fmt.Sprintf("item %d", i),
			Citation: types.Citation{Source: types.SourceWeb, Title: fmt.Sprintf("title %d", i)},
		}
	}

	prompt := buildJudgePrompt("q", evidence, 1, 10)
	assert.Contains(t, prompt, "title 29")
	assert.NotContains(t, prompt, "title 30")
	assert.Contains(t, prompt, "20 additional items omitted")
}

func TestBuildJudgePromptIncludesIteration(t *testing.T) {
	prompt := buildJudgePrompt("q", testEvidence(), 9, 10)
	assert.Contains(t, prompt, "Iteration: 9/10")
}

func TestLLMJudgeSendsIterationCounter(t *testing.T) {
	fastBackoff(t)

	verdict := `{"sufficient": true, "reasoning": "ok"}`
	var userPrompt atomic.Value
	j := newTestJudge(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, m := range req.Messages {
			if m.Role == "user" {
				userPrompt.Store(m.Content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatCompletion(verdict))
	})

	_, err := j.Assess(context.Background(), "q", testEvidence(), 2, 5)
	require.NoError(t, err)

	sent, _ := userPrompt.Load().(string)
	assert.Contains(t, sent, "Iteration: 2/5",
		"the model must see where the loop stands")
}

// --- fallback helpers ---

func TestExtractFindings(t *testing.T) {
	evidence := []types.Evidence{
		{Citation: types.Citation{Title: "A"}},
		{Citation: types.Citation{Title: "B"}},
		{Citation: types.Citation{Title: "A"}},
		{Citation: types.Citation{Title: ""}},
	}
	assert.Equal(t, []string{"A", "B"}, ExtractFindings(evidence))
}

func TestHeuristicJudge(t *testing.T) {
	j := &HeuristicJudge{MinEvidence: 3, MinSources: 2}

	few, err := j.Assess(context.Background(), "q", testEvidence(), 1, 10)
	require.NoError(t, err)
	assert.False(t, few.Sufficient)
	assert.True(t, few.FallbackAssessment())

	many := append(testEvidence(), types.Evidence{
		Citation: types.Citation{Source: types.SourceEuropePMC, Title: "third"},
	})
	enough, err := j.Assess(context.Background(), "q", many, 2, 10)
	require.NoError(t, err)
	assert.True(t, enough.Sufficient)
	assert.Contains(t, enough.Reasoning, "heuristic assessment")
}

func TestHeuristicJudgeSingleSourceInsufficient(t *testing.T) {
	j := &HeuristicJudge{MinEvidence: 2, MinSources: 2}
	evidence := []types.Evidence{
		{Citation: types.Citation{Source: types.SourceWeb, Title: "a"}},
		{Citation: types.Citation{Source: types.SourceWeb, Title: "b"}},
		{Citation: types.Citation{Source: types.SourceWeb, Title: "c"}},
	}
	got, err := j.Assess(context.Background(), "q", evidence, 1, 10)
	require.NoError(t, err)
	assert.False(t, got.Sufficient, "one source is never enough")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestParseAssessmentRejectsGarbage(t *testing.T) {
	_, err := parseAssessment("I think the evidence looks fine.")
	assert.Error(t, err)

	_, err = parseAssessment(`{"sufficient": true}`)
	assert.Error(t, err, "missing reasoning must be rejected")
}
