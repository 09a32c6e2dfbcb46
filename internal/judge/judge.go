// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// judgeSystemPrompt instructs the model to return a strict JSON verdict.
const judgeSystemPrompt = `You are a biomedical research assistant assessing whether collected evidence is sufficient to answer a research question.

Respond with a single JSON object and nothing else:
{
  "sufficient": true or false,
  "reasoning": "one or two sentences explaining the verdict",
  "key_findings": ["the most important findings supported by the evidence"],
  "drug_candidates": ["drug names the evidence suggests for repurposing, if any"]
}

Mark the evidence sufficient only when it covers the question from multiple independent sources. The iteration counter shows how much of the search budget remains; weigh remaining gaps against it.`

// maxEvidenceInPrompt bounds the digest so prompts stay within context
// limits.
const maxEvidenceInPrompt = 30

// LLMJudge assesses evidence sufficiency with a chat model. Quota
// exhaustion and persistent transient failures degrade to the
// deterministic quota assessment instead of failing the run.
type LLMJudge struct {
	client     *openai.Client
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewLLMJudge builds a judge from the model configuration. A nil logger
// disables logging.
func NewLLMJudge(cfg types.ModelConfig, logger *zap.Logger) *LLMJudge {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMJudge{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// backoffBase controls the base duration for exponential backoff between
// model call attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Assess asks the model whether the evidence answers the query. Transient
// failures are retried with exponential backoff; quota exhaustion, or
// running out of retries, returns the degraded assessment with a nil
// error so the caller can still terminate cleanly. Only fatal API errors
// surface as errors.
func (j *LLMJudge) Assess(ctx context.Context, query string, evidence []types.Evidence, iteration, maxIterations int) (types.JudgeAssessment, error) {
	prompt := buildJudgePrompt(query, evidence, iteration, maxIterations)

	var lastErr error
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return types.JudgeAssessment{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: j.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.1,
		})
		if err != nil {
			switch Classify(err) {
			case KindQuota:
				j.logger.Warn("model quota exhausted, degrading to fallback assessment",
					zap.String("model", j.model))
				return QuotaAssessment(evidence), nil
			case KindTransient:
				lastErr = err
				j.logger.Warn("transient judge failure, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				continue
			default:
				return types.JudgeAssessment{}, fmt.Errorf("judging evidence: %w", err)
			}
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}
		assessment, err := parseAssessment(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			j.logger.Warn("unparseable judge response, retrying", zap.Error(err))
			continue
		}
		return assessment, nil
	}

	j.logger.Warn("judge retries exhausted, degrading to fallback assessment",
		zap.Error(lastErr))
	return QuotaAssessment(evidence), nil
}

// buildJudgePrompt renders the question, the loop position, and an
// evidence digest.
func buildJudgePrompt(query string, evidence []types.Evidence, iteration, maxIterations int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research question: %s\nIteration: %d/%d\n\nCollected evidence (%d items):\n",
		query, iteration, maxIterations, len(evidence))

	n := len(evidence)
	if n > maxEvidenceInPrompt {
		n = maxEvidenceInPrompt
	}
	for i := 0; i < n; i++ {
		ev := evidence[i]
		fmt.Fprintf(&b, "\n%d. [%s] %s\n   %s\n",
			i+1, ev.Citation.Source, ev.Citation.Title,
			types.Truncate(ev.Content, 300))
	}
	if len(evidence) > n {
		fmt.Fprintf(&b, "\n(%d additional items omitted)\n", len(evidence)-n)
	}
	return b.String()
}

// judgeResponse is the JSON verdict the model is instructed to return.
type judgeResponse struct {
	Sufficient     bool     `json:"sufficient"`
	Reasoning      string   `json:"reasoning"`
	KeyFindings    []string `json:"key_findings"`
	DrugCandidates []string `json:"drug_candidates"`
}

// parseAssessment extracts the JSON verdict, tolerating markdown fences
// around it.
func parseAssessment(content string) (types.JudgeAssessment, error) {
	raw := stripFences(content)

	var jr judgeResponse
	if err := json.Unmarshal([]byte(raw), &jr); err != nil {
		return types.JudgeAssessment{}, fmt.Errorf("parsing judge response: %w", err)
	}
	if jr.Reasoning == "" {
		return types.JudgeAssessment{}, fmt.Errorf("judge response missing reasoning")
	}
	return types.JudgeAssessment{
		Sufficient: jr.Sufficient,
		Reasoning:  jr.Reasoning,
		Details: types.AssessmentDetails{
			KeyFindings:    jr.KeyFindings,
			DrugCandidates: jr.DrugCandidates,
		},
	}, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
