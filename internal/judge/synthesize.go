// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// minViableReport is the shortest model output accepted as a synthesis.
// Anything shorter is an apology or a refusal, not a report.
const minViableReport = 50

const synthesisSystemPrompt = `You are a biomedical research assistant. Write a structured research report answering the question from the evidence provided.

Structure the report as:
1. Summary of findings
2. Evidence by theme, citing item numbers like [3]
3. Drug repurposing candidates, if the evidence supports any
4. Limitations of the evidence

Use only the evidence provided. Do not invent citations.`

// Synthesizer produces the final report by trying an ordered chain of
// models until one returns a viable response.
type Synthesizer struct {
	client *openai.Client
	// models is the primary model followed by its fallbacks, in order.
	models []string
	logger *zap.Logger
}

// NewSynthesizer builds a synthesizer from the model configuration. The
// chain is the primary model followed by cfg.FallbackModels.
func NewSynthesizer(cfg types.ModelConfig, logger *zap.Logger) *Synthesizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	models := append([]string{cfg.Model}, cfg.FallbackModels...)
	return &Synthesizer{
		client: openai.NewClientWithConfig(clientCfg),
		models: models,
		logger: logger,
	}
}

// Models returns the chain in attempt order.
func (s *Synthesizer) Models() []string {
	return append([]string(nil), s.models...)
}

// Synthesize tries each model in the chain once. A model fails the
// attempt on API error or when its output is below the viability
// threshold. When every model fails the returned error is a
// *types.SynthesisError recording one entry per attempted model.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, evidence []types.Evidence, assessment types.JudgeAssessment) (string, error) {
	prompt := buildSynthesisPrompt(query, evidence, assessment)

	synthErr := &types.SynthesisError{}
	for _, model := range s.models {
		report, err := s.tryModel(ctx, model, prompt)
		synthErr.AttemptedModels = append(synthErr.AttemptedModels, model)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			synthErr.Errors = append(synthErr.Errors, err.Error())
			s.logger.Warn("synthesis model failed",
				zap.String("model", model),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("synthesis complete",
			zap.String("model", model),
			zap.Int("length", len(report)),
		)
		return report, nil
	}
	return "", synthErr
}

func (s *Synthesizer) tryModel(ctx context.Context, model, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	report := strings.TrimSpace(resp.Choices[0].Message.Content)
	if len(report) < minViableReport {
		return "", fmt.Errorf("response too short (%d chars)", len(report))
	}
	return report, nil
}

// buildSynthesisPrompt renders the question, the judge's findings, and a
// numbered evidence list for citation.
func buildSynthesisPrompt(query string, evidence []types.Evidence, assessment types.JudgeAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research question: %s\n", query)

	if len(assessment.Details.KeyFindings) > 0 {
		b.WriteString("\nKey findings identified so far:\n")
		for _, f := range assessment.Details.KeyFindings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	fmt.Fprintf(&b, "\nEvidence (%d items):\n", len(evidence))
	n := len(evidence)
	if n > maxEvidenceInPrompt {
		n = maxEvidenceInPrompt
	}
	for i := 0; i < n; i++ {
		ev := evidence[i]
		fmt.Fprintf(&b, "\n[%d] %s (%s, %s)\n%s\n",
			i+1, ev.Citation.Title, ev.Citation.Source, ev.Citation.Date,
			types.Truncate(ev.Content, 500))
	}
	if len(evidence) > n {
		fmt.Fprintf(&b, "\n(%d additional items omitted)\n", len(evidence)-n)
	}
	return b.String()
}
