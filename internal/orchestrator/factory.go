// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/internal/judge"
	"github.com/pdiddy/biomed-agent/internal/rag"
	"github.com/pdiddy/biomed-agent/internal/search"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

// BuildSearchHandler assembles the search fan-out from the configuration.
// The evidence store, when given, contributes both a retrieval tool and
// the ingestion sink. At least one tool must be enabled.
func BuildSearchHandler(cfg types.AppConfig, store *rag.Store, logger *zap.Logger) (*search.Handler, error) {
	client := &http.Client{Timeout: cfg.Search.Timeout}
	ua := cfg.Search.UserAgent

	var tools []search.Tool
	if cfg.Search.EnablePubMed {
		tools = append(tools, &search.PubMedTool{
			Client:    client,
			APIKey:    cfg.Search.NCBIAPIKey,
			UserAgent: ua,
		})
	}
	if cfg.Search.EnableClinicalTrials {
		tools = append(tools, &search.ClinicalTrialsTool{Client: client, UserAgent: ua})
	}
	if cfg.Search.EnableEuropePMC {
		tools = append(tools, &search.EuropePMCTool{Client: client, UserAgent: ua})
	}
	if cfg.Search.EnableBioRxiv {
		tools = append(tools, &search.BioRxivTool{
			Client:    client,
			UserAgent: ua,
			Server:    cfg.Search.PreprintServer,
			Days:      cfg.Search.PreprintWindowDays,
		})
	}
	if cfg.Search.EnableWeb {
		tools = append(tools, &search.WebSearchTool{Client: client, UserAgent: ua})
	}
	if store != nil {
		tools = append(tools, &rag.Tool{Store: store})
	}

	if len(tools) == 0 {
		return nil, &types.ConfigurationError{
			Component: "search",
			Reason:    "no search tools enabled",
		}
	}

	var sink search.Ingestor
	if store != nil && cfg.Orchestrator.AutoIngest {
		sink = store
	}

	return search.NewHandler(tools, cfg.Search.ToolTimeout, sink, logger), nil
}

// Build wires a complete orchestrator from the configuration. Mode auto
// selects the model-backed judge when an API key is present and the
// heuristic judge otherwise; mode llm without a key is a configuration
// error.
func Build(cfg types.AppConfig, store *rag.Store, logger *zap.Logger) (*Orchestrator, error) {
	handler, err := BuildSearchHandler(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	mode := cfg.Orchestrator.Mode
	if mode == "" || mode == types.ModeAuto {
		if cfg.Model.APIKey != "" {
			mode = types.ModeLLM
		} else {
			mode = types.ModeHeuristic
		}
	}

	var (
		j Judge
		s Synthesizer
	)
	switch mode {
	case types.ModeLLM:
		if cfg.Model.APIKey == "" {
			return nil, &types.ConfigurationError{
				Component: "model",
				Reason:    "llm mode requires an API key",
			}
		}
		if cfg.Model.Model == "" {
			return nil, &types.ConfigurationError{
				Component: "model",
				Reason:    "llm mode requires a model name",
			}
		}
		j = judge.NewLLMJudge(cfg.Model, logger)
		s = judge.NewSynthesizer(cfg.Model, logger)
	case types.ModeHeuristic:
		j = &judge.HeuristicJudge{}
	default:
		return nil, &types.ConfigurationError{
			Component: "orchestrator",
			Reason:    "unknown mode " + string(mode),
		}
	}

	return New(handler, j, s, cfg.Orchestrator, cfg.Search.MaxResultsPerTool, logger), nil
}
