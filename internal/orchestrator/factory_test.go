// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"errors"
	"testing"

	"github.com/pdiddy/biomed-agent/internal/judge"
	"github.com/pdiddy/biomed-agent/internal/rag"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

func testAppConfig() types.AppConfig {
	return types.AppConfig{
		Search: types.SearchConfig{
			EnablePubMed:         true,
			EnableClinicalTrials: true,
			EnableEuropePMC:      true,
			MaxResultsPerTool:    5,
		},
		Orchestrator: types.OrchestratorConfig{
			MaxIterations: 3,
			AutoIngest:    true,
		},
	}
}

func TestBuildSearchHandlerTools(t *testing.T) {
	h, err := BuildSearchHandler(testAppConfig(), nil, nil)
	if err != nil {
		t.Fatalf("BuildSearchHandler: %v", err)
	}
	got := h.Tools()
	want := []string{"pubmed", "clinicaltrials", "europepmc"}
	if len(got) != len(want) {
		t.Fatalf("Tools() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tools()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildSearchHandlerIncludesIndexTool(t *testing.T) {
	store, err := rag.NewStore(types.IndexConfig{IndexDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	h, err := BuildSearchHandler(testAppConfig(), store, nil)
	if err != nil {
		t.Fatalf("BuildSearchHandler: %v", err)
	}
	tools := h.Tools()
	if tools[len(tools)-1] != "rag" {
		t.Errorf("Tools() = %v, want rag last", tools)
	}
}

func TestBuildSearchHandlerNoToolsEnabled(t *testing.T) {
	cfg := testAppConfig()
	cfg.Search = types.SearchConfig{}

	_, err := BuildSearchHandler(cfg, nil, nil)
	var confErr *types.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("err = %v, want *types.ConfigurationError", err)
	}
	if confErr.Component != "search" {
		t.Errorf("Component = %q, want search", confErr.Component)
	}
}

func TestBuildAutoModeWithoutKeySelectsHeuristic(t *testing.T) {
	cfg := testAppConfig()
	cfg.Orchestrator.Mode = types.ModeAuto

	o, err := Build(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := o.judge.(*judge.HeuristicJudge); !ok {
		t.Errorf("judge = %T, want *judge.HeuristicJudge", o.judge)
	}
	if o.synth != nil {
		t.Error("heuristic mode must not wire a synthesizer")
	}
}

func TestBuildAutoModeWithKeySelectsLLM(t *testing.T) {
	cfg := testAppConfig()
	cfg.Model = types.ModelConfig{Model: "gpt-4o-mini", APIKey: "k"}

	o, err := Build(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := o.judge.(*judge.LLMJudge); !ok {
		t.Errorf("judge = %T, want *judge.LLMJudge", o.judge)
	}
	if o.synth == nil {
		t.Error("llm mode must wire a synthesizer")
	}
}

func TestBuildLLMModeWithoutKeyFails(t *testing.T) {
	cfg := testAppConfig()
	cfg.Orchestrator.Mode = types.ModeLLM

	_, err := Build(cfg, nil, nil)
	var confErr *types.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("err = %v, want *types.ConfigurationError", err)
	}
	if confErr.Component != "model" {
		t.Errorf("Component = %q, want model", confErr.Component)
	}
}

func TestBuildUnknownModeFails(t *testing.T) {
	cfg := testAppConfig()
	cfg.Orchestrator.Mode = "quantum"

	_, err := Build(cfg, nil, nil)
	var confErr *types.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("err = %v, want *types.ConfigurationError", err)
	}
}
