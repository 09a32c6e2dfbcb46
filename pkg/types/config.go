// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "biomed-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search fan-out.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ToolTimeout bounds each tool's search call independently
	// (default 30s). A tool exceeding it is treated as failed for that
	// call only.
	ToolTimeout time.Duration `json:"tool_timeout" yaml:"tool_timeout"`

	// MaxResultsPerTool is the per-tool result cap (default 10).
	MaxResultsPerTool int `json:"max_results_per_tool" yaml:"max_results_per_tool"`

	// EnablePubMed controls the PubMed tool.
	EnablePubMed bool `json:"enable_pubmed" yaml:"enable_pubmed"`

	// EnableClinicalTrials controls the ClinicalTrials.gov tool.
	EnableClinicalTrials bool `json:"enable_clinicaltrials" yaml:"enable_clinicaltrials"`

	// EnableEuropePMC controls the Europe PMC tool.
	EnableEuropePMC bool `json:"enable_europepmc" yaml:"enable_europepmc"`

	// EnableBioRxiv controls the bioRxiv/medRxiv tool.
	EnableBioRxiv bool `json:"enable_biorxiv" yaml:"enable_biorxiv"`

	// EnableWeb controls the general web search tool.
	EnableWeb bool `json:"enable_web" yaml:"enable_web"`

	// NCBIAPIKey is an optional E-utilities key for higher rate limits.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// PreprintServer selects "biorxiv" or "medrxiv" (default medrxiv).
	PreprintServer string `json:"preprint_server" yaml:"preprint_server"`

	// PreprintWindowDays is how far back the preprint tool fetches
	// (default 90).
	PreprintWindowDays int `json:"preprint_window_days" yaml:"preprint_window_days"`
}

// ModelConfig holds shared settings for components that call a chat
// completion API.
type ModelConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible routers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for transient failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// FallbackModels is the ordered list of models the synthesis chain
	// tries when Model is empty.
	FallbackModels []string `json:"fallback_models,omitempty" yaml:"fallback_models,omitempty"`
}

// OrchestratorMode selects which judge stack the factory wires in.
type OrchestratorMode string

const (
	// ModeAuto picks the richest mode the available credentials allow.
	ModeAuto OrchestratorMode = "auto"

	// ModeLLM uses the chat-completion judge and synthesis chain.
	ModeLLM OrchestratorMode = "llm"

	// ModeHeuristic runs without any model access.
	ModeHeuristic OrchestratorMode = "heuristic"
)

// OrchestratorConfig holds settings for the convergence loop.
type OrchestratorConfig struct {
	// MaxIterations is the hard cap on search-judge cycles (default 10).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// RunTimeout bounds one run's total wall-clock time. Zero disables it.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`

	// AutoIngest enables ingestion of search results into the evidence
	// index (default on).
	AutoIngest bool `json:"auto_ingest" yaml:"auto_ingest"`

	// Mode selects the judge stack.
	Mode OrchestratorMode `json:"mode" yaml:"mode"`
}

// IndexConfig holds settings for the local evidence index.
type IndexConfig struct {
	// IndexDir is the directory holding the SQLite database.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default query result cap (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// AppConfig groups all component configurations.
type AppConfig struct {
	Search       SearchConfig       `json:"search" yaml:"search"`
	Model        ModelConfig        `json:"model" yaml:"model"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	Index        IndexConfig        `json:"index" yaml:"index"`
}
