// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the biomed-agent CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/biomed-agent/internal/secrets"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the biomed-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "biomed-agent",
	Short: "Iterative biomedical literature research assistant",
	Long: `biomed-agent answers biomedical research questions by searching literature
databases (PubMed, ClinicalTrials.gov, Europe PMC, bioRxiv/medRxiv) in
parallel, judging whether the collected evidence suffices, and iterating
until it does. Collected evidence is indexed locally for reuse.

Use research for the full iterative loop, search for a one-shot fan-out,
and evidence to inspect the local index.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./biomed-agent.yaml or ~/.config/biomed-agent/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("biomed-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "biomed-agent"))
		}
	}

	viper.SetEnvPrefix("BIOMED_AGENT")
	viper.AutomaticEnv()

	viper.SetDefault("search.timeout", 20*time.Second)
	viper.SetDefault("search.user_agent", "biomed-agent/"+version)
	viper.SetDefault("search.tool_timeout", 30*time.Second)
	viper.SetDefault("search.max_results_per_tool", 10)
	viper.SetDefault("search.enable_pubmed", true)
	viper.SetDefault("search.enable_clinicaltrials", true)
	viper.SetDefault("search.enable_europepmc", true)
	viper.SetDefault("search.enable_biorxiv", true)
	viper.SetDefault("search.enable_web", true)
	viper.SetDefault("search.preprint_server", "medrxiv")
	viper.SetDefault("search.preprint_window_days", 90)
	viper.SetDefault("model.model", "gpt-4o-mini")
	viper.SetDefault("model.max_retries", 3)
	viper.SetDefault("model.fallback_models", []string{})
	viper.SetDefault("orchestrator.max_iterations", 10)
	viper.SetDefault("orchestrator.auto_ingest", true)
	viper.SetDefault("orchestrator.mode", "auto")
	viper.SetDefault("index.index_dir", "index")
	viper.SetDefault("index.max_results", 5)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// appConfig assembles the full configuration from viper, with API keys
// falling back to loaded secrets.
func appConfig() types.AppConfig {
	return types.AppConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: viper.GetString("search.user_agent"),
			},
			ToolTimeout:          viper.GetDuration("search.tool_timeout"),
			MaxResultsPerTool:    viper.GetInt("search.max_results_per_tool"),
			EnablePubMed:         viper.GetBool("search.enable_pubmed"),
			EnableClinicalTrials: viper.GetBool("search.enable_clinicaltrials"),
			EnableEuropePMC:      viper.GetBool("search.enable_europepmc"),
			EnableBioRxiv:        viper.GetBool("search.enable_biorxiv"),
			EnableWeb:            viper.GetBool("search.enable_web"),
			NCBIAPIKey:           secretDefault("ncbi-api-key", viper.GetString("search.ncbi_api_key")),
			PreprintServer:       viper.GetString("search.preprint_server"),
			PreprintWindowDays:   viper.GetInt("search.preprint_window_days"),
		},
		Model: types.ModelConfig{
			Model:          viper.GetString("model.model"),
			APIKey:         secretDefault("openai-api-key", viper.GetString("model.api_key")),
			BaseURL:        viper.GetString("model.base_url"),
			MaxRetries:     viper.GetInt("model.max_retries"),
			FallbackModels: viper.GetStringSlice("model.fallback_models"),
		},
		Orchestrator: types.OrchestratorConfig{
			MaxIterations: viper.GetInt("orchestrator.max_iterations"),
			RunTimeout:    viper.GetDuration("orchestrator.run_timeout"),
			AutoIngest:    viper.GetBool("orchestrator.auto_ingest"),
			Mode:          types.OrchestratorMode(viper.GetString("orchestrator.mode")),
		},
		Index: types.IndexConfig{
			IndexDir:   viper.GetString("index.index_dir"),
			MaxResults: viper.GetInt("index.max_results"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
