// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/biomed-agent/internal/orchestrator"
	"github.com/pdiddy/biomed-agent/internal/rag"
	"github.com/pdiddy/biomed-agent/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one search fan-out across all enabled sources",
	Long: `Search queries every enabled source (PubMed, ClinicalTrials.gov,
Europe PMC, bioRxiv/medRxiv, web) in parallel, deduplicates results across
sources, and prints the merged evidence. Individual source failures are
reported as warnings without failing the search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noIndex, _ := cmd.Flags().GetBool("no-index")

	cfg := appConfig()
	if v, _ := cmd.Flags().GetInt("max-results"); v > 0 {
		cfg.Search.MaxResultsPerTool = v
	}

	var store *rag.Store
	if !noIndex {
		var err error
		store, err = rag.NewStore(cfg.Index)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	handler, err := orchestrator.BuildSearchHandler(cfg, store, buildLogger(cmd))
	if err != nil {
		return err
	}

	result := handler.Execute(context.Background(), query, cfg.Search.MaxResultsPerTool)

	if jsonOutput {
		return search.FormatJSON(result, os.Stdout)
	}
	search.FormatTable(result, os.Stdout)
	if len(result.Evidence) == 0 && len(result.Errors) == len(handler.Tools()) {
		return fmt.Errorf("all %d sources failed", len(result.Errors))
	}
	return nil
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum results per source (0 = config default)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("no-index", false, "disable the local evidence index")
	searchCmd.Flags().Bool("verbose", false, "enable debug logging to stderr")

	rootCmd.AddCommand(searchCmd)
}
