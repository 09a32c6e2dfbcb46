// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/biomed-agent/internal/rag"
	"github.com/pdiddy/biomed-agent/internal/search"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Inspect the local evidence index (query, export, count)",
	Long: `Evidence manages the local SQLite index that research runs populate.
Use subcommands to query indexed evidence, export it, or count it.`,
}

// --- query subcommand ---

var evidenceQueryCmd = &cobra.Command{
	Use:   "query [terms]",
	Short: "Full-text search over indexed evidence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEvidenceQuery,
}

func runEvidenceQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := rag.NewStore(appConfig().Index)
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.Query(context.Background(), query, limit)
	if err != nil {
		return err
	}

	result := types.SearchResult{
		Query:           query,
		Evidence:        items,
		SourcesSearched: []string{string(types.SourceRAG)},
		TotalFound:      len(items),
	}
	if jsonOutput {
		return search.FormatJSON(result, os.Stdout)
	}
	search.FormatTable(result, os.Stdout)
	return nil
}

// --- export subcommand ---

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the evidence index to YAML or JSON",
	RunE:  runEvidenceExport,
}

func runEvidenceExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := appConfig().Index
	store, err := rag.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.yaml\n", cfg.IndexDir)
	case "json":
		if err := store.ExportJSON(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.json\n", cfg.IndexDir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- count subcommand ---

var evidenceCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count indexed evidence items",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rag.NewStore(appConfig().Index)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%d evidence item(s)\n", n)
		return nil
	},
}

func init() {
	evidenceQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	evidenceQueryCmd.Flags().Bool("json", false, "output results as JSON")

	evidenceExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	evidenceCmd.AddCommand(evidenceQueryCmd)
	evidenceCmd.AddCommand(evidenceExportCmd)
	evidenceCmd.AddCommand(evidenceCountCmd)

	rootCmd.AddCommand(evidenceCmd)
}
