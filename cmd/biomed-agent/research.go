// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/internal/orchestrator"
	"github.com/pdiddy/biomed-agent/internal/rag"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Run the iterative research loop for a question",
	Long: `Research runs the full loop: search all sources in parallel, judge
whether the evidence answers the question, repeat until sufficient or the
iteration cap is reached, then synthesize a report.

Progress events stream to stderr; the final report goes to stdout. With
--json every event is printed to stdout as a JSON line instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noIndex, _ := cmd.Flags().GetBool("no-index")

	cfg := appConfig()
	applyResearchFlags(cmd, &cfg)

	logger := buildLogger(cmd)
	defer logger.Sync()

	var store *rag.Store
	if !noIndex {
		var err error
		store, err = rag.NewStore(cfg.Index)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	o, err := orchestrator.Build(cfg, store, logger)
	if err != nil {
		return err
	}

	events := o.Run(context.Background(), query)

	if jsonOutput {
		return streamJSON(events)
	}
	return streamHuman(events)
}

// applyResearchFlags overlays command-line flags onto the configuration.
func applyResearchFlags(cmd *cobra.Command, cfg *types.AppConfig) {
	if v, _ := cmd.Flags().GetInt("max-iterations"); v > 0 {
		cfg.Orchestrator.MaxIterations = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Orchestrator.Mode = types.OrchestratorMode(v)
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model.Model = v
	}
}

func buildLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// streamJSON prints each event as one JSON line on stdout.
func streamJSON(events <-chan types.AgentEvent) error {
	enc := json.NewEncoder(os.Stdout)
	var terminal *types.AgentEvent
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if ev.Type.Terminal() {
			e := ev
			terminal = &e
		}
	}
	if terminal != nil && terminal.Type == types.EventError {
		return fmt.Errorf("%s", terminal.Message)
	}
	return nil
}

// streamHuman prints progress to stderr and the final report to stdout.
func streamHuman(events <-chan types.AgentEvent) error {
	for ev := range events {
		switch ev.Type {
		case types.EventStarted:
			fmt.Fprintf(os.Stderr, "%s\n", ev.Message)
		case types.EventSearching, types.EventJudging, types.EventSynthesizing:
			fmt.Fprintf(os.Stderr, "[%d] %s\n", ev.Iteration, ev.Message)
		case types.EventProgress:
			fmt.Fprintf(os.Stderr, "[%d] %s\n", ev.Iteration, ev.Message)
			if errs, ok := ev.Data["search_errors"].([]string); ok {
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "[%d] warning: %s\n", ev.Iteration, e)
				}
			}
		case types.EventComplete:
			fmt.Fprintf(os.Stderr, "done after %v iteration(s)\n", ev.Data["iterations"])
			if report, ok := ev.Data["report"].(string); ok {
				fmt.Println(report)
			}
		case types.EventError:
			return fmt.Errorf("%s", ev.Message)
		}
	}
	return nil
}

func init() {
	researchCmd.Flags().Int("max-iterations", 0, "cap on search-judge cycles (0 = config default)")
	researchCmd.Flags().String("mode", "", "judge mode: auto, llm, or heuristic")
	researchCmd.Flags().String("model", "", "override the judge/synthesis model")
	researchCmd.Flags().Bool("json", false, "stream events as JSON lines")
	researchCmd.Flags().Bool("no-index", false, "disable the local evidence index")
	researchCmd.Flags().Bool("verbose", false, "enable debug logging to stderr")

	rootCmd.AddCommand(researchCmd)
}
