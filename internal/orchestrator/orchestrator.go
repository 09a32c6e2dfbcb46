// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// DefaultMaxIterations caps the search-judge loop when the config does not
// override it.
const DefaultMaxIterations = 10

// SearchHandler runs one fan-out across the configured tools.
type SearchHandler interface {
	Execute(ctx context.Context, query string, maxResultsPerTool int) types.SearchResult
	Tools() []string
}

// Judge decides whether pooled evidence suffices to answer the question.
// The iteration counters tell the judge where the loop stands so it can
// weigh remaining gaps against the remaining budget.
type Judge interface {
	Assess(ctx context.Context, query string, evidence []types.Evidence, iteration, maxIterations int) (types.JudgeAssessment, error)
}

// Synthesizer writes the final report. Optional: without one the
// orchestrator falls back to the deterministic report.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, evidence []types.Evidence, assessment types.JudgeAssessment) (string, error)
}

// Orchestrator drives the iterative research loop: search, judge, repeat
// until the evidence is sufficient or the iteration cap is hit, then
// synthesize.
type Orchestrator struct {
	search     SearchHandler
	judge      Judge
	synth      Synthesizer
	maxIter    int
	maxResults int
	runTimeout time.Duration
	logger     *zap.Logger
}

// New builds an orchestrator. A nil synthesizer selects the deterministic
// report; a nil logger disables logging.
func New(search SearchHandler, judge Judge, synth Synthesizer, cfg types.OrchestratorConfig, maxResultsPerTool int, logger *zap.Logger) *Orchestrator {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		search:     search,
		judge:      judge,
		synth:      synth,
		maxIter:    maxIter,
		maxResults: maxResultsPerTool,
		runTimeout: cfg.RunTimeout,
		logger:     logger,
	}
}

// Run executes one research run and streams its lifecycle events. The
// channel closes after exactly one terminal event (complete or error).
// Cancelling ctx ends the run with an error event.
func (o *Orchestrator) Run(ctx context.Context, query string) <-chan types.AgentEvent {
	events := make(chan types.AgentEvent)
	go o.run(ctx, query, events)
	return events
}

func (o *Orchestrator) run(ctx context.Context, query string, events chan<- types.AgentEvent) {
	defer close(events)

	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	emit := func(t types.EventType, iteration int, msg string, data map[string]any) {
		events <- types.AgentEvent{
			RunID:     runID,
			Type:      t,
			Message:   msg,
			Iteration: iteration,
			Data:      data,
			Timestamp: time.Now().UTC(),
		}
	}

	log := o.logger.With(zap.String("run_id", runID), zap.String("query", query))
	log.Info("starting research run", zap.Int("max_iterations", o.maxIter))

	emit(types.EventStarted, 0, fmt.Sprintf("researching: %s", query), map[string]any{
		"tools":          o.search.Tools(),
		"max_iterations": o.maxIter,
	})

	pool := NewPool()
	var assessment types.JudgeAssessment
	iterations := 0

	for iteration := 1; iteration <= o.maxIter; iteration++ {
		iterations = iteration
		if err := ctx.Err(); err != nil {
			emit(types.EventError, iteration, fmt.Sprintf("run aborted: %v", err), nil)
			return
		}

		emit(types.EventSearching, iteration,
			fmt.Sprintf("searching %d sources", len(o.search.Tools())), nil)

		result := o.search.Execute(ctx, query, o.maxResults)
		added := pool.Add(result.Evidence)

		emit(types.EventProgress, iteration,
			fmt.Sprintf("found %d new items (%d total)", added, pool.Len()),
			map[string]any{
				"new_items":        added,
				"total_items":      pool.Len(),
				"sources_searched": result.SourcesSearched,
				"search_errors":    result.Errors,
			})

		emit(types.EventJudging, iteration,
			fmt.Sprintf("assessing %d evidence items", pool.Len()), nil)

		var err error
		assessment, err = o.judge.Assess(ctx, query, pool.Items(), iteration, o.maxIter)
		if err != nil {
			log.Error("judge failed", zap.Error(err))
			emit(types.EventError, iteration, fmt.Sprintf("judging failed: %v", err), nil)
			return
		}

		log.Info("iteration assessed",
			zap.Int("iteration", iteration),
			zap.Bool("sufficient", assessment.Sufficient),
			zap.Int("evidence", pool.Len()),
		)

		if assessment.Sufficient {
			break
		}
	}

	emit(types.EventSynthesizing, iterations,
		fmt.Sprintf("synthesizing report from %d evidence items", pool.Len()), nil)

	report, err := o.synthesize(ctx, query, pool.Items(), assessment)
	if err != nil {
		log.Error("synthesis failed", zap.Error(err))
		emit(types.EventError, iterations, fmt.Sprintf("synthesis failed: %v", err), nil)
		return
	}

	log.Info("run complete",
		zap.Int("iterations", iterations),
		zap.Int("evidence", pool.Len()),
	)
	emit(types.EventComplete, iterations, "research complete", map[string]any{
		"report":         report,
		"iterations":     iterations,
		"evidence_count": pool.Len(),
		"sufficient":     assessment.Sufficient,
		"reasoning":      assessment.Reasoning,
	})
}

// synthesize prefers the model chain but drops to the deterministic report
// when no synthesizer is wired or the assessment already came from the
// degraded path, where model access is known to be gone.
func (o *Orchestrator) synthesize(ctx context.Context, query string, evidence []types.Evidence, assessment types.JudgeAssessment) (string, error) {
	if o.synth == nil || assessment.FallbackAssessment() {
		return FallbackReport(query, evidence, assessment), nil
	}
	return o.synth.Synthesize(ctx, query, evidence, assessment)
}
