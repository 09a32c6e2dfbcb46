// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans a research query out across biomedical literature
// APIs and returns unified, deduplicated evidence.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// Tool searches a single evidence source. Each tool (PubMed,
// ClinicalTrials.gov, Europe PMC, bioRxiv, web) implements this interface
// per the Strategy pattern. Search returns a *types.SearchError (or any
// error, which the handler wraps) on unrecoverable failure.
type Tool interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error)
}

// Ingestor receives deduplicated evidence for retrieval-augmented lookups
// in later iterations. Implementations must be idempotent on the
// deduplication key.
type Ingestor interface {
	Ingest(ctx context.Context, items []types.Evidence) error
}

// DefaultToolTimeout bounds each tool's search call when the config does
// not override it.
const DefaultToolTimeout = 30 * time.Second

// Handler orchestrates parallel searches across multiple tools.
type Handler struct {
	tools   []Tool
	timeout time.Duration
	sink    Ingestor
	logger  *zap.Logger
}

// NewHandler builds a Handler over the given tools. A nil sink disables
// ingestion; a zero timeout selects DefaultToolTimeout.
func NewHandler(tools []Tool, timeout time.Duration, sink Ingestor, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tools:   append([]Tool(nil), tools...),
		timeout: timeout,
		sink:    sink,
		logger:  logger,
	}
}

// Tools returns the names of the registered tools.
func (h *Handler) Tools() []string {
	names := make([]string, len(h.tools))
	for i, t := range h.tools {
		names[i] = t.Name()
	}
	return names
}

// toolResult is one tool's outcome inside a single fan-out.
type toolResult struct {
	name     string
	evidence []types.Evidence
	err      error
}

// Execute runs the query against every tool concurrently, each under an
// independent timeout. Tool failures and timeouts are isolated: they
// contribute an entry to Errors and are excluded from SourcesSearched, but
// never abort the overall search. Successful results are concatenated,
// deduplicated with the source-priority tie-break, and (when a sink is
// configured) ingested best-effort. Execute always returns a SearchResult,
// possibly with zero evidence.
func (h *Handler) Execute(ctx context.Context, query string, maxResultsPerTool int) types.SearchResult {
	if maxResultsPerTool <= 0 {
		maxResultsPerTool = 10
	}
	h.logger.Info("starting search",
		zap.String("query", query),
		zap.Strings("tools", h.Tools()),
	)

	ch := make(chan toolResult, len(h.tools))
	var wg sync.WaitGroup
	for _, t := range h.tools {
		wg.Add(1)
		go func(t Tool) {
			defer wg.Done()
			ch <- h.searchWithTimeout(ctx, t, query, maxResultsPerTool)
		}(t)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Evidence
	var sources []string
	var errs []string
	for tr := range ch {
		if tr.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", tr.name, tr.err))
			h.logger.Warn("search tool failed",
				zap.String("tool", tr.name),
				zap.Error(tr.err),
			)
			continue
		}
		all = append(all, tr.evidence...)
		sources = append(sources, tr.name)
		h.logger.Info("search tool succeeded",
			zap.String("tool", tr.name),
			zap.Int("count", len(tr.evidence)),
		)
	}

	deduped := Deduplicate(all)
	if removed := len(all) - len(deduped); removed > 0 {
		h.logger.Info("deduplicated results",
			zap.Int("duplicates_removed", removed),
			zap.Int("kept", len(deduped)),
		)
	}

	result := types.SearchResult{
		Query:           query,
		Evidence:        deduped,
		SourcesSearched: sources,
		TotalFound:      len(deduped),
		Errors:          errs,
	}

	h.ingest(ctx, deduped)

	return result
}

// searchWithTimeout runs one tool under its own deadline. A tool that
// neither returns nor honors its context by the deadline is abandoned; its
// goroutine may finish later but the result is discarded.
func (h *Handler) searchWithTimeout(ctx context.Context, t Tool, query string, maxResults int) toolResult {
	toolCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan toolResult, 1)
	go func() {
		evidence, err := t.Search(toolCtx, query, maxResults)
		done <- toolResult{name: t.Name(), evidence: evidence, err: err}
	}()

	select {
	case tr := <-done:
		if tr.err != nil {
			tr.err = &types.SearchError{Tool: t.Name(), Err: tr.err}
			tr.evidence = nil
		}
		return tr
	case <-toolCtx.Done():
		return toolResult{
			name: t.Name(),
			err: &types.SearchError{
				Tool: t.Name(),
				Err:  fmt.Errorf("search timed out after %s", h.timeout),
			},
		}
	}
}

// ingest pushes non-index-sourced evidence into the sink. Failures are
// logged, never raised: the index is an accelerator, not a dependency.
func (h *Handler) ingest(ctx context.Context, items []types.Evidence) {
	if h.sink == nil || len(items) == 0 {
		return
	}
	fresh := make([]types.Evidence, 0, len(items))
	for _, ev := range items {
		if ev.Citation.Source != types.SourceRAG {
			fresh = append(fresh, ev)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := h.sink.Ingest(ctx, fresh); err != nil {
		h.logger.Warn("evidence ingestion failed", zap.Error(err))
		return
	}
	h.logger.Info("ingested evidence into index", zap.Int("count", len(fresh)))
}
