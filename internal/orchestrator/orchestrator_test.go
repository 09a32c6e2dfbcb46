// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// --- mocks ---

type mockSearch struct {
	calls   int
	perCall func(call int) types.SearchResult
}

func (m *mockSearch) Tools() []string { return []string{"pubmed", "web"} }

func (m *mockSearch) Execute(_ context.Context, query string, _ int) types.SearchResult {
	m.calls++
	if m.perCall != nil {
		return m.perCall(m.calls)
	}
	return types.SearchResult{Query: query, SourcesSearched: []string{"pubmed"}}
}

type mockJudge struct {
	calls        int
	sufficientAt int // 0 means never
	err          error
	fallback     bool
	seen         [][2]int // (iteration, maxIterations) per call
}

func (m *mockJudge) Assess(_ context.Context, _ string, evidence []types.Evidence, iteration, maxIterations int) (types.JudgeAssessment, error) {
	m.calls++
	m.seen = append(m.seen, [2]int{iteration, maxIterations})
	if m.err != nil {
		return types.JudgeAssessment{}, m.err
	}
	a := types.JudgeAssessment{
		Sufficient: m.sufficientAt > 0 && m.calls >= m.sufficientAt,
		Reasoning:  fmt.Sprintf("call %d with %d items", m.calls, len(evidence)),
	}
	if m.fallback {
		a.Sufficient = true
		a.Reasoning = "model quota exhausted"
		a.Details.DrugCandidates = []string{types.DrugExtractionUnavailable}
	}
	return a, nil
}

type mockSynth struct {
	calls  int
	report string
	err    error
}

func (m *mockSynth) Synthesize(_ context.Context, _ string, _ []types.Evidence, _ types.JudgeAssessment) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.report, nil
}

func collect(t *testing.T, events <-chan types.AgentEvent) []types.AgentEvent {
	t.Helper()
	var all []types.AgentEvent
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

func countType(events []types.AgentEvent, et types.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == et {
			n++
		}
	}
	return n
}

func testOrchestrator(s SearchHandler, j Judge, synth Synthesizer, maxIter int) *Orchestrator {
	return New(s, j, synth, types.OrchestratorConfig{MaxIterations: maxIter}, 5, nil)
}

// --- loop termination ---

func TestRunStopsWhenSufficient(t *testing.T) {
	searcher := &mockSearch{}
	judger := &mockJudge{sufficientAt: 2}
	synth := &mockSynth{report: "final report"}

	o := testOrchestrator(searcher, judger, synth, 10)
	events := collect(t, o.Run(context.Background(), "sildenafil"))

	if searcher.calls != 2 {
		t.Errorf("search calls = %d, want 2", searcher.calls)
	}
	if judger.calls != 2 {
		t.Errorf("judge calls = %d, want 2", judger.calls)
	}
	last := events[len(events)-1]
	if last.Type != types.EventComplete {
		t.Fatalf("last event = %s, want complete", last.Type)
	}
	if last.Data["report"] != "final report" {
		t.Errorf("report = %v", last.Data["report"])
	}
	if last.Data["iterations"] != 2 {
		t.Errorf("iterations = %v, want 2", last.Data["iterations"])
	}
}

func TestRunTerminatesAtExactlyMaxIterations(t *testing.T) {
	searcher := &mockSearch{}
	judger := &mockJudge{sufficientAt: 0} // never sufficient
	synth := &mockSynth{report: "report"}

	const maxIter = 4
	o := testOrchestrator(searcher, judger, synth, maxIter)
	events := collect(t, o.Run(context.Background(), "q"))

	if searcher.calls != maxIter {
		t.Errorf("search calls = %d, want exactly %d", searcher.calls, maxIter)
	}
	if got := countType(events, types.EventSearching); got != maxIter {
		t.Errorf("searching events = %d, want %d", got, maxIter)
	}
	last := events[len(events)-1]
	if last.Type != types.EventComplete {
		t.Fatalf("last event = %s, want complete after cap", last.Type)
	}
	if last.Data["sufficient"] != false {
		t.Errorf("sufficient = %v, want false", last.Data["sufficient"])
	}
	if synth.calls != 1 {
		t.Errorf("synthesis calls = %d, want 1 even when never sufficient", synth.calls)
	}
}

func TestRunPassesIterationContextToJudge(t *testing.T) {
	judger := &mockJudge{sufficientAt: 0}

	const maxIter = 3
	o := testOrchestrator(&mockSearch{}, judger, &mockSynth{report: "r"}, maxIter)
	collect(t, o.Run(context.Background(), "q"))

	if len(judger.seen) != maxIter {
		t.Fatalf("judge calls = %d, want %d", len(judger.seen), maxIter)
	}
	for i, got := range judger.seen {
		want := [2]int{i + 1, maxIter}
		if got != want {
			t.Errorf("call %d saw iteration %d/%d, want %d/%d",
				i+1, got[0], got[1], want[0], want[1])
		}
	}
}

func TestRunDefaultIterationCap(t *testing.T) {
	searcher := &mockSearch{}
	o := testOrchestrator(searcher, &mockJudge{}, &mockSynth{report: "r"}, 0)
	collect(t, o.Run(context.Background(), "q"))

	if searcher.calls != DefaultMaxIterations {
		t.Errorf("search calls = %d, want %d", searcher.calls, DefaultMaxIterations)
	}
}

// --- event stream ---

func TestRunEventOrdering(t *testing.T) {
	o := testOrchestrator(&mockSearch{}, &mockJudge{sufficientAt: 1}, &mockSynth{report: "r"}, 10)
	events := collect(t, o.Run(context.Background(), "q"))

	if events[0].Type != types.EventStarted {
		t.Errorf("first event = %s, want started", events[0].Type)
	}

	terminals := 0
	for i, ev := range events {
		if ev.Type.Terminal() {
			terminals++
			if i != len(events)-1 {
				t.Errorf("terminal event at position %d of %d", i, len(events))
			}
		}
		if ev.RunID != events[0].RunID {
			t.Errorf("event %d has RunID %q, want %q", i, ev.RunID, events[0].RunID)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d has zero timestamp", i)
		}
	}
	if terminals != 1 {
		t.Errorf("terminal events = %d, want exactly 1", terminals)
	}

	want := []types.EventType{
		types.EventStarted, types.EventSearching, types.EventProgress,
		types.EventJudging, types.EventSynthesizing, types.EventComplete,
	}
	if len(events) != len(want) {
		t.Fatalf("len(events) = %d, want %d", len(events), len(want))
	}
	for i, et := range want {
		if events[i].Type != et {
			t.Errorf("events[%d] = %s, want %s", i, events[i].Type, et)
		}
	}
}

func TestRunIDsDifferBetweenRuns(t *testing.T) {
	o := testOrchestrator(&mockSearch{}, &mockJudge{sufficientAt: 1}, &mockSynth{report: "r"}, 10)
	first := collect(t, o.Run(context.Background(), "q"))
	second := collect(t, o.Run(context.Background(), "q"))

	if first[0].RunID == second[0].RunID {
		t.Error("consecutive runs share a RunID")
	}
}

// --- failure paths ---

func TestRunJudgeErrorEmitsErrorEvent(t *testing.T) {
	o := testOrchestrator(&mockSearch{}, &mockJudge{err: errors.New("bad prompt")}, &mockSynth{}, 10)
	events := collect(t, o.Run(context.Background(), "q"))

	last := events[len(events)-1]
	if last.Type != types.EventError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if !strings.Contains(last.Message, "judging failed") {
		t.Errorf("Message = %q", last.Message)
	}
	if countType(events, types.EventError) != 1 {
		t.Errorf("error events = %d, want 1", countType(events, types.EventError))
	}
}

func TestRunSynthesisErrorEmitsErrorEvent(t *testing.T) {
	synthErr := &types.SynthesisError{
		AttemptedModels: []string{"a", "b"},
		Errors:          []string{"down", "down"},
	}
	o := testOrchestrator(&mockSearch{}, &mockJudge{sufficientAt: 1}, &mockSynth{err: synthErr}, 10)
	events := collect(t, o.Run(context.Background(), "q"))

	last := events[len(events)-1]
	if last.Type != types.EventError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if !strings.Contains(last.Message, "all synthesis models failed") {
		t.Errorf("Message = %q", last.Message)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := testOrchestrator(&mockSearch{}, &mockJudge{sufficientAt: 1}, &mockSynth{report: "r"}, 10)
	events := collect(t, o.Run(ctx, "q"))

	last := events[len(events)-1]
	if last.Type != types.EventError {
		t.Fatalf("last event = %s, want error on cancelled context", last.Type)
	}
}

// --- degraded synthesis ---

func TestRunFallbackAssessmentSkipsModelSynthesis(t *testing.T) {
	searcher := &mockSearch{perCall: func(int) types.SearchResult {
		return types.SearchResult{Evidence: []types.Evidence{
			{Content: "x", Citation: types.Citation{Source: types.SourcePubMed, Title: "paper", URL: "https://pubmed.ncbi.nlm.nih.gov/1/"}},
		}}
	}}
	synth := &mockSynth{report: "model report"}

	o := testOrchestrator(searcher, &mockJudge{fallback: true}, synth, 10)
	events := collect(t, o.Run(context.Background(), "q"))

	if synth.calls != 0 {
		t.Errorf("synthesis calls = %d, want 0 after quota degradation", synth.calls)
	}
	last := events[len(events)-1]
	if last.Type != types.EventComplete {
		t.Fatalf("last event = %s, want complete", last.Type)
	}
	report, _ := last.Data["report"].(string)
	if !strings.Contains(report, "# Research Report") {
		t.Errorf("report = %q, want deterministic fallback report", report)
	}
}

func TestRunNilSynthesizerUsesFallbackReport(t *testing.T) {
	o := testOrchestrator(&mockSearch{}, &mockJudge{sufficientAt: 1}, nil, 10)
	events := collect(t, o.Run(context.Background(), "q"))

	last := events[len(events)-1]
	if last.Type != types.EventComplete {
		t.Fatalf("last event = %s, want complete", last.Type)
	}
	report, _ := last.Data["report"].(string)
	if !strings.Contains(report, "# Research Report") {
		t.Errorf("report = %q, want deterministic fallback report", report)
	}
}

// --- pool ---

func TestPoolGrowsMonotonically(t *testing.T) {
	pool := NewPool()

	added := pool.Add([]types.Evidence{
		{Citation: types.Citation{Source: types.SourcePubMed, URL: "https://pubmed.ncbi.nlm.nih.gov/1/"}},
		{Citation: types.Citation{Source: types.SourcePubMed, URL: "https://pubmed.ncbi.nlm.nih.gov/2/"}},
	})
	if added != 2 || pool.Len() != 2 {
		t.Fatalf("added = %d, len = %d, want 2, 2", added, pool.Len())
	}

	// Duplicate plus one new item.
	added = pool.Add([]types.Evidence{
		{Citation: types.Citation{Source: types.SourceEuropePMC, URL: "https://pubmed.ncbi.nlm.nih.gov/1/"}},
		{Citation: types.Citation{Source: types.SourcePubMed, URL: "https://pubmed.ncbi.nlm.nih.gov/3/"}},
	})
	if added != 1 || pool.Len() != 3 {
		t.Errorf("added = %d, len = %d, want 1, 3", added, pool.Len())
	}

	// Re-adding everything changes nothing.
	added = pool.Add(pool.Items())
	if added != 0 || pool.Len() != 3 {
		t.Errorf("added = %d, len = %d, want 0, 3", added, pool.Len())
	}
}

func TestPoolUpgradesSourceOnDuplicate(t *testing.T) {
	pool := NewPool()
	pool.Add([]types.Evidence{
		{Content: "PMID: 42. web copy", Citation: types.Citation{Source: types.SourceWeb, URL: "https://example.com"}},
	})
	pool.Add([]types.Evidence{
		{Citation: types.Citation{Source: types.SourcePubMed, URL: "https://pubmed.ncbi.nlm.nih.gov/42/"}},
	})

	items := pool.Items()
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Citation.Source != types.SourcePubMed {
		t.Errorf("source = %q, want pubmed after upgrade", items[0].Citation.Source)
	}
}

// --- fallback report ---

func TestFallbackReportDeterministic(t *testing.T) {
	evidence := []types.Evidence{
		{
			Content: "Sildenafil improves outcomes.",
			Citation: types.Citation{
				Source: types.SourcePubMed, Title: "Sildenafil in PAH",
				URL: "https://pubmed.ncbi.nlm.nih.gov/1/", Date: "2024",
				Authors: []string{"Smith J"},
			},
		},
	}
	assessment := types.JudgeAssessment{
		Reasoning: "model quota exhausted",
		Details: types.AssessmentDetails{
			KeyFindings:    []string{"Sildenafil in PAH"},
			DrugCandidates: []string{types.DrugExtractionUnavailable},
		},
	}

	first := FallbackReport("q", evidence, assessment)
	second := FallbackReport("q", evidence, assessment)
	if first != second {
		t.Error("fallback report is not deterministic")
	}
	if !strings.Contains(first, "Sildenafil in PAH") {
		t.Errorf("report missing evidence title:\n%s", first)
	}
	if strings.Contains(first, types.DrugExtractionUnavailable) {
		t.Error("sentinel must not appear in the rendered report")
	}
	if !strings.Contains(first, "https://pubmed.ncbi.nlm.nih.gov/1/") {
		t.Error("report missing citation URL")
	}
}
