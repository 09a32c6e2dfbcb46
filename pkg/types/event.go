// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EventType enumerates the lifecycle events an orchestrator run emits.
type EventType string

const (
	EventStarted      EventType = "started"
	EventSearching    EventType = "searching"
	EventProgress     EventType = "progress"
	EventJudging      EventType = "judging"
	EventSynthesizing EventType = "synthesizing"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Terminal reports whether the event ends the run. Every run emits exactly
// one terminal event before its channel closes.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// AgentEvent is one entry in the ordered lifecycle stream of a research run.
// Consumers may render events incrementally; the stream is not restartable.
type AgentEvent struct {
	// RunID ties the event to one orchestrator run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Type is the lifecycle phase this event reports.
	Type EventType `json:"type" yaml:"type"`

	// Message is a human-readable description.
	Message string `json:"message" yaml:"message"`

	// Iteration is the search-judge cycle the event belongs to, starting
	// at 1. Zero for events outside the loop.
	Iteration int `json:"iteration,omitempty" yaml:"iteration,omitempty"`

	// Data carries phase-specific payloads: the final report on complete,
	// per-tool counts on progress.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
