// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// SearchError reports that one search tool failed or timed out. It is
// non-fatal: the search handler records it and continues with the other
// tools.
type SearchError struct {
	// Tool is the name of the tool that failed.
	Tool string

	// Err is the underlying cause.
	Err error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ConfigurationError reports that a required capability (API key, index
// directory) is missing at construction time. It is fatal to the affected
// component and surfaced immediately rather than deferred to first use.
type ConfigurationError struct {
	// Component names the component that could not be constructed.
	Component string

	// Reason describes what is missing.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}

// SynthesisError reports that every fallback model for narrative synthesis
// failed or returned an unacceptably short result. It carries the full list
// of attempted models and per-model failure messages so callers can log or
// display exactly what was tried.
type SynthesisError struct {
	// AttemptedModels lists every model identifier tried, in order.
	AttemptedModels []string

	// Errors holds one failure or rejection message per attempted model.
	Errors []string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("all synthesis models failed (%d tried: %s)",
		len(e.AttemptedModels), strings.Join(e.AttemptedModels, ", "))
}
