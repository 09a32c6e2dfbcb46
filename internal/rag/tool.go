// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"context"

	"github.com/pdiddy/biomed-agent/pkg/types"
)

// Tool exposes the evidence index as a search tool, so the fan-out can
// surface previously collected evidence alongside fresh API results.
type Tool struct {
	Store *Store
}

// Name returns the tool identifier.
func (t *Tool) Name() string { return string(types.SourceRAG) }

// Search queries the index.
func (t *Tool) Search(ctx context.Context, query string, maxResults int) ([]types.Evidence, error) {
	return t.Store.Query(ctx, query, maxResults)
}
