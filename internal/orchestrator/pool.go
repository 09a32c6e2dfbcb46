// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator runs the search-judge convergence loop and streams
// lifecycle events to the caller.
package orchestrator

import (
	"github.com/pdiddy/biomed-agent/internal/search"
	"github.com/pdiddy/biomed-agent/pkg/types"
)

// Pool accumulates evidence across loop iterations. It only grows: adding
// a duplicate of a stored paper either upgrades it to a higher-priority
// source copy or is dropped, never removed.
type Pool struct {
	items []types.Evidence
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Add merges new evidence into the pool and returns how many genuinely new
// items arrived. Duplicates resolve by source priority, same as the
// per-search deduplication.
func (p *Pool) Add(items []types.Evidence) int {
	before := len(p.items)
	p.items = search.Deduplicate(append(p.items, items...))
	return len(p.items) - before
}

// Items returns the pooled evidence in arrival order.
func (p *Pool) Items() []types.Evidence {
	return append([]types.Evidence(nil), p.items...)
}

// Len returns the pool size.
func (p *Pool) Len() int {
	return len(p.items)
}
