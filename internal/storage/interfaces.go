// Package storage defines the persistence contract for the knowledge
// graph and the sentinel errors shared by every layer above it.
//
// The primary store is a line-oriented JSONL file (see the jsonl
// subpackage) that is loaded and fully rewritten on every mutation.
// Keeping the interface down to whole-graph load and save is what makes
// that rewrite discipline enforceable: there is no partial-update path
// to bypass it.
package storage

import (
	"context"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// GraphStore persists whole knowledge-graph snapshots.
type GraphStore interface {
	// Load reads the complete graph. A missing backing file yields an
	// empty graph, not an error. The second return is true when no real
	// user identity is stored yet (absent or still the placeholder), so
	// callers can prompt for one.
	Load(ctx context.Context) (*types.KnowledgeGraph, bool, error)

	// Save atomically rewrites the complete graph.
	Save(ctx context.Context, graph *types.KnowledgeGraph) error

	// Close releases any resources held by the store.
	Close() error
}
