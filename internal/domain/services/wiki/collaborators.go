package wiki

import (
	"context"

	"wikiflow/internal/domain/models/wiki"
)

// SearchIndexer receives node changes after they are committed.
// Failures are logged by the caller and never undo a change.
type SearchIndexer interface {
	IndexNodes(ctx context.Context, nodes []wiki.Node) error
	RemoveNodes(ctx context.Context, ids []string) error
}

// RouteCache maps routes to node ids for page resolution
type RouteCache interface {
	// Get returns the cached node id; ok is false on a miss
	Get(ctx context.Context, route string) (nodeID string, ok bool, err error)
	Set(ctx context.Context, route, nodeID string) error
	Invalidate(ctx context.Context, routes ...string) error
}
