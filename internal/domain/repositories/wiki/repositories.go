package wiki

import (
	"context"

	"wikiflow/internal/domain/models/wiki"
)

// NodeRepository defines data access operations for the document tree
type NodeRepository interface {
	// Create inserts a node; bounds start at zero until the next rebuild
	Create(ctx context.Context, node *wiki.Node) error

	// GetByID retrieves a node by ID
	GetByID(ctx context.Context, id string) (*wiki.Node, error)

	// GetByRoute retrieves the node currently holding a route
	GetByRoute(ctx context.Context, route string) (*wiki.Node, error)

	// Update writes content and structural fields. Bounds are never written here.
	Update(ctx context.Context, node *wiki.Node) error

	// UpdateSortOrder sets sort_order without touching modified_at
	UpdateSortOrder(ctx context.Context, id string, sortOrder int) error

	// UpdateRoute sets route without touching modified_at
	UpdateRoute(ctx context.Context, id, route string) error

	// UpdateBounds sets lft/rgt. Only the tree rebuilder calls this.
	UpdateBounds(ctx context.Context, id string, lft, rgt int) error

	// Delete removes a single node; callers delete descendants first
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate children ordered by (sort_order, id)
	ListChildren(ctx context.Context, parentID string) ([]wiki.Node, error)

	// ListDescendants walks parent pointers and returns descendants ordered by depth, shallowest first
	ListDescendants(ctx context.Context, id string) ([]wiki.Node, error)

	// ListSubtree returns nodes whose bounds lie within [lft, rgt], ordered by lft
	ListSubtree(ctx context.Context, lft, rgt int) ([]wiki.Node, error)

	// ListAncestors returns nodes whose bounds enclose the node, root first
	ListAncestors(ctx context.Context, node *wiki.Node) ([]wiki.Node, error)

	// ListAll returns every node in the store
	ListAll(ctx context.Context) ([]wiki.Node, error)
}

// SpaceRepository defines data access operations for spaces
type SpaceRepository interface {
	Create(ctx context.Context, space *wiki.Space) error
	GetByID(ctx context.Context, id string) (*wiki.Space, error)
	GetByRootGroup(ctx context.Context, rootGroupID string) (*wiki.Space, error)
	List(ctx context.Context) ([]wiki.Space, error)
}

// BatchRepository defines data access operations for contribution batches
type BatchRepository interface {
	Create(ctx context.Context, batch *wiki.Batch) error

	// GetByID retrieves a batch with its contribution count
	GetByID(ctx context.Context, id string) (*wiki.Batch, error)

	// GetForUpdate retrieves a batch and locks it for the rest of the transaction
	GetForUpdate(ctx context.Context, id string) (*wiki.Batch, error)

	// Update writes title, status and review fields
	Update(ctx context.Context, batch *wiki.Batch) error

	// FindDraft returns the contributor's Draft batch for a space
	FindDraft(ctx context.Context, spaceID, contributorID string) (*wiki.Batch, error)

	// ListByContributor lists a contributor's batches, newest first, optionally filtered by status
	ListByContributor(ctx context.Context, contributorID string, status *wiki.BatchStatus) ([]wiki.Batch, error)

	// ListByStatus lists batches in any of the statuses, oldest submission first
	ListByStatus(ctx context.Context, statuses []wiki.BatchStatus) ([]wiki.Batch, error)
}

// ContributionRepository defines data access operations for contributions
type ContributionRepository interface {
	Create(ctx context.Context, c *wiki.Contribution) error
	GetByID(ctx context.Context, id string) (*wiki.Contribution, error)

	// Update writes payload, siblings order and modified_at. Snapshot and sequence are untouched.
	Update(ctx context.Context, c *wiki.Contribution) error

	Delete(ctx context.Context, id string) error

	// ListByBatch returns contributions ordered by sequence ascending
	ListByBatch(ctx context.Context, batchID string) ([]wiki.Contribution, error)

	// MaxSequence returns the highest sequence in the batch, 0 if empty
	MaxSequence(ctx context.Context, batchID string) (int, error)

	// SetSequence renumbers one contribution
	SetSequence(ctx context.Context, id string, sequence int) error

	// FindByTempID returns the Create contribution in the batch that minted tempID
	FindByTempID(ctx context.Context, batchID, tempID string) (*wiki.Contribution, error)

	// DetachTarget clears the target link of every contribution pointing at nodeID
	DetachTarget(ctx context.Context, nodeID string) error
}
