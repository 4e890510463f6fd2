package wiki

import (
	"context"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
)

// NodeService edits the live tree directly. Requires the write permission
// except for reads.
type NodeService interface {
	CreateNode(ctx context.Context, p models.Principal, req *CreateNodeRequest) (*wiki.Node, error)
	GetNode(ctx context.Context, p models.Principal, nodeID string) (*wiki.Node, error)
	UpdateNode(ctx context.Context, p models.Principal, nodeID string, req *UpdateNodeRequest) (*wiki.Node, error)

	// DeleteNode removes the node and its subtree, returning how many nodes were deleted
	DeleteNode(ctx context.Context, p models.Principal, nodeID string) (int, error)

	// GetBreadcrumbs returns the path from the space root down to the node, inclusive
	GetBreadcrumbs(ctx context.Context, p models.Principal, nodeID string) ([]wiki.Breadcrumb, error)

	// ResolveRoute returns the published page at route
	ResolveRoute(ctx context.Context, p models.Principal, route string) (*wiki.Node, error)
}

// CreateNodeRequest represents a direct node creation request
type CreateNodeRequest struct {
	ParentID    string  `json:"parent_id"`
	Title       string  `json:"title"`
	Content     *string `json:"content,omitempty"`
	IsGroup     bool    `json:"is_group"`
	IsPublished bool    `json:"is_published"`
	SortOrder   *int    `json:"sort_order,omitempty"` // Appended after existing children when absent
	Slug        *string `json:"slug,omitempty"`
}

// UpdateNodeRequest represents a partial node update.
// Content is tri-state (no json tag - mapped from the handler DTO).
type UpdateNodeRequest struct {
	Title       *string         `json:"title,omitempty"`
	Content     OptionalContent `json:"-"`
	IsPublished *bool           `json:"is_published,omitempty"`
	Slug        *string         `json:"slug,omitempty"`
}

// OptionalContent tracks tri-state semantics for content updates (RFC 7396 PATCH).
//   - Present=false: field absent from request (don't change)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value=&"text": field has value
type OptionalContent struct {
	Present bool
	Value   *string
}
