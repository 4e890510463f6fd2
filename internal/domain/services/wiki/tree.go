package wiki

import (
	"context"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
)

// TreeService reads the live tree and the virtual tree a batch would produce
type TreeService interface {
	// GetTree returns the space's nested tree, children ordered by position
	GetTree(ctx context.Context, p models.Principal, spaceID string) (*wiki.TreeNode, error)

	// GetMergedTreePreview overlays the batch's contributions on the live tree.
	// Nothing is written.
	GetMergedTreePreview(ctx context.Context, p models.Principal, spaceID, batchID string) (*wiki.PreviewNode, error)
}

// TreeRebuilder recomputes nested-set bounds for the whole forest
type TreeRebuilder interface {
	// Rebuild persists changed bounds and returns how many nodes were touched.
	// Callers run it inside the transaction that changed the structure.
	Rebuild(ctx context.Context) (int, error)
}

// SpaceService manages spaces and their root groups
type SpaceService interface {
	CreateSpace(ctx context.Context, p models.Principal, req *CreateSpaceRequest) (*wiki.Space, error)
	GetSpace(ctx context.Context, p models.Principal, spaceID string) (*wiki.Space, error)
	ListSpaces(ctx context.Context, p models.Principal) ([]wiki.Space, error)
}

// CreateSpaceRequest represents a space creation request
type CreateSpaceRequest struct {
	Name  string `json:"name"`
	Route string `json:"route"` // URL base, e.g. "docs"; generated from Name when empty
}
