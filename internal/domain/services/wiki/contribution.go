package wiki

import (
	"context"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
)

// ContributionService manages the contributions of a Draft batch.
// Only the batch owner may change them.
type ContributionService interface {
	// CreateContribution validates the operation, snapshots its target and appends it to the batch
	CreateContribution(ctx context.Context, p models.Principal, req *CreateContributionRequest) (*wiki.Contribution, error)

	// UpdateContribution changes proposed fields. Identity fields and the snapshot never change.
	UpdateContribution(ctx context.Context, p models.Principal, contributionID string, fields *ContributionFields) (*wiki.Contribution, error)

	// DeleteContribution removes a contribution and renumbers the rest to 1..N
	DeleteContribution(ctx context.Context, p models.Principal, contributionID string) error

	// ListContributions returns the batch's contributions in sequence order
	ListContributions(ctx context.Context, p models.Principal, batchID string) ([]wiki.Contribution, error)

	// GetContributionDiff compares an Edit contribution with its snapshot
	GetContributionDiff(ctx context.Context, p models.Principal, contributionID string) (*wiki.ContributionDiff, error)
}

// CreateContributionRequest represents a new contribution
type CreateContributionRequest struct {
	BatchID   string             `json:"-"` // Set by handler from the URL
	Operation wiki.OperationKind `json:"operation"`
	ContributionFields
}

// ContributionFields is the flat wire form of an operation.
// Only the fields meaningful for the operation kind may be set.
type ContributionFields struct {
	TempID              *string  `json:"temp_id,omitempty"`
	ParentRef           *string  `json:"parent_ref,omitempty"`
	TargetDocumentID    *string  `json:"target_document_id,omitempty"`
	NewParentRef        *string  `json:"new_parent_ref,omitempty"`
	ProposedTitle       *string  `json:"proposed_title,omitempty"`
	ProposedContent     *string  `json:"proposed_content,omitempty"`
	ProposedIsGroup     *bool    `json:"proposed_is_group,omitempty"`
	ProposedIsPublished *bool    `json:"proposed_is_published,omitempty"`
	ProposedSortOrder   *int     `json:"proposed_sort_order,omitempty"`
	NewSortOrder        *int     `json:"new_sort_order,omitempty"`
	ProposedSlug        *string  `json:"proposed_slug,omitempty"`
	SiblingsOrder       []string `json:"siblings_order,omitempty"`
}
