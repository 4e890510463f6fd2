package wiki

import (
	"context"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
)

// BatchService drives the review workflow of contribution batches
type BatchService interface {
	// GetOrCreateDraft returns the caller's Draft batch for the space, creating one if needed
	GetOrCreateDraft(ctx context.Context, p models.Principal, spaceID, title string) (*wiki.Batch, error)

	GetBatch(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)

	// ListMyBatches lists the caller's batches, optionally filtered by status
	ListMyBatches(ctx context.Context, p models.Principal, status *wiki.BatchStatus) ([]wiki.Batch, error)

	// ListPending lists Submitted and Under Review batches, oldest submission first
	ListPending(ctx context.Context, p models.Principal) ([]wiki.Batch, error)

	Submit(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)
	Withdraw(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)
	StartReview(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)
	Approve(ctx context.Context, p models.Principal, batchID string, comment *string) (*wiki.Batch, error)
	Reject(ctx context.Context, p models.Principal, batchID string, comment *string) (*wiki.Batch, error)
	Reopen(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)

	// Merge applies an Approved batch to the live tree in one transaction
	Merge(ctx context.Context, p models.Principal, batchID string) (*MergeResult, error)
}

// MergeResult summarises an applied batch
type MergeResult struct {
	Batch   *wiki.Batch       `json:"batch"`
	Applied int               `json:"applied"`
	Created map[string]string `json:"created"` // temp id -> real id
	Touched []string          `json:"touched"` // ids of created, edited, moved or reordered nodes
	Deleted []string          `json:"deleted"`
}

// ReviewRequest carries the optional reviewer comment
type ReviewRequest struct {
	Comment *string `json:"comment,omitempty"`
}

// DraftBatchRequest names a new draft batch
type DraftBatchRequest struct {
	Title string `json:"title"`
}
