package wiki

import (
	"time"

	"wikiflow/internal/domain"
)

// BatchStatus is the review state of a contribution batch.
type BatchStatus string

const (
	BatchDraft       BatchStatus = "Draft"
	BatchSubmitted   BatchStatus = "Submitted"
	BatchUnderReview BatchStatus = "Under Review"
	BatchApproved    BatchStatus = "Approved"
	BatchRejected    BatchStatus = "Rejected"
	BatchMerged      BatchStatus = "Merged"
)

// AllBatchStatuses lists every status in workflow order.
var AllBatchStatuses = []BatchStatus{
	BatchDraft,
	BatchSubmitted,
	BatchUnderReview,
	BatchApproved,
	BatchRejected,
	BatchMerged,
}

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchDraft:       {BatchSubmitted},
	BatchSubmitted:   {BatchUnderReview, BatchApproved, BatchRejected, BatchDraft},
	BatchUnderReview: {BatchApproved, BatchRejected, BatchDraft},
	BatchApproved:    {BatchMerged},
	BatchRejected:    {BatchDraft},
	BatchMerged:      {},
}

// Valid reports whether s is a known status.
func (s BatchStatus) Valid() bool {
	_, ok := batchTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is a permitted successor of s.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition returns a ValidationError unless from -> to is a permitted transition.
func CheckTransition(from, to BatchStatus) error {
	if !from.CanTransitionTo(to) {
		return domain.NewValidationError("cannot change batch status from %s to %s", from, to)
	}
	return nil
}

// Batch is a reviewable group of contributions against one space.
type Batch struct {
	ID                string      `json:"id" db:"id"`
	Title             string      `json:"title" db:"title"`
	SpaceID           string      `json:"space_id" db:"space_id"`
	ContributorID     string      `json:"contributor_id" db:"contributor_id"`
	Status            BatchStatus `json:"status" db:"status"`
	SubmittedAt       *time.Time  `json:"submitted_at,omitempty" db:"submitted_at"`
	ReviewedBy        *string     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt        *time.Time  `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewComment     *string     `json:"review_comment,omitempty" db:"review_comment"`
	ContributionCount int         `json:"contribution_count"` // Computed, not stored in DB
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	ModifiedAt        time.Time   `json:"modified_at" db:"modified_at"`
}

// IsPending reports whether the batch is waiting on a reviewer.
func (b *Batch) IsPending() bool {
	return b.Status == BatchSubmitted || b.Status == BatchUnderReview
}
