package wiki

import (
	"errors"
	"testing"

	"wikiflow/internal/domain"
)

func TestBatchTransitions(t *testing.T) {
	allowed := map[BatchStatus]map[BatchStatus]bool{
		BatchDraft:       {BatchSubmitted: true},
		BatchSubmitted:   {BatchUnderReview: true, BatchApproved: true, BatchRejected: true, BatchDraft: true},
		BatchUnderReview: {BatchApproved: true, BatchRejected: true, BatchDraft: true},
		BatchApproved:    {BatchMerged: true},
		BatchRejected:    {BatchDraft: true},
		BatchMerged:      {},
	}

	for _, from := range AllBatchStatuses {
		for _, to := range AllBatchStatuses {
			want := allowed[from][to]
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				if got := from.CanTransitionTo(to); got != want {
					t.Errorf("CanTransitionTo() = %v, want %v", got, want)
				}
				err := CheckTransition(from, to)
				if want && err != nil {
					t.Errorf("CheckTransition() error = %v, want nil", err)
				}
				if !want && !errors.Is(err, domain.ErrValidation) {
					t.Errorf("CheckTransition() error = %v, want validation error", err)
				}
			})
		}
	}
}

func TestBatchStatusValid(t *testing.T) {
	if !BatchUnderReview.Valid() {
		t.Error("Under Review should be valid")
	}
	if BatchStatus("Pending").Valid() {
		t.Error("Pending should not be valid")
	}
}
