// Package wiki implements the wiki services: the live tree, contribution
// batches and the merge engine that applies them.
package wiki

import (
	"fmt"
	"time"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/services"
)

// now is the clock for every timestamp the services write. Microsecond
// precision matches what postgres stores, so conflict checks compare equal values.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isOwner(p domainModels.Principal, b *models.Batch) bool {
	return p.UserID != "" && p.UserID == b.ContributorID
}

func requireOwner(p domainModels.Principal, b *models.Batch) error {
	if !isOwner(p, b) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("batch %s belongs to another contributor", b.ID)}
	}
	return nil
}

func requireDraft(b *models.Batch) error {
	if b.Status != models.BatchDraft {
		return domain.NewValidationError("batch %q is %s; only Draft batches can be changed", b.Title, b.Status)
	}
	return nil
}

// requireDraftOwner guards every change to a batch's contributions
func requireDraftOwner(p domainModels.Principal, b *models.Batch) error {
	if err := requireOwner(p, b); err != nil {
		return err
	}
	return requireDraft(b)
}

// requireBatchAccess lets the owner and reviewers see a batch
func requireBatchAccess(authz services.Authorizer, p domainModels.Principal, b *models.Batch) error {
	if isOwner(p, b) || authz.Can(p, capabilities.ActionReview) {
		return nil
	}
	return &domain.ForbiddenError{Message: fmt.Sprintf("batch %s belongs to another contributor", b.ID)}
}

// validationFailed wraps an ozzo error as a ValidationError
func validationFailed(err error) error {
	if err == nil {
		return nil
	}
	return domain.NewValidationError("%v", err)
}
