package services

import (
	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain/models"
)

// Authorizer decides what a principal may do.
//
// Services call the authorizer before touching the tree or a batch; ownership of a
// batch is checked by the batch and contribution services themselves.
type Authorizer interface {
	// Can reports whether the principal holds the permission
	Can(p models.Principal, action capabilities.Action) bool

	// Require returns a ForbiddenError when the principal lacks the permission
	Require(p models.Principal, action capabilities.Action) error
}
