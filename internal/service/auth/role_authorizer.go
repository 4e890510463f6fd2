package auth

import (
	"fmt"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	"wikiflow/internal/domain/models"
)

// RoleAuthorizer implements services.Authorizer from the role policy registry.
// A principal with no role is treated as models.DefaultRole.
type RoleAuthorizer struct {
	registry *capabilities.Registry
}

// NewRoleAuthorizer creates an authorizer backed by the given policy
func NewRoleAuthorizer(registry *capabilities.Registry) *RoleAuthorizer {
	return &RoleAuthorizer{registry: registry}
}

// Can checks the principal's role against the policy
func (a *RoleAuthorizer) Can(p models.Principal, action capabilities.Action) bool {
	role := p.Role
	if role == "" {
		role = models.DefaultRole
	}
	return a.registry.Can(role, action)
}

// Require returns a ForbiddenError naming the missing permission
func (a *RoleAuthorizer) Require(p models.Principal, action capabilities.Action) error {
	if p.UserID == "" {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}
	if !a.Can(p, action) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("role %q lacks %s permission", p.Role, action)}
	}
	return nil
}
