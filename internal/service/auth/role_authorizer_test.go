package auth

import (
	"errors"
	"testing"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	"wikiflow/internal/domain/models"
)

func newAuthorizer(t *testing.T) *RoleAuthorizer {
	t.Helper()
	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return NewRoleAuthorizer(registry)
}

func TestRequire(t *testing.T) {
	a := newAuthorizer(t)

	tests := []struct {
		name      string
		principal models.Principal
		action    capabilities.Action
		wantErr   error
	}{
		{"editor writes", models.Principal{UserID: "u1", Role: "editor"}, capabilities.ActionWrite, nil},
		{"contributor writes", models.Principal{UserID: "u1", Role: "contributor"}, capabilities.ActionWrite, domain.ErrForbidden},
		{"empty role defaults to contributor", models.Principal{UserID: "u1"}, capabilities.ActionContribute, nil},
		{"empty role cannot review", models.Principal{UserID: "u1"}, capabilities.ActionReview, domain.ErrForbidden},
		{"anonymous", models.Principal{}, capabilities.ActionRead, domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Require(tt.principal, tt.action)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Require() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Require() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
