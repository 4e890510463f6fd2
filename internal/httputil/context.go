package httputil

import (
	"context"
	"net/http"

	"wikiflow/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	principalKey contextKey = "principal"
)

// WithPrincipal adds the authenticated caller to the request context
func WithPrincipal(r *http.Request, p models.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, p)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the caller from context; ok is false for unauthenticated requests
func GetPrincipal(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(models.Principal)
	return p, ok
}

// GetUserID retrieves the caller's user id, returns empty string if not found
func GetUserID(r *http.Request) string {
	p, _ := GetPrincipal(r)
	return p.UserID
}
