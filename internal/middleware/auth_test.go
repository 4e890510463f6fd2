package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"wikiflow/internal/domain"
	"wikiflow/internal/domain/models"
	"wikiflow/internal/httputil"

	"github.com/golang-jwt/jwt/v5"
)

type staticVerifier struct {
	tokens map[string]*models.WikiClaims
}

func (v *staticVerifier) VerifyToken(token string) (*models.WikiClaims, error) {
	if c, ok := v.tokens[token]; ok {
		return c, nil
	}
	return nil, domain.ErrUnauthorized
}

func (v *staticVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	verifier := &staticVerifier{tokens: map[string]*models.WikiClaims{
		"good": {
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
			AppMetadata:      map[string]interface{}{"wiki_role": "editor"},
		},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen models.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httputil.GetPrincipal(r)
		w.WriteHeader(http.StatusNoContent)
	})
	h := AuthMiddleware(verifier, logger)(next)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
		user   string
	}{
		{"valid token", "/api/spaces", "Bearer good", http.StatusNoContent, "user-1"},
		{"missing header", "/api/spaces", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/spaces", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", "/api/spaces", "Bearer bad", http.StatusUnauthorized, ""},
		{"health is public", "/health", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = models.Principal{}
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if seen.UserID != tt.user {
				t.Errorf("principal user = %q, want %q", seen.UserID, tt.user)
			}
			if tt.user != "" && seen.Role != "editor" {
				t.Errorf("principal role = %q, want editor", seen.Role)
			}
		})
	}
}
