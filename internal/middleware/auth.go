package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"wikiflow/internal/auth"
	"wikiflow/internal/domain/models"
	"wikiflow/internal/httputil"
)

// publicPaths skip token verification
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware verifies the Bearer token and stores the caller's Principal in the request context.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			p := models.Principal{UserID: claims.GetUserID(), Role: claims.WikiRole()}
			next.ServeHTTP(w, httputil.WithPrincipal(r, p))
		})
	}
}

// DevPrincipal authenticates every request as a fixed principal.
// Used when no JWKS endpoint is configured in dev.
func DevPrincipal(p models.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get("X-Wiki-User"); user != "" {
				p := models.Principal{UserID: user, Role: r.Header.Get("X-Wiki-Role")}
				next.ServeHTTP(w, httputil.WithPrincipal(r, p))
				return
			}
			next.ServeHTTP(w, httputil.WithPrincipal(r, p))
		})
	}
}
