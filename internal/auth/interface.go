package auth

import "wikiflow/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The auth middleware depends only on this, so tests can swap in a static verifier.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.WikiClaims, error)

	// Close releases any resources held by the verifier (e.g., the JWKS refresh goroutine).
	Close() error
}
