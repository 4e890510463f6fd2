package models

import "github.com/golang-jwt/jwt/v5"

// DefaultRole is assigned to authenticated users whose token carries no wiki role.
const DefaultRole = "contributor"

// WikiClaims represents the JWT claims issued by the identity provider.
type WikiClaims struct {
	jwt.RegisteredClaims                        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                 `json:"email"`
	AppMetadata          map[string]interface{} `json:"app_metadata"`
	Role                 string                 `json:"role"` // "authenticated" or "anon"
	SessionID            string                 `json:"session_id"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *WikiClaims) GetUserID() string {
	return c.Subject
}

// WikiRole returns app_metadata.wiki_role, falling back to DefaultRole.
func (c *WikiClaims) WikiRole() string {
	if role, ok := c.AppMetadata["wiki_role"].(string); ok && role != "" {
		return role
	}
	return DefaultRole
}

// Principal is the caller a service acts on behalf of.
type Principal struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
