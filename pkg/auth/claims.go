package auth

import (
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.SystemRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email,omitempty"`
	Role   enums.SystemRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the admin system role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.SystemRoleAdmin
}
