package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting an access JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Email    string
	FullName string
	Role     enums.UserRole
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	FullName string         `json:"full_name"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the subject and their token version. The
// version must match the value stored on the user row at refresh time, which
// lets a single counter bump revoke every outstanding refresh token at once.
type RefreshTokenClaims struct {
	UserID       uuid.UUID `json:"user_id"`
	TokenVersion int       `json:"token_version"`
	jwt.RegisteredClaims
}
