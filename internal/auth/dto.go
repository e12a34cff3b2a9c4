package auth

import (
	"io"

	"github.com/bazaarly/bazaarly-backend/internal/users"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// RegisterRequest captures the multipart form fields of a signup.
type RegisterRequest struct {
	Username string        `json:"username" validate:"required,min=3,max=60"`
	Email    string        `json:"email" validate:"required,email"`
	FullName string        `json:"full_name" validate:"required"`
	Password string        `json:"password" validate:"required,min=8"`
	Role     string        `json:"role" validate:"omitempty,oneof=customer seller admin"`
	Address  types.Address `json:"address"`
}

// AvatarUpload carries the mandatory signup avatar image.
type AvatarUpload struct {
	Body        io.Reader
	ContentType string
}

// LoginRequest accepts a username or email as the identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest carries a password rotation for a logged-in user.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ForgotPasswordRequest starts the emailed reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the emailed reset flow.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// TokenPair bundles a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
