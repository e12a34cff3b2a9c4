package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// UserDTO is the transport shape that omits credentials and token columns.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	FullName        string         `json:"full_name"`
	Role            string         `json:"role"`
	AvatarURL       string         `json:"avatar_url,omitempty"`
	Address         *types.Address `json:"address,omitempty"`
	IsEmailVerified bool           `json:"is_email_verified"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// FromModel maps a persisted user onto the public DTO.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	dto := &UserDTO{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role.String(),
		AvatarURL:       u.AvatarURL,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if !u.Address.IsZero() {
		addr := u.Address
		dto.Address = &addr
	}
	return dto
}
