package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// User represents the canonical identity entity.
//
// RefreshToken and TokenVersion together implement revocation: a refresh token
// is honored only when it matches the stored value AND the version it embeds
// equals TokenVersion. Every logout/password-change path bumps the version.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Username     string         `gorm:"column:username;not null;uniqueIndex"`
	Email        string         `gorm:"column:email;not null;uniqueIndex"`
	FullName     string         `gorm:"column:full_name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;not null;default:'customer'"`

	AvatarURL      string `gorm:"column:avatar_url;not null"`
	AvatarPublicID string `gorm:"column:avatar_public_id;not null"`

	Address types.Address `gorm:"column:address;serializer:json"`

	RefreshToken *string `gorm:"column:refresh_token"`
	TokenVersion int     `gorm:"column:token_version;not null;default:0"`

	IsEmailVerified         bool       `gorm:"column:is_email_verified;not null;default:false"`
	EmailVerificationToken  *string    `gorm:"column:email_verification_token"`
	EmailVerificationExpiry *time.Time `gorm:"column:email_verification_expiry"`
	PasswordResetToken      *string    `gorm:"column:password_reset_token"`
	PasswordResetExpiry     *time.Time `gorm:"column:password_reset_expiry"`
	DeleteAccountToken      *string    `gorm:"column:delete_account_token"`
	DeleteAccountExpiry     *time.Time `gorm:"column:delete_account_expiry"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
