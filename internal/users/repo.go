package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier retrieves the user whose username or email matches the
// provided login identifier.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername retrieves the user holding the given username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByTokenDigest looks up the user holding the digest of a temporary token
// in the column matching the token kind.
func (r *Repository) FindByTokenDigest(ctx context.Context, kind enums.TokenKind, digest string) (*models.User, error) {
	column, err := tokenColumn(kind)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", digest).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Save persists the full user row.
func (r *Repository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetRefreshToken stores (or clears, with nil) the user's refresh token.
func (r *Repository) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token", token).Error
}

// RevokeSessions bumps the token version and clears the stored refresh token,
// invalidating every refresh token minted before this call.
func (r *Repository) RevokeSessions(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"token_version": gorm.Expr("token_version + 1"),
			"refresh_token": nil,
		}).Error
}

// SetTokenDigest stores a temporary token digest and expiry on the column for
// the given kind. A nil digest clears the slot.
func (r *Repository) SetTokenDigest(ctx context.Context, id uuid.UUID, kind enums.TokenKind, digest *string, expiry *time.Time) error {
	column, err := tokenColumn(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			column:                  digest,
			tokenExpiryColumn(kind): expiry,
		}).Error
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}

func tokenColumn(kind enums.TokenKind) (string, error) {
	switch kind {
	case enums.TokenKindVerifyEmail:
		return "email_verification_token", nil
	case enums.TokenKindResetPassword:
		return "password_reset_token", nil
	case enums.TokenKindDeleteAccount:
		return "delete_account_token", nil
	default:
		return "", gorm.ErrInvalidField
	}
}

func tokenExpiryColumn(kind enums.TokenKind) string {
	switch kind {
	case enums.TokenKindVerifyEmail:
		return "email_verification_expiry"
	case enums.TokenKindResetPassword:
		return "password_reset_expiry"
	default:
		return "delete_account_expiry"
	}
}
