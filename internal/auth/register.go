package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/internal/users"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/security"
)

// Register onboards a user, uploads the mandatory avatar and kicks off email
// verification.
func (s *service) Register(ctx context.Context, req RegisterRequest, avatar AvatarUpload) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || email == "" || fullName == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields")
	}
	if avatar.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar file is required")
	}

	role := enums.UserRoleCustomer
	if req.Role != "" {
		parsed, err := enums.ParseUserRole(req.Role)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		role = parsed
	}

	if err := s.ensureIdentityFree(ctx, username, email); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	key := fmt.Sprintf("avatars/%s%s", uuid.NewString(), extensionFor(avatar.ContentType))
	uploaded, err := s.store.Upload(ctx, key, avatar.ContentType, avatar.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage: upload avatar")
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		PasswordHash:   passwordHash,
		Role:           role,
		AvatarURL:      uploaded.URL,
		AvatarPublicID: uploaded.PublicID,
		Address:        req.Address.Normalize(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		// The avatar is orphaned if the insert lost a race; clean it up.
		if delErr := s.store.Delete(ctx, uploaded.PublicID); delErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "public_id", uploaded.PublicID), "failed to remove orphaned avatar")
		}
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}

	if err := s.issueVerificationEmail(ctx, created); err != nil {
		// The account exists; verification can be re-requested later.
		s.logg.Error(s.logg.WithUserID(ctx, created.ID.String()), "issuing verification token failed", err)
	}

	return users.FromModel(created), nil
}

func (s *service) ensureIdentityFree(ctx context.Context, username, email string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "username not available")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check username")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
