package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// Service exposes profile operations for the authenticated user.
type Service interface {
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateAccountDetails(ctx context.Context, userID uuid.UUID, input UpdateAccountInput) (*UserDTO, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (*UserDTO, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error)
}

// UpdateAccountInput carries the optional fields of an account update.
type UpdateAccountInput struct {
	Username *string
	FullName *string
}

// AvatarUpload carries one inbound avatar image.
type AvatarUpload struct {
	Body        io.Reader
	ContentType string
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
}

type service struct {
	repo  userRepository
	store storage.ObjectStore
	logg  *logger.Logger
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo        userRepository
	ObjectStore storage.ObjectStore
	Logger      *logger.Logger
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:  params.Repo,
		store: params.ObjectStore,
		logg:  params.Logger,
	}, nil
}

func (s *service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, input UpdateAccountInput) (*UserDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		if username != user.Username {
			if err := s.ensureUsernameFree(ctx, username); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be empty")
		}
		user.FullName = fullName
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}
	return FromModel(saved), nil
}

func (s *service) UpdateAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (*UserDTO, error) {
	if upload.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar file is required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), extensionFor(upload.ContentType))
	uploaded, err := s.store.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage: upload avatar")
	}

	previousID := user.AvatarPublicID
	user.AvatarURL = uploaded.URL
	user.AvatarPublicID = uploaded.PublicID

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}

	// Old avatar removal is best effort; the new one is already live.
	if previousID != "" {
		if err := s.store.Delete(ctx, previousID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "public_id", previousID), "failed to remove previous avatar")
		}
	}

	return FromModel(saved), nil
}

func (s *service) UpdateAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*UserDTO, error) {
	if address.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	address = address.Normalize()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Address = address
	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}
	return FromModel(saved), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

func (s *service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check username")
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
