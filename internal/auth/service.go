package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/internal/users"
	pkgauth "github.com/bazaarly/bazaarly-backend/pkg/auth"
	"github.com/bazaarly/bazaarly-backend/pkg/config"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/mailer"
	"github.com/bazaarly/bazaarly-backend/pkg/security"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the identity and token operations used by the controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest, avatar AvatarUpload) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) (*TokenPair, error)
	VerifyEmail(ctx context.Context, rawToken string) (*users.UserDTO, error)
	ResendEmailVerification(ctx context.Context, userID uuid.UUID) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest) error
	RequestAccountDeletion(ctx context.Context, userID uuid.UUID) error
	ConfirmAccountDeletion(ctx context.Context, rawToken string) error
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByTokenDigest(ctx context.Context, kind enums.TokenKind, digest string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	RevokeSessions(ctx context.Context, id uuid.UUID) error
	SetTokenDigest(ctx context.Context, id uuid.UUID, kind enums.TokenKind, digest *string, expiry *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ratingAnonymizer interface {
	AnonymizeReviewer(ctx context.Context, reviewerID uuid.UUID) error
}

type offerAnonymizer interface {
	AnonymizeIssuer(ctx context.Context, issuerID uuid.UUID, expireAt time.Time) error
}

type cartRemover interface {
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	users       userRepository
	ratings     ratingAnonymizer
	offers      offerAnonymizer
	carts       cartRemover
	store       storage.ObjectStore
	mail        mailer.Mailer
	logg        *logger.Logger
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	tokenCfg    config.TokenConfig
	frontend    config.FrontendConfig
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users       userRepository
	Ratings     ratingAnonymizer
	Offers      offerAnonymizer
	Carts       cartRemover
	ObjectStore storage.ObjectStore
	Mailer      mailer.Mailer
	Logger      *logger.Logger
	JWT         config.JWTConfig
	Password    config.PasswordConfig
	Token       config.TokenConfig
	Frontend    config.FrontendConfig
	Now         func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Ratings == nil {
		return nil, fmt.Errorf("rating anonymizer is required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offer anonymizer is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart remover is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.Users,
		ratings:     params.Ratings,
		offers:      params.Offers,
		carts:       params.Carts,
		store:       params.ObjectStore,
		mail:        params.Mailer,
		logg:        params.Logger,
		jwtCfg:      params.JWT,
		passwordCfg: params.Password,
		tokenCfg:    params.Token,
		frontend:    params.Frontend,
		now:         now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		TokenPair: *pair,
		User:      users.FromModel(user),
	}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := pkgauth.ParseRefreshToken(s.jwtCfg, s.now(), refreshToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	// Both checks must hold: the stored token matches the presented one and
	// the embedded version matches the user's counter. Bumping the counter
	// revokes every outstanding refresh token without a blocklist.
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "refresh token superseded")
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "refresh token revoked")
	}

	return s.issueTokenPair(ctx, user)
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.RevokeSessions(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: revoke sessions")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) (*TokenPair, error) {
	if req.NewPassword != req.ConfirmPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new password and confirmation do not match")
	}
	if req.OldPassword == req.NewPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the old one")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := security.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "old password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user.PasswordHash = hash
	if _, err := s.users.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}

	// Invalidate sessions minted under the old password, then hand the
	// caller a fresh pair so they stay logged in.
	if err := s.users.RevokeSessions(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: revoke sessions")
	}
	user, err = s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueTokenPair(ctx, user)
}

func (s *service) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := s.now()

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refreshToken, err := pkgauth.MintRefreshToken(s.jwtCfg, now, user.ID, user.TokenVersion)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store refresh token")
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

// sendMailAsync fires the mail off the request path. Failures are logged and
// never surfaced to the caller.
func (s *service) sendMailAsync(ctx context.Context, kind string, send func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := send(detached); err != nil {
			s.logg.Error(s.logg.WithField(detached, "mail_kind", kind), "sending mail failed", err)
		}
	}()
}
