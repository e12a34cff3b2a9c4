package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/internal/users"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/security"
	"github.com/google/uuid"
)

// VerifyEmail consumes a verification token and marks the account verified.
func (s *service) VerifyEmail(ctx context.Context, rawToken string) (*users.UserDTO, error) {
	user, err := s.consumeTemporaryToken(ctx, enums.TokenKindVerifyEmail, rawToken)
	if err != nil {
		return nil, err
	}

	user.IsEmailVerified = true
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}
	return users.FromModel(saved), nil
}

// ResendEmailVerification issues a fresh verification token for an
// unverified account.
func (s *service) ResendEmailVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "email is already verified")
	}
	return s.issueVerificationEmail(ctx, user)
}

// ForgotPassword issues a reset token for the account holding the email.
func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	token, err := s.issueTemporaryToken(ctx, user, enums.TokenKindResetPassword)
	if err != nil {
		return err
	}

	link := s.frontend.ResetPasswordURL(token)
	s.sendMailAsync(ctx, "password_reset", func(mailCtx context.Context) error {
		return s.mail.SendPasswordResetEmail(mailCtx, user.Email, user.FullName, link)
	})
	return nil
}

// ResetPassword consumes a reset token, stores the new hash and revokes all
// outstanding sessions.
func (s *service) ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest) error {
	user, err := s.consumeTemporaryToken(ctx, enums.TokenKindResetPassword, rawToken)
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user.PasswordHash = hash
	if _, err := s.users.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save user")
	}
	if err := s.users.RevokeSessions(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: revoke sessions")
	}
	return nil
}

// RequestAccountDeletion mails a confirmation link to the account owner.
func (s *service) RequestAccountDeletion(ctx context.Context, userID uuid.UUID) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	token, err := s.issueTemporaryToken(ctx, user, enums.TokenKindDeleteAccount)
	if err != nil {
		return err
	}

	link := s.frontend.DeleteAccountURL(token)
	s.sendMailAsync(ctx, "account_deletion", func(mailCtx context.Context) error {
		return s.mail.SendAccountDeletionEmail(mailCtx, user.Email, user.FullName, link)
	})
	return nil
}

func (s *service) issueVerificationEmail(ctx context.Context, user *models.User) error {
	token, err := s.issueTemporaryToken(ctx, user, enums.TokenKindVerifyEmail)
	if err != nil {
		return err
	}

	link := s.frontend.VerifyEmailURL(token)
	s.sendMailAsync(ctx, "verification", func(mailCtx context.Context) error {
		return s.mail.SendVerificationEmail(mailCtx, user.Email, user.FullName, link)
	})
	return nil
}

// issueTemporaryToken stores the digest of a fresh single-use token in the
// slot for its kind and returns the raw value for the mailed link.
func (s *service) issueTemporaryToken(ctx context.Context, user *models.User, kind enums.TokenKind) (string, error) {
	token, err := security.NewTemporaryToken(s.now(), s.tokenCfg.TemporaryTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate token")
	}

	if err := s.users.SetTokenDigest(ctx, user.ID, kind, &token.Digest, &token.ExpiresAt); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store token digest")
	}
	return token.Raw, nil
}

// consumeTemporaryToken resolves a raw token to its user, enforces expiry and
// clears the digest so the token cannot be replayed.
func (s *service) consumeTemporaryToken(ctx context.Context, kind enums.TokenKind, rawToken string) (*models.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	digest := security.DigestToken(rawToken)
	user, err := s.users.FindByTokenDigest(ctx, kind, digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "token is invalid or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve token")
	}

	expiry := tokenExpiry(user, kind)
	if expiry == nil || s.now().After(*expiry) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "token is invalid or expired")
	}

	if err := s.users.SetTokenDigest(ctx, user.ID, kind, nil, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear token digest")
	}
	return user, nil
}

func tokenExpiry(user *models.User, kind enums.TokenKind) *time.Time {
	switch kind {
	case enums.TokenKindVerifyEmail:
		return user.EmailVerificationExpiry
	case enums.TokenKindResetPassword:
		return user.PasswordResetExpiry
	default:
		return user.DeleteAccountExpiry
	}
}
