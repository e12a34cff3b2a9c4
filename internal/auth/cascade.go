package auth

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
)

// ConfirmAccountDeletion consumes a deletion token and removes the account.
//
// The user delete is the commit point. Everything after it is best effort:
// review and offer references are anonymized, the cart is dropped and the
// avatar object removed. Failures in those steps are aggregated and logged
// but never surfaced, because the account is already gone.
func (s *service) ConfirmAccountDeletion(ctx context.Context, rawToken string) error {
	user, err := s.consumeTemporaryToken(ctx, enums.TokenKindDeleteAccount, rawToken)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete user")
	}

	var cleanupErr error
	if err := s.ratings.AnonymizeReviewer(ctx, user.ID); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("anonymize ratings: %w", err))
	}
	if err := s.carts.DeleteByUser(ctx, user.ID); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("delete cart: %w", err))
	}
	if user.Role != enums.UserRoleCustomer {
		if err := s.offers.AnonymizeIssuer(ctx, user.ID, s.now()); err != nil {
			cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("anonymize offers: %w", err))
		}
	}
	if user.AvatarPublicID != "" {
		if err := s.store.Delete(ctx, user.AvatarPublicID); err != nil {
			cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("remove avatar: %w", err))
		}
	}

	if cleanupErr != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "account deletion cleanup incomplete", cleanupErr)
	}
	return nil
}
