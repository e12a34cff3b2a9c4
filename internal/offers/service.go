package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

// Service exposes the promotional offer operations. Route policy restricts
// the mutations to non-customer roles.
type Service interface {
	CreateOffer(ctx context.Context, issuerID uuid.UUID, req CreateOfferRequest) (*OfferDTO, error)
	UpdateOffer(ctx context.Context, id uuid.UUID, req UpdateOfferRequest) (*OfferDTO, error)
	DeleteOffer(ctx context.Context, id uuid.UUID) error
	ListActiveOffers(ctx context.Context) ([]OfferDTO, error)
}

type offerRepository interface {
	Create(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindActiveByStatement(ctx context.Context, statement string, now time.Time) (*models.Offer, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Offer, error)
	Save(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo offerRepository
	logg *logger.Logger
	now  func() time.Time
}

// ServiceParams bundles the dependencies required to build an offers service.
type ServiceParams struct {
	Repo   offerRepository
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService constructs an offers service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("offer repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo: params.Repo,
		logg: params.Logger,
		now:  now,
	}, nil
}

func (s *service) CreateOffer(ctx context.Context, issuerID uuid.UUID, req CreateOfferRequest) (*OfferDTO, error) {
	statement := strings.TrimSpace(req.Statement)
	if statement == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "statement is required")
	}
	if err := validateDiscount(req.DiscountPercent); err != nil {
		return nil, err
	}
	issuerRole, err := enums.ParseOfferIssuerRole(req.IssuerRole)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid issuer role")
	}
	expiresAt, err := s.parseFutureExpiry(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.ensureStatementFree(ctx, statement, uuid.Nil); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		Statement:       statement,
		DiscountPercent: req.DiscountPercent,
		ExpiresAt:       expiresAt,
		IssuerRole:      issuerRole,
		IssuerID:        &issuerID,
	}
	created, err := s.repo.Create(ctx, offer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create offer")
	}
	return FromModel(created), nil
}

func (s *service) UpdateOffer(ctx context.Context, id uuid.UUID, req UpdateOfferRequest) (*OfferDTO, error) {
	offer, err := s.loadOffer(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Statement != nil {
		statement := strings.TrimSpace(*req.Statement)
		if statement == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "statement cannot be empty")
		}
		if statement != offer.Statement {
			if err := s.ensureStatementFree(ctx, statement, offer.ID); err != nil {
				return nil, err
			}
			offer.Statement = statement
		}
	}
	if req.DiscountPercent != nil {
		if err := validateDiscount(*req.DiscountPercent); err != nil {
			return nil, err
		}
		offer.DiscountPercent = *req.DiscountPercent
	}
	if req.ExpiresAt != nil {
		expiresAt, err := s.parseFutureExpiry(*req.ExpiresAt)
		if err != nil {
			return nil, err
		}
		offer.ExpiresAt = expiresAt
	}

	saved, err := s.repo.Save(ctx, offer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save offer")
	}
	return FromModel(saved), nil
}

func (s *service) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadOffer(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete offer")
	}
	return nil
}

func (s *service) ListActiveOffers(ctx context.Context) ([]OfferDTO, error) {
	offers, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list offers")
	}
	return FromModels(offers), nil
}

func (s *service) loadOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load offer")
	}
	return offer, nil
}

// ensureStatementFree rejects a statement already carried by another
// still-active offer. Expired offers may recycle their statements.
func (s *service) ensureStatementFree(ctx context.Context, statement string, selfID uuid.UUID) error {
	existing, err := s.repo.FindActiveByStatement(ctx, statement, s.now())
	if err == nil {
		if existing.ID == selfID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "an active offer with this statement already exists")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check statement")
}

func (s *service) parseFutureExpiry(raw string) (time.Time, error) {
	expiresAt, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expires_at must be RFC 3339")
	}
	if !expiresAt.After(s.now()) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expires_at must be in the future")
	}
	return expiresAt, nil
}

func validateDiscount(percent decimal.Decimal) error {
	if !percent.IsPositive() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}
	return nil
}
