package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// Repository persists promotional offers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// FindActiveByStatement looks up a still-active offer carrying the statement.
func (r *Repository) FindActiveByStatement(ctx context.Context, statement string, now time.Time) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("statement = ? AND expires_at > ?", statement, now).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("expires_at > ?", now).
		Order("expires_at ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *Repository) Save(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := r.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Offer{}, "id = ?", id).Error
}

// AnonymizeIssuer detaches every offer of the issuer and force-expires them.
// Used by the account deletion cascade.
func (r *Repository) AnonymizeIssuer(ctx context.Context, issuerID uuid.UUID, expireAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("issuer_id = ?", issuerID).
		Updates(map[string]any{
			"issuer_id":  nil,
			"expires_at": expireAt,
		}).Error
}
