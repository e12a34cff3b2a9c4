package offers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// OfferDTO is the public view of a promotional offer.
type OfferDTO struct {
	ID              uuid.UUID       `json:"id"`
	Statement       string          `json:"statement"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at"`
	IssuerRole      string          `json:"issuer_role"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FromModel maps an offer row to its public view.
func FromModel(o *models.Offer) *OfferDTO {
	return &OfferDTO{
		ID:              o.ID,
		Statement:       o.Statement,
		DiscountPercent: o.DiscountPercent,
		ExpiresAt:       o.ExpiresAt,
		IssuerRole:      o.IssuerRole.String(),
		CreatedAt:       o.CreatedAt,
	}
}

// FromModels maps a result set to public views.
func FromModels(offers []models.Offer) []OfferDTO {
	out := make([]OfferDTO, 0, len(offers))
	for i := range offers {
		out = append(out, *FromModel(&offers[i]))
	}
	return out
}

// CreateOfferRequest carries a new offer. ExpiresAt is RFC 3339 and must lie
// in the future.
type CreateOfferRequest struct {
	Statement       string          `json:"statement" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"required"`
	ExpiresAt       string          `json:"expires_at" validate:"required"`
	IssuerRole      string          `json:"issuer_role" validate:"required,oneof=seller brand"`
}

// UpdateOfferRequest carries a partial offer update.
type UpdateOfferRequest struct {
	Statement       *string          `json:"statement"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	ExpiresAt       *string          `json:"expires_at"`
}
