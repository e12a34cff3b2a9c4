package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
)

// Offer is a percentage discount applicable at checkout. IssuerID is nullable
// so that offers survive the deletion of the seller or admin who issued them;
// anonymized offers are also force-expired at deletion time.
type Offer struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Statement       string                `gorm:"column:statement;type:varchar(255);not null"`
	DiscountPercent decimal.Decimal       `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	ExpiresAt       time.Time             `gorm:"column:expires_at;not null;index"`
	IssuerRole      enums.OfferIssuerRole `gorm:"column:issuer_role;type:varchar(20);not null"`
	IssuerID        *uuid.UUID            `gorm:"column:issuer_id;type:uuid;index"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the offer can still be applied.
func (o *Offer) IsActive(now time.Time) bool {
	return o.ExpiresAt.After(now)
}
