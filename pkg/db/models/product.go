package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a seller listing.
//
// IsAvailable caches stock >= 1 and must be recomputed on every stock write;
// it is a derived field, never authoritative.
type Product struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Label    string    `gorm:"column:label;not null"`
	Color    string    `gorm:"column:color"`
	Size     string    `gorm:"column:size"`
	Material string    `gorm:"column:material"`
	Category string    `gorm:"column:category;not null;index"`
	Brand    string    `gorm:"column:brand;index"`

	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`

	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Stock       int             `gorm:"column:stock;not null"`
	IsAvailable bool            `gorm:"column:is_available;not null;default:true;index"`

	ImageURLs      []string `gorm:"column:image_urls;serializer:json"`
	ImagePublicIDs []string `gorm:"column:image_public_ids;serializer:json"`

	WarrantyMonths int `gorm:"column:warranty_months;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RecomputeAvailability refreshes the cached availability flag from stock.
func (p *Product) RecomputeAvailability() {
	p.IsAvailable = p.Stock >= 1
}
