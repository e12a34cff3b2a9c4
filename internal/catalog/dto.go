package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// ProductDTO is the public projection of a listing. Stock levels and storage
// handles stay server-side.
type ProductDTO struct {
	ID             uuid.UUID       `json:"id"`
	Label          string          `json:"label"`
	Color          string          `json:"color,omitempty"`
	Size           string          `json:"size,omitempty"`
	Material       string          `json:"material,omitempty"`
	Category       string          `json:"category"`
	Brand          string          `json:"brand,omitempty"`
	SellerID       uuid.UUID       `json:"seller_id"`
	Price          decimal.Decimal `json:"price"`
	IsAvailable    bool            `json:"is_available"`
	ImageURLs      []string        `json:"image_urls"`
	WarrantyMonths int             `json:"warranty_months"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FromModel maps a product row to its public projection.
func FromModel(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:             p.ID,
		Label:          p.Label,
		Color:          p.Color,
		Size:           p.Size,
		Material:       p.Material,
		Category:       p.Category,
		Brand:          p.Brand,
		SellerID:       p.SellerID,
		Price:          p.Price,
		IsAvailable:    p.IsAvailable,
		ImageURLs:      p.ImageURLs,
		WarrantyMonths: p.WarrantyMonths,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// FromModels maps a result set to public projections.
func FromModels(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *FromModel(&products[i]))
	}
	return out
}

// AddProductRequest carries a new listing.
type AddProductRequest struct {
	Label          string          `json:"label" validate:"required"`
	Color          string          `json:"color"`
	Size           string          `json:"size"`
	Material       string          `json:"material"`
	Category       string          `json:"category" validate:"required"`
	Brand          string          `json:"brand"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	Stock          int             `json:"stock" validate:"gte=0"`
	WarrantyMonths int             `json:"warranty_months" validate:"gte=0"`
}

// UpdateProductRequest carries a partial listing update. Nil fields are left
// untouched.
type UpdateProductRequest struct {
	Label          *string          `json:"label"`
	Color          *string          `json:"color"`
	Size           *string          `json:"size"`
	Material       *string          `json:"material"`
	Category       *string          `json:"category"`
	Brand          *string          `json:"brand"`
	Price          *decimal.Decimal `json:"price"`
	Stock          *int             `json:"stock" validate:"omitempty,gte=0"`
	WarrantyMonths *int             `json:"warranty_months" validate:"omitempty,gte=0"`
}
