package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// CartDTO is the public view of a cart. The owning user is implied by the
// authenticated request and never echoed back.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	Items      []CartItemDTO   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CartItemDTO is a single cart line.
type CartItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// FromModel maps a cart row to its public view.
func FromModel(c *models.Cart) *CartDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return &CartDTO{
		ID:         c.ID,
		Items:      items,
		TotalPrice: c.TotalPrice,
		UpdatedAt:  c.UpdatedAt,
	}
}

// AddItemRequest carries a product reference and the quantity to add.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// ChangeQuantityRequest carries a signed delta for an existing line.
type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}
