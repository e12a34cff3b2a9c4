package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// OrderDTO is the API view of a placed order.
type OrderDTO struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Items           []OrderItemDTO  `json:"items"`
	OfferIDs        []uuid.UUID     `json:"offer_ids,omitempty"`
	DeliveryAddress types.Address   `json:"delivery_address"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	OrderStatus     string          `json:"order_status"`
	PaymentStatus   string          `json:"payment_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItemDTO is one snapshotted order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Label     string          `json:"label"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// FromModel maps an order row to its API view.
func FromModel(o *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Label:     item.Label,
			Color:     item.Color,
			Size:      item.Size,
			Brand:     item.Brand,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		OfferIDs:        o.OfferIDs,
		DeliveryAddress: o.DeliveryAddress,
		TotalPrice:      o.TotalPrice,
		TotalPayable:    o.TotalPayable,
		OrderStatus:     o.OrderStatus.String(),
		PaymentStatus:   o.PaymentStatus.String(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// FromModels maps a result set to API views.
func FromModels(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, *FromModel(&orders[i]))
	}
	return out
}

// CreateOrderRequest carries the offers applied at checkout. The items and
// delivery address come from the server-side cart and profile.
type CreateOrderRequest struct {
	OfferIDs []uuid.UUID `json:"offer_ids"`
}

// UpdateStatusRequest carries a fulfillment status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
