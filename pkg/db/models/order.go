package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// Order is an immutable snapshot taken from the cart at placement time. Items,
// prices and the delivery address are copied, never referenced, so later edits
// to products or the user's saved address leave placed orders untouched.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	OfferIDs        []uuid.UUID         `gorm:"column:offer_ids;serializer:json"`
	DeliveryAddress types.Address       `gorm:"column:delivery_address;serializer:json"`
	TotalPrice      decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	TotalPayable    decimal.Decimal     `gorm:"column:total_payable;type:numeric(12,2);not null"`
	OrderStatus     enums.OrderStatus   `gorm:"column:order_status;type:varchar(20);not null;default:'confirmed';index"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:varchar(20);not null;default:'pending'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one snapshotted line of an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Label     string          `gorm:"column:label;type:varchar(255);not null"`
	Color     string          `gorm:"column:color;type:varchar(60)"`
	Size      string          `gorm:"column:size;type:varchar(60)"`
	Brand     string          `gorm:"column:brand;type:varchar(120)"`
	ImageURL  string          `gorm:"column:image_url;type:varchar(512)"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}
