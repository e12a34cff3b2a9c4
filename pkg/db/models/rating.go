package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// Rating is a customer review of a product. ReviewerID is nullable so reviews
// outlive their author; a deleted reviewer leaves the rating anonymized. The
// (product, reviewer) pair is unique while the reviewer exists.
type Rating struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_reviewer"`
	ReviewerID   *uuid.UUID       `gorm:"column:reviewer_id;type:uuid;uniqueIndex:idx_product_reviewer"`
	Stars        int              `gorm:"column:stars;not null;check:stars >= 1 AND stars <= 5"`
	ReviewText   string           `gorm:"column:review_text;type:text"`
	ReviewImages []types.ImageRef `gorm:"column:review_images;serializer:json"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
