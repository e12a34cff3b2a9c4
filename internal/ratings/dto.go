package ratings

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// RatingDTO is the public view of a review. A nil reviewer marks an
// anonymized review whose author deleted their account.
type RatingDTO struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  uuid.UUID  `json:"product_id"`
	ReviewerID *uuid.UUID `json:"reviewer_id,omitempty"`
	Stars      int        `json:"stars"`
	ReviewText string     `json:"review_text,omitempty"`
	ImageURLs  []string   `json:"image_urls"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FromModel maps a rating row to its public view.
func FromModel(r *models.Rating) *RatingDTO {
	urls := make([]string, 0, len(r.ReviewImages))
	for _, image := range r.ReviewImages {
		urls = append(urls, image.URL)
	}
	return &RatingDTO{
		ID:         r.ID,
		ProductID:  r.ProductID,
		ReviewerID: r.ReviewerID,
		Stars:      r.Stars,
		ReviewText: r.ReviewText,
		ImageURLs:  urls,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// FromModels maps a result set to public views.
func FromModels(ratings []models.Rating) []RatingDTO {
	out := make([]RatingDTO, 0, len(ratings))
	for i := range ratings {
		out = append(out, *FromModel(&ratings[i]))
	}
	return out
}

// ProductAggregate summarizes a product's reviews.
type ProductAggregate struct {
	ProductID    uuid.UUID   `json:"product_id"`
	AverageStars float64     `json:"average_stars"`
	Count        int         `json:"count"`
	Ratings      []RatingDTO `json:"ratings"`
}

// AddRatingRequest carries a new review.
type AddRatingRequest struct {
	Stars      int    `json:"stars" validate:"required,gte=1,lte=5"`
	ReviewText string `json:"review_text"`
}

// UpdateRatingRequest carries a partial review update.
type UpdateRatingRequest struct {
	Stars      *int    `json:"stars" validate:"omitempty,gte=1,lte=5"`
	ReviewText *string `json:"review_text"`
}
