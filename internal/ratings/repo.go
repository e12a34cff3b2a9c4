package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
)

// Repository persists product ratings.
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

func (r *Repository) Create(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	if err := r.db.WithContext(ctx).Create(rating).Error; err != nil {
		return nil, err
	}
	return rating, nil
}

func (r *Repository) FindByPair(ctx context.Context, productID, reviewerID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND reviewer_id = ?", productID, reviewerID).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *Repository) ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Order("created_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *Repository) Save(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	if err := r.db.WithContext(ctx).Save(rating).Error; err != nil {
		return nil, err
	}
	return rating, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Rating{}, "id = ?", id).Error
}

// AnonymizeReviewer detaches every rating of the reviewer. The reviews stay
// published without an author. Used by the account deletion cascade.
func (r *Repository) AnonymizeReviewer(ctx context.Context, reviewerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("reviewer_id = ?", reviewerID).
		Update("reviewer_id", nil).Error
}
