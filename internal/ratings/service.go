package ratings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

// Service exposes the review operations. Route policy restricts writes to the
// customer role; scoping to the (product, reviewer) pair happens here.
type Service interface {
	AddRating(ctx context.Context, reviewerID, productID uuid.UUID, req AddRatingRequest, images []ImageUpload) (*RatingDTO, error)
	UpdateRating(ctx context.Context, reviewerID, productID uuid.UUID, req UpdateRatingRequest) (*RatingDTO, error)
	DeleteRating(ctx context.Context, reviewerID, productID uuid.UUID) error
	AggregateForProduct(ctx context.Context, productID uuid.UUID) (*ProductAggregate, error)
	GetUserRatings(ctx context.Context, reviewerID uuid.UUID) ([]RatingDTO, error)
}

// ImageUpload carries one inbound review image.
type ImageUpload struct {
	Body        io.Reader
	ContentType string
}

type ratingRepository interface {
	Create(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	FindByPair(ctx context.Context, productID, reviewerID uuid.UUID) (*models.Rating, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Rating, error)
	ListByReviewer(ctx context.Context, reviewerID uuid.UUID) ([]models.Rating, error)
	Save(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     ratingRepository
	products productFinder
	store    storage.ObjectStore
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build a ratings service.
type ServiceParams struct {
	Repo        ratingRepository
	Products    productFinder
	ObjectStore storage.ObjectStore
	Logger      *logger.Logger
}

// NewService constructs a ratings service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rating repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		store:    params.ObjectStore,
		logg:     params.Logger,
	}, nil
}

func (s *service) AddRating(ctx context.Context, reviewerID, productID uuid.UUID, req AddRatingRequest, images []ImageUpload) (*RatingDTO, error) {
	if req.Stars < 1 || req.Stars > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 1 and 5")
	}
	if len(images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one review image is required")
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	if _, err := s.repo.FindByPair(ctx, productID, reviewerID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check rating")
	}

	refs, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	rating := &models.Rating{
		ProductID:    productID,
		ReviewerID:   &reviewerID,
		Stars:        req.Stars,
		ReviewText:   req.ReviewText,
		ReviewImages: refs,
	}
	created, err := s.repo.Create(ctx, rating)
	if err != nil {
		s.removeImages(ctx, refs)
		// The unique index closes the race the pre-check leaves open.
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create rating")
	}
	return FromModel(created), nil
}

func (s *service) UpdateRating(ctx context.Context, reviewerID, productID uuid.UUID, req UpdateRatingRequest) (*RatingDTO, error) {
	rating, err := s.loadPair(ctx, productID, reviewerID)
	if err != nil {
		return nil, err
	}

	if req.Stars != nil {
		if *req.Stars < 1 || *req.Stars > 5 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 1 and 5")
		}
		rating.Stars = *req.Stars
	}
	if req.ReviewText != nil {
		rating.ReviewText = *req.ReviewText
	}

	saved, err := s.repo.Save(ctx, rating)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save rating")
	}
	return FromModel(saved), nil
}

func (s *service) DeleteRating(ctx context.Context, reviewerID, productID uuid.UUID) error {
	rating, err := s.loadPair(ctx, productID, reviewerID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rating.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete rating")
	}

	// The row is gone; image removal is best effort.
	s.removeImages(ctx, rating.ReviewImages)
	return nil
}

// AggregateForProduct reports the average stars rounded to one decimal, the
// review count and the reviews themselves.
func (s *service) AggregateForProduct(ctx context.Context, productID uuid.UUID) (*ProductAggregate, error) {
	ratings, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list ratings")
	}
	if len(ratings) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no ratings for this product")
	}

	sum := 0
	for _, rating := range ratings {
		sum += rating.Stars
	}
	average := math.Round(float64(sum)/float64(len(ratings))*10) / 10

	return &ProductAggregate{
		ProductID:    productID,
		AverageStars: average,
		Count:        len(ratings),
		Ratings:      FromModels(ratings),
	}, nil
}

func (s *service) GetUserRatings(ctx context.Context, reviewerID uuid.UUID) ([]RatingDTO, error) {
	ratings, err := s.repo.ListByReviewer(ctx, reviewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list ratings")
	}
	return FromModels(ratings), nil
}

func (s *service) loadPair(ctx context.Context, productID, reviewerID uuid.UUID) (*models.Rating, error) {
	rating, err := s.repo.FindByPair(ctx, productID, reviewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rating not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load rating")
	}
	return rating, nil
}

func (s *service) uploadImages(ctx context.Context, images []ImageUpload) ([]types.ImageRef, error) {
	refs := make([]types.ImageRef, 0, len(images))
	for _, image := range images {
		if image.Body == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty image upload")
		}
		key := fmt.Sprintf("reviews/%s%s", uuid.NewString(), extensionFor(image.ContentType))
		uploaded, err := s.store.Upload(ctx, key, image.ContentType, image.Body)
		if err != nil {
			s.removeImages(ctx, refs)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage: upload review image")
		}
		refs = append(refs, types.ImageRef{URL: uploaded.URL, PublicID: uploaded.PublicID})
	}
	return refs, nil
}

func (s *service) removeImages(ctx context.Context, refs []types.ImageRef) {
	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref.PublicID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "public_id", ref.PublicID), "failed to remove review image")
		}
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
