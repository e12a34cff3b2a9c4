package ratings

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
)

type stubRatingRepo struct {
	ratings map[uuid.UUID]*models.Rating
}

func newStubRatingRepo() *stubRatingRepo {
	return &stubRatingRepo{ratings: map[uuid.UUID]*models.Rating{}}
}

func (r *stubRatingRepo) Create(_ context.Context, rating *models.Rating) (*models.Rating, error) {
	if rating.ID == uuid.Nil {
		rating.ID = uuid.New()
	}
	r.ratings[rating.ID] = rating
	return rating, nil
}

func (r *stubRatingRepo) FindByPair(_ context.Context, productID, reviewerID uuid.UUID) (*models.Rating, error) {
	for _, rating := range r.ratings {
		if rating.ProductID == productID && rating.ReviewerID != nil && *rating.ReviewerID == reviewerID {
			return rating, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRatingRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]models.Rating, error) {
	var out []models.Rating
	for _, rating := range r.ratings {
		if rating.ProductID == productID {
			out = append(out, *rating)
		}
	}
	return out, nil
}

func (r *stubRatingRepo) ListByReviewer(_ context.Context, reviewerID uuid.UUID) ([]models.Rating, error) {
	var out []models.Rating
	for _, rating := range r.ratings {
		if rating.ReviewerID != nil && *rating.ReviewerID == reviewerID {
			out = append(out, *rating)
		}
	}
	return out, nil
}

func (r *stubRatingRepo) Save(_ context.Context, rating *models.Rating) (*models.Rating, error) {
	r.ratings[rating.ID] = rating
	return rating, nil
}

func (r *stubRatingRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.ratings, id)
	return nil
}

type stubProductCatalog struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubReviewStore struct {
	uploads []string
	deletes []string
}

func (s *stubReviewStore) Upload(_ context.Context, key, _ string, _ io.Reader) (storage.UploadedObject, error) {
	s.uploads = append(s.uploads, key)
	return storage.UploadedObject{URL: "https://cdn.test/" + key, PublicID: key}, nil
}

func (s *stubReviewStore) Delete(_ context.Context, publicID string) error {
	s.deletes = append(s.deletes, publicID)
	return nil
}

type ratingsFixture struct {
	svc       Service
	repo      *stubRatingRepo
	store     *stubReviewStore
	productID uuid.UUID
}

func newRatingsFixture(t *testing.T) *ratingsFixture {
	t.Helper()

	productID := uuid.New()
	f := &ratingsFixture{
		repo:      newStubRatingRepo(),
		store:     &stubReviewStore{},
		productID: productID,
	}
	svc, err := NewService(ServiceParams{
		Repo: f.repo,
		Products: &stubProductCatalog{products: map[uuid.UUID]*models.Product{
			productID: {ID: productID, Label: "Linen Shirt", Category: "apparel"},
		}},
		ObjectStore: f.store,
		Logger:      logger.New(logger.Options{ServiceName: "ratings-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func reviewImage() []ImageUpload {
	return []ImageUpload{{Body: strings.NewReader("img"), ContentType: "image/jpeg"}}
}

func demandCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	if got := pkgerrors.As(err).Code(); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func TestAddRating(t *testing.T) {
	t.Run("stars out of range", func(t *testing.T) {
		f := newRatingsFixture(t)
		for _, stars := range []int{0, 6} {
			_, err := f.svc.AddRating(context.Background(), uuid.New(), f.productID, AddRatingRequest{Stars: stars}, reviewImage())
			demandCode(t, err, pkgerrors.CodeValidation)
		}
	})

	t.Run("image required", func(t *testing.T) {
		f := newRatingsFixture(t)
		_, err := f.svc.AddRating(context.Background(), uuid.New(), f.productID, AddRatingRequest{Stars: 4}, nil)
		demandCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newRatingsFixture(t)
		_, err := f.svc.AddRating(context.Background(), uuid.New(), uuid.New(), AddRatingRequest{Stars: 4}, reviewImage())
		demandCode(t, err, pkgerrors.CodeNotFound)
	})

	t.Run("second review of the same product conflicts", func(t *testing.T) {
		f := newRatingsFixture(t)
		reviewerID := uuid.New()

		dto, err := f.svc.AddRating(context.Background(), reviewerID, f.productID, AddRatingRequest{Stars: 4, ReviewText: "solid"}, reviewImage())
		if err != nil {
			t.Fatalf("AddRating: %v", err)
		}
		if len(dto.ImageURLs) != 1 || !strings.Contains(dto.ImageURLs[0], "reviews/") {
			t.Fatalf("unexpected image urls %v", dto.ImageURLs)
		}

		_, err = f.svc.AddRating(context.Background(), reviewerID, f.productID, AddRatingRequest{Stars: 2}, reviewImage())
		demandCode(t, err, pkgerrors.CodeConflict)
	})
}

func TestUpdateRatingScopedToPair(t *testing.T) {
	f := newRatingsFixture(t)
	reviewerID := uuid.New()

	if _, err := f.svc.AddRating(context.Background(), reviewerID, f.productID, AddRatingRequest{Stars: 4}, reviewImage()); err != nil {
		t.Fatalf("AddRating: %v", err)
	}

	// Another customer cannot touch the review.
	stars := 1
	_, err := f.svc.UpdateRating(context.Background(), uuid.New(), f.productID, UpdateRatingRequest{Stars: &stars})
	demandCode(t, err, pkgerrors.CodeNotFound)

	five := 5
	text := "even better after a wash"
	dto, err := f.svc.UpdateRating(context.Background(), reviewerID, f.productID, UpdateRatingRequest{Stars: &five, ReviewText: &text})
	if err != nil {
		t.Fatalf("UpdateRating: %v", err)
	}
	if dto.Stars != 5 || dto.ReviewText != text {
		t.Fatalf("unexpected update %+v", dto)
	}
}

func TestDeleteRatingRemovesImages(t *testing.T) {
	f := newRatingsFixture(t)
	reviewerID := uuid.New()

	if _, err := f.svc.AddRating(context.Background(), reviewerID, f.productID, AddRatingRequest{Stars: 3}, reviewImage()); err != nil {
		t.Fatalf("AddRating: %v", err)
	}

	err := f.svc.DeleteRating(context.Background(), uuid.New(), f.productID)
	demandCode(t, err, pkgerrors.CodeNotFound)

	if err := f.svc.DeleteRating(context.Background(), reviewerID, f.productID); err != nil {
		t.Fatalf("DeleteRating: %v", err)
	}
	if len(f.store.deletes) != 1 {
		t.Fatalf("expected the review image to be removed, got %v", f.store.deletes)
	}
}

func TestAggregateForProduct(t *testing.T) {
	f := newRatingsFixture(t)

	_, err := f.svc.AggregateForProduct(context.Background(), f.productID)
	demandCode(t, err, pkgerrors.CodeNotFound)

	for _, stars := range []int{5, 4, 4} {
		if _, err := f.svc.AddRating(context.Background(), uuid.New(), f.productID, AddRatingRequest{Stars: stars}, reviewImage()); err != nil {
			t.Fatalf("AddRating: %v", err)
		}
	}

	aggregate, err := f.svc.AggregateForProduct(context.Background(), f.productID)
	if err != nil {
		t.Fatalf("AggregateForProduct: %v", err)
	}
	if aggregate.Count != 3 {
		t.Fatalf("expected 3 reviews, got %d", aggregate.Count)
	}
	// 13/3 = 4.333..., rounded to one decimal.
	if aggregate.AverageStars != 4.3 {
		t.Fatalf("expected average 4.3, got %v", aggregate.AverageStars)
	}
	if len(aggregate.Ratings) != 3 {
		t.Fatalf("expected the reviews inline, got %d", len(aggregate.Ratings))
	}
}

func TestGetUserRatings(t *testing.T) {
	f := newRatingsFixture(t)
	reviewerID := uuid.New()

	if _, err := f.svc.AddRating(context.Background(), reviewerID, f.productID, AddRatingRequest{Stars: 4}, reviewImage()); err != nil {
		t.Fatalf("AddRating: %v", err)
	}

	mine, err := f.svc.GetUserRatings(context.Background(), reviewerID)
	if err != nil {
		t.Fatalf("GetUserRatings: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected one review, got %d", len(mine))
	}

	others, err := f.svc.GetUserRatings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetUserRatings: %v", err)
	}
	if len(others) != 0 {
		t.Fatalf("expected no reviews for a stranger, got %d", len(others))
	}
}
