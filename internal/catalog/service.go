package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/storage"
)

// Service exposes the catalog operations. Role gating to seller/admin happens
// in the route policy; ownership checks stay here because they need the row.
type Service interface {
	AddProduct(ctx context.Context, sellerID uuid.UUID, req AddProductRequest, images []ImageUpload) (*ProductDTO, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actorID uuid.UUID, role enums.UserRole, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actorID uuid.UUID, role enums.UserRole, id uuid.UUID) error
}

// ImageUpload carries one inbound product image.
type ImageUpload struct {
	Body        io.Reader
	ContentType string
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	Save(ctx context.Context, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  productRepository
	store storage.ObjectStore
	logg  *logger.Logger
}

// ServiceParams bundles the dependencies required to build a catalog service.
type ServiceParams struct {
	Repo        productRepository
	ObjectStore storage.ObjectStore
	Logger      *logger.Logger
}

// NewService constructs a catalog service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.ObjectStore == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:  params.Repo,
		store: params.ObjectStore,
		logg:  params.Logger,
	}, nil
}

func (s *service) AddProduct(ctx context.Context, sellerID uuid.UUID, req AddProductRequest, images []ImageUpload) (*ProductDTO, error) {
	label := strings.TrimSpace(req.Label)
	category := strings.TrimSpace(req.Category)
	if label == "" || category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label and category are required")
	}
	if !req.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if req.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if len(images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product image is required")
	}

	urls, publicIDs, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Label:          label,
		Color:          strings.TrimSpace(req.Color),
		Size:           strings.TrimSpace(req.Size),
		Material:       strings.TrimSpace(req.Material),
		Category:       category,
		Brand:          strings.TrimSpace(req.Brand),
		SellerID:       sellerID,
		Price:          req.Price,
		Stock:          req.Stock,
		ImageURLs:      urls,
		ImagePublicIDs: publicIDs,
		WarrantyMonths: req.WarrantyMonths,
	}
	product.RecomputeAvailability()

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		s.removeImages(ctx, publicIDs)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create product")
	}
	return FromModel(created), nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]ProductDTO, error) {
	if !filter.HasCriteria() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one filter is required")
	}
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return FromModels(products), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, actorID uuid.UUID, role enums.UserRole, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnership(product, actorID, role); err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	applyString(&product.Label, req.Label)
	applyString(&product.Color, req.Color)
	applyString(&product.Size, req.Size)
	applyString(&product.Material, req.Material)
	applyString(&product.Category, req.Category)
	applyString(&product.Brand, req.Brand)
	if product.Label == "" || product.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label and category cannot be empty")
	}

	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *req.Price
	}
	if req.WarrantyMonths != nil {
		if *req.WarrantyMonths < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "warranty cannot be negative")
		}
		product.WarrantyMonths = *req.WarrantyMonths
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *req.Stock
		product.RecomputeAvailability()
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save product")
	}
	return FromModel(saved), nil
}

func (s *service) DeleteProduct(ctx context.Context, actorID uuid.UUID, role enums.UserRole, id uuid.UUID) error {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := ensureOwnership(product, actorID, role); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}

	// The row is gone; image removal is best effort.
	s.removeImages(ctx, product.ImagePublicIDs)
	return nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

// ensureOwnership lets admins touch any listing and holds sellers to their own.
func ensureOwnership(product *models.Product, actorID uuid.UUID, role enums.UserRole) error {
	if role == enums.UserRoleAdmin {
		return nil
	}
	if product.SellerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}
	return nil
}

func (s *service) uploadImages(ctx context.Context, images []ImageUpload) ([]string, []string, error) {
	urls := make([]string, 0, len(images))
	publicIDs := make([]string, 0, len(images))
	for _, image := range images {
		if image.Body == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "empty image upload")
		}
		key := fmt.Sprintf("products/%s%s", uuid.NewString(), extensionFor(image.ContentType))
		uploaded, err := s.store.Upload(ctx, key, image.ContentType, image.Body)
		if err != nil {
			s.removeImages(ctx, publicIDs)
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage: upload product image")
		}
		urls = append(urls, uploaded.URL)
		publicIDs = append(publicIDs, uploaded.PublicID)
	}
	return urls, publicIDs, nil
}

func (s *service) removeImages(ctx context.Context, publicIDs []string) {
	for _, publicID := range publicIDs {
		if err := s.store.Delete(ctx, publicID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "public_id", publicID), "failed to remove product image")
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
