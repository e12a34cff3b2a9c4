package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart operations for the authenticated user. Mutations
// return the updated cart, or nil when the mutation emptied and removed it.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ChangeQuantity(ctx context.Context, userID, productID uuid.UUID, delta int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	products productFinder
	tx       txRunner
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo     Repository
	Products productFinder
	Tx       txRunner
	Logger   *logger.Logger
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

// AddItem merges the product into the cart. The unit price is read from the
// catalog on first add and stays fixed for the life of the line.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart = &models.Cart{
				UserID: userID,
				Items: []models.CartItem{{
					ProductID: product.ID,
					Quantity:  req.Quantity,
					UnitPrice: product.Price,
				}},
			}
			cart.RecomputeTotal()
			result, err = repo.Create(ctx, cart)
			return err
		}
		if err != nil {
			return err
		}

		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == product.ID {
				cart.Items[i].Quantity += req.Quantity
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  req.Quantity,
				UnitPrice: product.Price,
			})
		}

		cart.RecomputeTotal()
		result, err = repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: add cart item")
	}
	return FromModel(result), nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(cart), nil
}

func (s *service) ChangeQuantity(ctx context.Context, userID, productID uuid.UUID, delta int) (*CartDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	return s.mutateLine(ctx, userID, productID, func(item *models.CartItem) int {
		return item.Quantity + delta
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	return s.mutateLine(ctx, userID, productID, func(*models.CartItem) int {
		return 0
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart")
		}
		return nil
	})
}

// mutateLine applies nextQuantity to one line: a result of zero or less drops
// the line, and dropping the last line removes the cart itself.
func (s *service) mutateLine(ctx context.Context, userID, productID uuid.UUID, nextQuantity func(*models.CartItem) int) (*CartDTO, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		index := -1
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				index = i
				break
			}
		}
		if index < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
		}

		next := nextQuantity(&cart.Items[index])
		if next <= 0 {
			removed := cart.Items[index]
			cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)

			if len(cart.Items) == 0 {
				result = nil
				if err := repo.Delete(ctx, cart.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart")
				}
				return nil
			}

			if err := repo.DeleteItem(ctx, removed.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
			}
		} else {
			cart.Items[index].Quantity = next
		}

		cart.RecomputeTotal()
		result, err = repo.Save(ctx, cart)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return FromModel(result), nil
}

func (s *service) loadCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return cart, nil
}
