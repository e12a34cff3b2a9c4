package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/internal/cart"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type offerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the order operations.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	ListAllOrders(ctx context.Context, filter ListFilter) ([]OrderDTO, error)
}

type service struct {
	repo     Repository
	carts    cart.Repository
	users    userFinder
	offers   offerFinder
	products productFinder
	tx       txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.Repository
	Users    userFinder
	Offers   offerFinder
	Products productFinder
	Tx       txRunner
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService constructs an orders service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user finder is required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offer finder is required")
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
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		users:    params.Users,
		offers:   params.Offers,
		products: params.Products,
		tx:       params.Tx,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CreateOrder snapshots the cart and the user's saved address into an
// immutable order, applies the offers additively and drops the cart. The
// order insert commits before the cart rows are touched.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	userCart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	discountPercent, err := s.resolveDiscount(ctx, req.OfferIDs)
	if err != nil {
		return nil, err
	}

	items, totalPrice, err := s.snapshotLines(ctx, userCart.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		Items:           items,
		OfferIDs:        req.OfferIDs,
		DeliveryAddress: user.Address,
		TotalPrice:      totalPrice,
		TotalPayable:    applyDiscount(totalPrice, discountPercent),
		OrderStatus:     enums.OrderStatusConfirmed,
		PaymentStatus:   enums.PaymentStatusPending,
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err = repo.Create(ctx, order)
		if err != nil {
			return err
		}
		return s.carts.WithTx(tx).Delete(ctx, userCart.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
	}
	return FromModel(created), nil
}

func (s *service) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return FromModels(orders), nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwnOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.loadOwnOrder(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !order.OrderStatus.IsCancellable() {
		return pkgerrors.New(pkgerrors.CodeConflict, "order can no longer be cancelled")
	}
	if err := s.repo.Delete(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order")
	}
	return nil
}

// UpdateOrderStatus sets the fulfillment status without validating the
// transition; any known status may follow any other.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.OrderStatus = status
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save order")
	}
	return FromModel(saved), nil
}

func (s *service) ListAllOrders(ctx context.Context, filter ListFilter) ([]OrderDTO, error) {
	if !filter.HasCriteria() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one filter is required")
	}
	orders, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return FromModels(orders), nil
}

// snapshotLines copies the cart lines into order lines, pulling the display
// fields from the catalog. Prices come from the cart snapshot, not the
// current listing.
func (s *service) snapshotLines(ctx context.Context, cartItems []models.CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(cartItems))
	total := decimal.Zero
	for _, line := range cartItems {
		item := models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}

		product, err := s.products.FindByID(ctx, line.ProductID)
		switch {
		case err == nil:
			item.Label = product.Label
			item.Color = product.Color
			item.Size = product.Size
			item.Brand = product.Brand
			if len(product.ImageURLs) > 0 {
				item.ImageURL = product.ImageURLs[0]
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// The listing vanished between carting and checkout; keep the
			// priced line with what the cart knows.
			item.Label = "unavailable product"
		default:
			return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}

		items = append(items, item)
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return items, total, nil
}

// resolveDiscount validates the offers and sums their percentages. Discounts
// stack additively on the pre-discount total.
func (s *service) resolveDiscount(ctx context.Context, offerIDs []uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	now := s.now()
	for _, offerID := range offerIDs {
		offer, err := s.offers.FindByID(ctx, offerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "offer not found")
			}
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load offer")
		}
		if !offer.IsActive(now) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "offer has expired")
		}
		total = total.Add(offer.DiscountPercent)
	}
	return total, nil
}

func applyDiscount(total, percent decimal.Decimal) decimal.Decimal {
	payable := total.Sub(total.Mul(percent).Div(decimal.NewFromInt(100))).Round(2)
	if payable.IsNegative() {
		return decimal.Zero
	}
	return payable
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

// loadOwnOrder hides other users' orders behind the same not-found answer.
func (s *service) loadOwnOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
