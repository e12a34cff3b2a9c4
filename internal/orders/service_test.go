package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/internal/cart"
	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
	"github.com/bazaarly/bazaarly-backend/pkg/types"
)

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *stubOrderRepo) WithTx(*gorm.DB) Repository { return r }

func (r *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) ListAll(_ context.Context, filter ListFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if filter.CustomerID != nil && o.UserID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && o.OrderStatus != *filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (r *stubOrderRepo) Save(_ context.Context, order *models.Order) (*models.Order, error) {
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.orders, id)
	return nil
}

type stubCarts struct {
	carts map[uuid.UUID]*models.Cart
}

func newStubCarts() *stubCarts {
	return &stubCarts{carts: map[uuid.UUID]*models.Cart{}}
}

func (s *stubCarts) WithTx(*gorm.DB) cart.Repository { return s }

func (s *stubCarts) FindByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, c := range s.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCarts) Create(_ context.Context, c *models.Cart) (*models.Cart, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubCarts) Save(_ context.Context, c *models.Cart) (*models.Cart, error) {
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubCarts) DeleteItem(context.Context, uuid.UUID) error { return nil }

func (s *stubCarts) Delete(_ context.Context, cartID uuid.UUID) error {
	delete(s.carts, cartID)
	return nil
}

func (s *stubCarts) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if c, err := s.FindByUser(ctx, userID); err == nil {
		delete(s.carts, c.ID)
	}
	return nil
}

type stubLookups struct {
	users    map[uuid.UUID]*models.User
	offers   map[uuid.UUID]*models.Offer
	products map[uuid.UUID]*models.Product
}

func (s *stubLookups) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type offerLookup struct{ l *stubLookups }

func (o offerLookup) FindByID(_ context.Context, id uuid.UUID) (*models.Offer, error) {
	if offer, ok := o.l.offers[id]; ok {
		return offer, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type productLookup struct{ l *stubLookups }

func (p productLookup) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := p.l.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type noopTxRunner struct{}

func (noopTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type ordersFixture struct {
	svc     Service
	repo    *stubOrderRepo
	carts   *stubCarts
	lookups *stubLookups
	userID  uuid.UUID
	nowTime time.Time
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	f := &ordersFixture{
		repo:  newStubOrderRepo(),
		carts: newStubCarts(),
		lookups: &stubLookups{
			users:    map[uuid.UUID]*models.User{},
			offers:   map[uuid.UUID]*models.Offer{},
			products: map[uuid.UUID]*models.Product{},
		},
		nowTime: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}

	user := &models.User{
		ID:       uuid.New(),
		Username: "ana",
		Email:    "ana@example.com",
		Role:     enums.UserRoleCustomer,
		Address: types.Address{
			Street: "Rua das Flores 1",
			City:   "Porto",
		},
	}
	f.lookups.users[user.ID] = user
	f.userID = user.ID

	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Carts:    f.carts,
		Users:    f.lookups,
		Offers:   offerLookup{f.lookups},
		Products: productLookup{f.lookups},
		Tx:       noopTxRunner{},
		Logger:   logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
		Now:      func() time.Time { return f.nowTime },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *ordersFixture) seedCartWith(t *testing.T, price float64, quantity int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:        uuid.New(),
		Label:     "Linen Shirt",
		Color:     "white",
		Size:      "M",
		Brand:     "Atelier",
		Category:  "apparel",
		Price:     decimal.NewFromFloat(price),
		ImageURLs: []string{"https://cdn.test/products/a.jpg"},
	}
	f.lookups.products[product.ID] = product

	c, err := f.carts.FindByUser(context.Background(), f.userID)
	if err != nil {
		c = &models.Cart{ID: uuid.New(), UserID: f.userID}
		f.carts.carts[c.ID] = c
	}
	c.Items = append(c.Items, models.CartItem{
		CartID:    c.ID,
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	})
	c.RecomputeTotal()
	return product
}

func (f *ordersFixture) seedOffer(percent float64, expiresAt time.Time) *models.Offer {
	offer := &models.Offer{
		ID:              uuid.New(),
		Statement:       "spring sale",
		DiscountPercent: decimal.NewFromFloat(percent),
		ExpiresAt:       expiresAt,
	}
	f.lookups.offers[offer.ID] = offer
	return offer
}

func checkCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	if got := pkgerrors.As(err).Code(); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newOrdersFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{})
	checkCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateOrderAdditiveDiscounts(t *testing.T) {
	f := newOrdersFixture(t)
	f.seedCartWith(t, 100.00, 1)

	ten := f.seedOffer(10, f.nowTime.Add(time.Hour))
	twenty := f.seedOffer(20, f.nowTime.Add(time.Hour))

	dto, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{
		OfferIDs: []uuid.UUID{ten.ID, twenty.ID},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !dto.TotalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected total 100, got %s", dto.TotalPrice)
	}
	if !dto.TotalPayable.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected payable 70.00, got %s", dto.TotalPayable)
	}
}

func TestCreateOrderRejectsExpiredOffer(t *testing.T) {
	f := newOrdersFixture(t)
	f.seedCartWith(t, 50.00, 1)
	stale := f.seedOffer(10, f.nowTime.Add(-time.Minute))

	_, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{
		OfferIDs: []uuid.UUID{stale.ID},
	})
	checkCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateOrderSnapshotsAndClearsCart(t *testing.T) {
	f := newOrdersFixture(t)
	product := f.seedCartWith(t, 49.90, 2)

	dto, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if len(dto.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(dto.Items))
	}
	line := dto.Items[0]
	if line.Label != "Linen Shirt" || line.Color != "white" || line.Size != "M" || line.Brand != "Atelier" {
		t.Fatalf("unexpected snapshot %+v", line)
	}
	if dto.DeliveryAddress.City != "Porto" {
		t.Fatalf("expected the saved address to be snapshotted, got %+v", dto.DeliveryAddress)
	}
	if dto.OrderStatus != "confirmed" {
		t.Fatalf("expected confirmed status, got %s", dto.OrderStatus)
	}

	if _, err := f.carts.FindByUser(context.Background(), f.userID); err == nil {
		t.Fatal("expected the cart to be deleted after checkout")
	}

	// Later catalog edits must not reach the placed order.
	product.Label = "Renamed"
	product.Price = decimal.NewFromFloat(999.99)

	reloaded, err := f.svc.GetOrder(context.Background(), f.userID, dto.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.Items[0].Label != "Linen Shirt" {
		t.Fatalf("expected snapshot isolation, got %s", reloaded.Items[0].Label)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromFloat(49.90)) {
		t.Fatalf("expected snapshotted price, got %s", reloaded.Items[0].UnitPrice)
	}
}

func TestGetOrderScopedToOwner(t *testing.T) {
	f := newOrdersFixture(t)
	f.seedCartWith(t, 10.00, 1)

	dto, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	_, err = f.svc.GetOrder(context.Background(), uuid.New(), dto.ID)
	checkCode(t, err, pkgerrors.CodeNotFound)
}

func TestCancelOrderGate(t *testing.T) {
	f := newOrdersFixture(t)
	f.seedCartWith(t, 10.00, 1)

	dto, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	t.Run("shipped orders conflict", func(t *testing.T) {
		f.repo.orders[dto.ID].OrderStatus = enums.OrderStatusShipped
		err := f.svc.CancelOrder(context.Background(), f.userID, dto.ID)
		checkCode(t, err, pkgerrors.CodeConflict)
	})

	t.Run("processing orders hard delete", func(t *testing.T) {
		f.repo.orders[dto.ID].OrderStatus = enums.OrderStatusProcessing
		if err := f.svc.CancelOrder(context.Background(), f.userID, dto.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		if _, ok := f.repo.orders[dto.ID]; ok {
			t.Fatal("expected the order to be hard deleted")
		}
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newOrdersFixture(t)
	f.seedCartWith(t, 10.00, 1)

	dto, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderRequest{})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	_, err = f.svc.UpdateOrderStatus(context.Background(), dto.ID, UpdateStatusRequest{Status: "teleported"})
	checkCode(t, err, pkgerrors.CodeValidation)

	// No transition validation: delivered straight from confirmed is accepted.
	updated, err := f.svc.UpdateOrderStatus(context.Background(), dto.ID, UpdateStatusRequest{Status: "delivered"})
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if updated.OrderStatus != "delivered" {
		t.Fatalf("expected delivered, got %s", updated.OrderStatus)
	}
}

func TestListAllOrdersRequiresFilter(t *testing.T) {
	f := newOrdersFixture(t)
	_, err := f.svc.ListAllOrders(context.Background(), ListFilter{})
	checkCode(t, err, pkgerrors.CodeValidation)

	status := enums.OrderStatusConfirmed
	if _, err := f.svc.ListAllOrders(context.Background(), ListFilter{Status: &status}); err != nil {
		t.Fatalf("ListAllOrders: %v", err)
	}
}
