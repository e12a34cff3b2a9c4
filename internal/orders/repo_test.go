package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/bazaarly/bazaarly-backend/pkg/db/models"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID: userID,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Label: "Linen Shirt", Quantity: 2, UnitPrice: decimal.NewFromFloat(49.90)},
		},
		TotalPrice:    decimal.NewFromFloat(99.80),
		TotalPayable:  decimal.NewFromFloat(99.80),
		OrderStatus:   status,
		PaymentStatus: enums.PaymentStatusPending,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestFindByIDPreloadsItems(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seeded := seedOrder(t, conn, uuid.New(), enums.OrderStatusConfirmed)

	order, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Linen Shirt", order.Items[0].Label)
}

func TestListAllFilters(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	customerID := uuid.New()
	seedOrder(t, conn, customerID, enums.OrderStatusConfirmed)
	seedOrder(t, conn, customerID, enums.OrderStatusShipped)
	seedOrder(t, conn, uuid.New(), enums.OrderStatusConfirmed)

	byCustomer, err := repo.ListAll(ctx, ListFilter{CustomerID: &customerID})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	shipped := enums.OrderStatusShipped
	byBoth, err := repo.ListAll(ctx, ListFilter{CustomerID: &customerID, Status: &shipped})
	require.NoError(t, err)
	assert.Len(t, byBoth, 1)

	today := time.Now().UTC()
	byDate, err := repo.ListAll(ctx, ListFilter{Date: &today})
	require.NoError(t, err)
	assert.Len(t, byDate, 3)

	yesterday := today.Add(-48 * time.Hour)
	stale, err := repo.ListAll(ctx, ListFilter{Date: &yesterday})
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestDeleteRemovesOrderAndLines(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusConfirmed)
	require.NoError(t, repo.Delete(ctx, order.ID))

	_, err := repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var lines int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&lines).Error)
	assert.Zero(t, lines)
}
