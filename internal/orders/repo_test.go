package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	masterOrders := `
CREATE TABLE IF NOT EXISTS master_orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  receiver_name TEXT NOT NULL,
  receiver_phone TEXT NOT NULL,
  receiver_address TEXT NOT NULL,
  original_total_amount INTEGER NOT NULL,
  platform_discount INTEGER NOT NULL DEFAULT 0,
  total_amount_at_buy INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	subOrders := `
CREATE TABLE IF NOT EXISTS sub_orders (
  id TEXT PRIMARY KEY,
  master_order_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  items_total INTEGER NOT NULL,
  shipping_fee INTEGER NOT NULL DEFAULT 0,
  discount_amount INTEGER NOT NULL DEFAULT 0,
  platform_share INTEGER NOT NULL DEFAULT 0,
  commission_amount INTEGER NOT NULL DEFAULT 0,
  real_amount INTEGER NOT NULL,
  total_amount INTEGER NOT NULL,
  cancel_reason TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  sub_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  variant_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price INTEGER NOT NULL,
  line_total INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  master_order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  total_amount INTEGER NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL,
  transaction_id TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	allocations := `
CREATE TABLE IF NOT EXISTS payment_allocations (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  sub_order_id TEXT NOT NULL UNIQUE,
  amount INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(masterOrders).Error)
	require.NoError(t, conn.Exec(subOrders).Error)
	require.NoError(t, conn.Exec(orderItems).Error)
	require.NoError(t, conn.Exec(payments).Error)
	require.NoError(t, conn.Exec(allocations).Error)
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, seq int, createdAt time.Time) *models.MasterOrder {
	t.Helper()
	order := &models.MasterOrder{
		ID:                  uuid.New(),
		UserID:              userID,
		Code:                fmt.Sprintf("ORD-TEST-%03d", seq),
		ReceiverName:        "Nguyen Van A",
		ReceiverPhone:       "0901234567",
		ReceiverAddress:     "12 Le Loi, Q1, TP.HCM",
		OriginalTotalAmount: 250000,
		TotalAmountAtBuy:    250000,
		CreatedAt:           createdAt,
	}
	require.NoError(t, conn.Create(order).Error)

	sub := &models.SubOrder{
		ID:            uuid.New(),
		MasterOrderID: order.ID,
		ShopID:        uuid.New(),
		Code:          fmt.Sprintf("SUB-TEST-%03d", seq),
		Status:        enums.SubOrderStatusPendingPayment,
		ItemsTotal:    250000,
		RealAmount:    237500,
		TotalAmount:   250000,
		CreatedAt:     createdAt,
	}
	require.NoError(t, conn.Create(sub).Error)

	payment := &models.Payment{
		ID:            uuid.New(),
		MasterOrderID: order.ID,
		UserID:        userID,
		TotalAmount:   250000,
		Method:        enums.PaymentMethodVNPay,
		Status:        enums.PaymentStatusPending,
		CreatedAt:     createdAt,
	}
	require.NoError(t, conn.Create(payment).Error)
	require.NoError(t, conn.Create(&models.PaymentAllocation{
		ID:         uuid.New(),
		PaymentID:  payment.ID,
		SubOrderID: sub.ID,
		Amount:     250000,
	}).Error)
	return order
}

func TestListByUser_PaginatesWithCursor(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	userID := uuid.New()
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		seedOrder(t, conn, userID, i, base.Add(time.Duration(i)*time.Minute))
	}
	seedOrder(t, conn, uuid.New(), 99, base)

	first, cursor, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.NotEmpty(t, cursor)
	assert.Equal(t, "ORD-TEST-002", first[0].Code)
	assert.Equal(t, "ORD-TEST-001", first[1].Code)
	require.Len(t, first[0].SubOrders, 1)
	require.NotNil(t, first[0].Payment)

	second, cursor, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Empty(t, cursor)
	assert.Equal(t, "ORD-TEST-000", second[0].Code)
}

func TestFindByIDAndUser_ScopesToOwner(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	userID := uuid.New()
	order := seedOrder(t, conn, userID, 1, time.Now().UTC())

	found, err := repo.FindByIDAndUser(context.Background(), order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, order.Code, found.Code)
	require.Len(t, found.SubOrders, 1)
	require.NotNil(t, found.Payment)
	require.Len(t, found.Payment.Allocations, 1)

	_, err = repo.FindByIDAndUser(context.Background(), order.ID, uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestGetOrder_MapsMissingToNotFound(t *testing.T) {
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
