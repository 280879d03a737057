package checkout

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	"github.com/nqtuan-dev/vietshop-backend/internal/catalog"
	"github.com/nqtuan-dev/vietshop-backend/internal/orders"
	"github.com/nqtuan-dev/vietshop-backend/internal/payments"
	"github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

type fakeCartLines struct {
	lines   types.QuantityMap
	removed []uuid.UUID
}

func (f *fakeCartLines) Lines(ctx context.Context, owner cart.Identifier) (types.QuantityMap, error) {
	return f.lines, nil
}

func (f *fakeCartLines) RemoveLines(ctx context.Context, owner cart.Identifier, variantIDs []uuid.UUID) error {
	f.removed = append(f.removed, variantIDs...)
	return nil
}

type checkoutFixture struct {
	conn     *gorm.DB
	svc      Service
	cart     *fakeCartLines
	userID   uuid.UUID
	shopA    uuid.UUID
	shopB    uuid.UUID
	variantA uuid.UUID
	variantB uuid.UUID
}

// newCheckoutFixture seeds two shops: shop A sells a 100000 variant
// with stock 5 (shipping 20000 base + 5000 per item), shop B a 50000
// variant with stock 10 (flat 15000 shipping).
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	conn := newTestDB(t)
	f := &checkoutFixture{
		conn:   conn,
		cart:   &fakeCartLines{lines: types.QuantityMap{}},
		userID: uuid.New(),
		shopA:  uuid.New(),
		shopB:  uuid.New(),
	}

	voucherSvc, err := vouchers.NewService(vouchers.NewRepository(conn))
	if err != nil {
		t.Fatalf("voucher service: %v", err)
	}
	svc, err := NewService(
		db.NewFromConn(conn),
		f.cart,
		catalog.NewRepository(conn),
		voucherSvc,
		orders.NewRepository(conn),
		payments.NewRepository(conn),
		decimal.RequireFromString("0.05"),
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	f.svc = svc

	f.seedShop(t, f.shopA, "Shop Thoi Trang A", 20000, 5000, nil)
	f.seedShop(t, f.shopB, "Shop Giay B", 15000, 0, nil)
	f.variantA = f.seedVariant(t, f.shopA, "Ao Thun", "Den / L", 100000, 5)
	f.variantB = f.seedVariant(t, f.shopB, "Dep Lao", "Xanh", 50000, 10)
	f.cart.lines[f.variantA.String()] = 2
	f.cart.lines[f.variantB.String()] = 1
	return f
}

func (f *checkoutFixture) seedShop(t *testing.T, id uuid.UUID, name string, baseFee, extraPerItem int64, freeShipMin *int64) {
	t.Helper()
	shop := &models.Shop{ID: id, OwnerID: uuid.New(), Name: name}
	if err := f.conn.Create(shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	rule := &models.ShopShippingRule{
		ID:           uuid.New(),
		ShopID:       id,
		BaseFee:      baseFee,
		ExtraPerItem: extraPerItem,
		FreeShipMin:  freeShipMin,
	}
	if err := f.conn.Create(rule).Error; err != nil {
		t.Fatalf("seed shipping rule: %v", err)
	}
}

func (f *checkoutFixture) seedVariant(t *testing.T, shopID uuid.UUID, productName, name string, price int64, stock int) uuid.UUID {
	t.Helper()
	variant := &models.ProductVariant{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		ShopID:      shopID,
		ProductName: productName,
		Name:        name,
		Price:       price,
		Stock:       stock,
	}
	if err := f.conn.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

func (f *checkoutFixture) seedVoucher(t *testing.T, voucher *models.Voucher) {
	t.Helper()
	if voucher.ID == uuid.Nil {
		voucher.ID = uuid.New()
	}
	if voucher.StartsAt.IsZero() {
		voucher.StartsAt = time.Now().Add(-time.Hour)
	}
	if voucher.EndsAt.IsZero() {
		voucher.EndsAt = time.Now().Add(time.Hour)
	}
	if voucher.PerUserLimit == 0 {
		voucher.PerUserLimit = 1
	}
	if voucher.Status == "" {
		voucher.Status = enums.VoucherStatusActive
	}
	if err := f.conn.Create(voucher).Error; err != nil {
		t.Fatalf("seed voucher: %v", err)
	}
}

func (f *checkoutFixture) stock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := f.conn.First(&variant, "id = ?", variantID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	return variant.Stock
}

func (f *checkoutFixture) loadOrder(t *testing.T, id uuid.UUID) *models.MasterOrder {
	t.Helper()
	order, err := orders.NewRepository(f.conn).FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order
}

func (f *checkoutFixture) execute(t *testing.T, input Input) *Result {
	t.Helper()
	result, err := f.svc.Execute(context.Background(), f.userID, input)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	return result
}

func defaultInput(selection types.QuantityMap) Input {
	return Input{
		Selection:       selection,
		ReceiverName:    "Tran Thi B",
		ReceiverPhone:   "0912345678",
		ReceiverAddress: "45 Nguyen Hue, Q1, TP.HCM",
		PaymentMethod:   enums.PaymentMethodVNPay,
	}
}

func TestExecute_SplitsAcrossShops(t *testing.T) {
	f := newCheckoutFixture(t)

	result := f.execute(t, defaultInput(types.QuantityMap{
		f.variantA.String(): 2,
		f.variantB.String(): 1,
	}))

	if got := f.stock(t, f.variantA); got != 3 {
		t.Fatalf("variant A stock = %d, want 3", got)
	}
	if got := f.stock(t, f.variantB); got != 9 {
		t.Fatalf("variant B stock = %d, want 9", got)
	}

	order := f.loadOrder(t, result.MasterOrderID)
	if len(order.SubOrders) != 2 {
		t.Fatalf("suborders = %d, want 2", len(order.SubOrders))
	}

	byShop := map[uuid.UUID]models.SubOrder{}
	for _, subOrder := range order.SubOrders {
		byShop[subOrder.ShopID] = subOrder
	}
	// shop A: 2 x 100000 items, shipping 20000 + 2 x 5000
	subA := byShop[f.shopA]
	if subA.ItemsTotal != 200000 || subA.ShippingFee != 30000 {
		t.Fatalf("shop A pricing: items %d ship %d", subA.ItemsTotal, subA.ShippingFee)
	}
	if subA.TotalAmount != 230000 {
		t.Fatalf("shop A total = %d, want 230000", subA.TotalAmount)
	}
	// 5% platform commission on 200000
	if subA.CommissionAmount != 10000 {
		t.Fatalf("shop A commission = %d, want 10000", subA.CommissionAmount)
	}
	if subA.RealAmount != 200000-10000+30000 {
		t.Fatalf("shop A payout = %d", subA.RealAmount)
	}
	subB := byShop[f.shopB]
	if subB.TotalAmount != 65000 {
		t.Fatalf("shop B total = %d, want 65000", subB.TotalAmount)
	}

	if order.Payment == nil {
		t.Fatal("payment not created")
	}
	var allocated, subTotals int64
	for _, allocation := range order.Payment.Allocations {
		allocated += allocation.Amount
	}
	for _, subOrder := range order.SubOrders {
		subTotals += subOrder.TotalAmount
	}
	if order.Payment.TotalAmount != subTotals || allocated != subTotals {
		t.Fatalf("ledger mismatch: payment %d allocations %d suborders %d",
			order.Payment.TotalAmount, allocated, subTotals)
	}
	if result.TotalAmount != subTotals {
		t.Fatalf("result total = %d, want %d", result.TotalAmount, subTotals)
	}
	if order.OriginalTotalAmount != 200000+30000+50000+15000 {
		t.Fatalf("original total = %d", order.OriginalTotalAmount)
	}

	// each suborder line froze catalog data
	for _, subOrder := range order.SubOrders {
		for _, item := range subOrder.Items {
			if item.ProductName == "" || item.UnitPrice == 0 {
				t.Fatalf("item snapshot incomplete: %+v", item)
			}
		}
	}

	if len(f.cart.removed) != 2 {
		t.Fatalf("purchased lines not removed from cart: %v", f.cart.removed)
	}
}

func TestExecute_PlatformVoucherSplitsProportionally(t *testing.T) {
	f := newCheckoutFixture(t)
	maxDiscount := int64(20000)
	f.seedVoucher(t, &models.Voucher{
		Code:              "PLATFORM10",
		Type:              enums.VoucherTypePlatform,
		DiscountType:      enums.VoucherDiscountPercent,
		DiscountValue:     10,
		MaxDiscountAmount: &maxDiscount,
		UsageLimit:        100,
	})
	// items total 300000: 200000 from shop A, 100000 from shop B
	f.cart.lines[f.variantB.String()] = 2

	input := defaultInput(types.QuantityMap{
		f.variantA.String(): 2,
		f.variantB.String(): 2,
	})
	input.VoucherCode = "PLATFORM10"
	result := f.execute(t, input)

	order := f.loadOrder(t, result.MasterOrderID)
	if order.PlatformDiscount != 20000 {
		t.Fatalf("platform discount = %d, want capped 20000", order.PlatformDiscount)
	}

	var shares int64
	shareByShop := map[uuid.UUID]int64{}
	for _, subOrder := range order.SubOrders {
		shares += subOrder.PlatformShare
		shareByShop[subOrder.ShopID] = subOrder.PlatformShare
	}
	if shares != 20000 {
		t.Fatalf("platform shares sum to %d, want 20000", shares)
	}
	// proportional split: non-final shops floor their share, the
	// final shop (by id order) absorbs the remainder
	ordered := []uuid.UUID{f.shopA, f.shopB}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })
	itemsByShop := map[uuid.UUID]int64{f.shopA: 200000, f.shopB: 100000}
	expectedFirst := 20000 * itemsByShop[ordered[0]] / 300000
	if shareByShop[ordered[0]] != expectedFirst {
		t.Fatalf("first share = %d, want %d", shareByShop[ordered[0]], expectedFirst)
	}
	if shareByShop[ordered[1]] != 20000-expectedFirst {
		t.Fatalf("remainder share = %d, want %d", shareByShop[ordered[1]], 20000-expectedFirst)
	}

	// voucher usage recorded atomically with the order
	var voucher models.Voucher
	if err := f.conn.First(&voucher, "code = ?", "PLATFORM10").Error; err != nil {
		t.Fatalf("reload voucher: %v", err)
	}
	if voucher.UsageCount != 1 {
		t.Fatalf("usage count = %d, want 1", voucher.UsageCount)
	}
	var usages []models.VoucherUsage
	if err := f.conn.Where("master_order_id = ?", order.ID).Find(&usages).Error; err != nil {
		t.Fatalf("load usages: %v", err)
	}
	if len(usages) != 1 || usages[0].DiscountApplied != 20000 {
		t.Fatalf("unexpected usage rows: %+v", usages)
	}
}

func TestExecute_ShopVoucherLandsOnItsShop(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedVoucher(t, &models.Voucher{
		Code:          "SHOPA30K",
		Type:          enums.VoucherTypeShop,
		DiscountType:  enums.VoucherDiscountFixed,
		DiscountValue: 30000,
		UsageLimit:    10,
		ShopID:        &f.shopA,
	})

	input := defaultInput(types.QuantityMap{
		f.variantA.String(): 2,
		f.variantB.String(): 1,
	})
	input.VoucherCode = "SHOPA30K"
	result := f.execute(t, input)

	order := f.loadOrder(t, result.MasterOrderID)
	for _, subOrder := range order.SubOrders {
		switch subOrder.ShopID {
		case f.shopA:
			if subOrder.DiscountAmount != 30000 {
				t.Fatalf("shop A discount = %d, want 30000", subOrder.DiscountAmount)
			}
			// commission base drops to 170000
			if subOrder.CommissionAmount != 8500 {
				t.Fatalf("shop A commission = %d, want 8500", subOrder.CommissionAmount)
			}
			if subOrder.TotalAmount != 200000-30000+30000 {
				t.Fatalf("shop A total = %d", subOrder.TotalAmount)
			}
		case f.shopB:
			if subOrder.DiscountAmount != 0 || subOrder.PlatformShare != 0 {
				t.Fatalf("shop B must be untouched: %+v", subOrder)
			}
		}
	}
	if order.PlatformDiscount != 0 {
		t.Fatalf("shop voucher must not set platform discount, got %d", order.PlatformDiscount)
	}
}

func TestExecute_InsufficientStockAbortsEverything(t *testing.T) {
	f := newCheckoutFixture(t)
	f.cart.lines[f.variantA.String()] = 7

	_, err := f.svc.Execute(context.Background(), f.userID, defaultInput(types.QuantityMap{
		f.variantA.String(): 7,
		f.variantB.String(): 1,
	}))
	if err == nil {
		t.Fatal("expected stock failure")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// nothing committed
	if got := f.stock(t, f.variantA); got != 5 {
		t.Fatalf("variant A stock = %d, want 5", got)
	}
	if got := f.stock(t, f.variantB); got != 10 {
		t.Fatalf("variant B stock = %d, want 10", got)
	}
	var count int64
	if err := f.conn.Model(&models.MasterOrder{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("partial order committed: %d rows", count)
	}
	if len(f.cart.removed) != 0 {
		t.Fatal("cart lines removed despite aborted checkout")
	}
}

func TestExecute_CompetingCheckoutsNeverOversell(t *testing.T) {
	f := newCheckoutFixture(t)
	contested := f.seedVariant(t, f.shopA, "Ao Khoac", "Xam / M", 150000, 4)
	f.cart.lines = types.QuantityMap{contested.String(): 4}
	input := defaultInput(types.QuantityMap{contested.String(): 4})

	// two buyers each want the full stock, only one can have it
	first := f.execute(t, input)

	secondUser := uuid.New()
	_, err := f.svc.Execute(context.Background(), secondUser, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.stock(t, contested); got != 0 {
		t.Fatalf("contested stock = %d, want 0", got)
	}
	var orderCount int64
	if err := f.conn.Model(&models.MasterOrder{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("committed orders = %d, want 1", orderCount)
	}
	order := f.loadOrder(t, first.MasterOrderID)
	if order.UserID != f.userID {
		t.Fatalf("winning order belongs to %s", order.UserID)
	}
	var loserOrders int64
	if err := f.conn.Model(&models.MasterOrder{}).
		Where("user_id = ?", secondUser).
		Count(&loserOrders).Error; err != nil {
		t.Fatalf("count loser orders: %v", err)
	}
	if loserOrders != 0 {
		t.Fatalf("losing checkout committed %d orders", loserOrders)
	}
}

func TestExecute_StaleSelectionRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	missing := uuid.New()

	_, err := f.svc.Execute(context.Background(), f.userID, defaultInput(types.QuantityMap{
		missing.String(): 1,
	}))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStaleCartSelection {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_MissingShippingRuleAborts(t *testing.T) {
	f := newCheckoutFixture(t)
	// a shop without a shipping rule
	shopC := uuid.New()
	if err := f.conn.Create(&models.Shop{ID: shopC, OwnerID: uuid.New(), Name: "Shop Chua Cau Hinh"}).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	variantC := f.seedVariant(t, shopC, "Balo", "Xam", 80000, 4)
	f.cart.lines[variantC.String()] = 1

	_, err := f.svc.Execute(context.Background(), f.userID, defaultInput(types.QuantityMap{
		variantC.String(): 1,
	}))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeMissingShippingRule {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.stock(t, variantC); got != 4 {
		t.Fatalf("stock touched despite abort: %d", got)
	}
}

func TestExecute_EmptySelectionRejected(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Execute(context.Background(), f.userID, defaultInput(types.QuantityMap{}))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_InvalidVoucherAborts(t *testing.T) {
	f := newCheckoutFixture(t)

	input := defaultInput(types.QuantityMap{f.variantA.String(): 1})
	input.VoucherCode = "KHONGTONTAI"
	_, err := f.svc.Execute(context.Background(), f.userID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidVoucher {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.stock(t, f.variantA); got != 5 {
		t.Fatalf("stock touched despite aborted voucher: %d", got)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	stmts := []string{`
CREATE TABLE IF NOT EXISTS shops (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  commission_rate NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shop_shipping_rules (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL UNIQUE,
  base_fee INTEGER NOT NULL,
  extra_per_item INTEGER NOT NULL DEFAULT 0,
  free_ship_min INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT,
  price INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`, `
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
);`, `
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS payment_allocations (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  sub_order_id TEXT NOT NULL UNIQUE,
  amount INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS vouchers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  min_order_value INTEGER NOT NULL DEFAULT 0,
  max_discount_amount INTEGER,
  usage_limit INTEGER NOT NULL,
  per_user_limit INTEGER NOT NULL DEFAULT 1,
  usage_count INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  shop_id TEXT,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS voucher_usages (
  id TEXT PRIMARY KEY,
  voucher_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  master_order_id TEXT NOT NULL,
  discount_applied INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (voucher_id, master_order_id)
);`}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
