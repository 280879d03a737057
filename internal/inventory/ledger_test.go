package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantA := seedVariant(t, db, 5)
	variantB := seedVariant(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []Item{
			{VariantID: variantA, Quantity: 3},
			{VariantID: variantB, Quantity: 1},
		})
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	if got := loadStock(t, db, variantA); got != 2 {
		t.Fatalf("variant a stock = %d, want 2", got)
	}
	if got := loadStock(t, db, variantB); got != 0 {
		t.Fatalf("variant b stock = %d, want 0", got)
	}
}

func TestReserveShortfallRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variantA := seedVariant(t, db, 5)
	variantB := seedVariant(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, []Item{
			{VariantID: variantA, Quantity: 2},
			{VariantID: variantB, Quantity: 4},
		})
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// the first decrement must have been rolled back with the rest
	if got := loadStock(t, db, variantA); got != 5 {
		t.Fatalf("variant a stock = %d, want 5", got)
	}
	if got := loadStock(t, db, variantB); got != 1 {
		t.Fatalf("variant b stock = %d, want 1", got)
	}
}

func TestReserveInvalidQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	variant := seedVariant(t, db, 5)

	err := Reserve(context.Background(), db, []Item{{VariantID: variant, Quantity: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, []Item{{VariantID: variant, Quantity: 2}})
	})
	if err != nil {
		t.Fatalf("release transaction: %v", err)
	}
	if got := loadStock(t, db, variant); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := `
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
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	variant := &models.ProductVariant{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		ShopID:      uuid.New(),
		ProductName: "Ao Thun Basic",
		Name:        "Size M",
		Price:       100000,
		Stock:       stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := db.First(&variant, "id = ?", id).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Stock
}
