package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

// Item is one variant/quantity pair in a reservation or release.
type Item struct {
	VariantID uuid.UUID
	Quantity  int
}

// Reserve decrements stock per variant inside the caller's
// transaction. A shortfall on any variant fails the whole call so
// the surrounding transaction rolls back. The guarded decrement is
// what serializes concurrent checkouts against the same variant.
func Reserve(ctx context.Context, tx *gorm.DB, items []Item) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	for _, item := range items {
		if item.VariantID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid reservation item")
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", item.VariantID, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for variant").
				WithDetails(map[string]any{"variant_id": item.VariantID.String(), "requested": item.Quantity})
		}
	}
	return nil
}

// Release returns stock for cancelled or expired suborders. Callers
// must ensure at most one release per cancellation event; there is
// no idempotence guard here.
func Release(ctx context.Context, tx *gorm.DB, items []Item) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	for _, item := range items {
		if item.VariantID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid release item")
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ?", item.VariantID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// ItemsFromOrderItems maps persisted order lines back to release
// requests.
func ItemsFromOrderItems(orderItems []models.OrderItem) []Item {
	items := make([]Item, 0, len(orderItems))
	for _, oi := range orderItems {
		items = append(items, Item{VariantID: oi.VariantID, Quantity: oi.Quantity})
	}
	return items
}
