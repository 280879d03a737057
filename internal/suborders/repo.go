package suborders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
)

// ShopFilters narrows the seller-facing suborder listing.
type ShopFilters struct {
	Status *enums.SubOrderStatus
}

// Repository manages persistence for suborders and their refunds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopFilters) ([]models.SubOrder, string, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.SubOrder, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.SubOrderStatus) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, from enums.SubOrderStatus, reason string, at time.Time) (bool, error)
	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindRefundByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindOpenRefundBySubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.Refund, error)
	UpdateRefundStatus(ctx context.Context, id uuid.UUID, status enums.RefundStatus, resolvedAt *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a suborder repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&subOrder, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subOrder, nil
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopFilters) ([]models.SubOrder, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("shop_id = ?", shopID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var subOrders []models.SubOrder
	if err := query.Find(&subOrders).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(subOrders) > limit {
		subOrders = subOrders[:limit]
		last := subOrders[len(subOrders)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return subOrders, nextCursor, nil
}

func (r *repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.SubOrder, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", enums.SubOrderStatusPendingPayment, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var subOrders []models.SubOrder
	if err := query.Find(&subOrders).Error; err != nil {
		return nil, err
	}
	return subOrders, nil
}

// UpdateStatusFrom moves a suborder to the target status only while it
// still holds the expected prior status and reports whether the move
// happened. A false return means another writer got there first.
func (r *repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to enums.SubOrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkCancelled closes out a suborder only while it still holds the
// expected prior status and reports whether the close happened.
// Callers must release stock only after a true return.
func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, from enums.SubOrderStatus, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":        enums.SubOrderStatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefundByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindOpenRefundBySubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).
		Where("sub_order_id = ? AND status = ?", subOrderID, enums.RefundStatusRequested).
		First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) UpdateRefundStatus(ctx context.Context, id uuid.UUID, status enums.RefundStatus, resolvedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if resolvedAt != nil {
		updates["resolved_at"] = *resolvedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ?", id).
		Updates(updates).Error
}
