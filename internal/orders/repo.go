package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
)

// Repository manages persistence for master orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.MasterOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MasterOrder, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.MasterOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.MasterOrder, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a master-order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.MasterOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MasterOrder, error) {
	var order models.MasterOrder
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		Preload("Payment.Allocations").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.MasterOrder, error) {
	var order models.MasterOrder
	if err := r.db.WithContext(ctx).
		Preload("SubOrders.Items").
		Preload("Payment.Allocations").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.MasterOrder, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.MasterOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, nextCursor, nil
}
