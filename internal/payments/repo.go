package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

// Repository manages persistence for payments and their allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*models.Payment, error)
	FindBySubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.Payment, error)
	MarkSuccess(ctx context.Context, id uuid.UUID, transactionID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, transactionID string) error
	MarkExpiredIfPending(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSubOrdersPaid(ctx context.Context, subOrderIDs []uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&payment, "master_order_id = ?", masterOrderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindBySubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Joins("JOIN payment_allocations ON payment_allocations.payment_id = payments.id").
		Where("payment_allocations.sub_order_id = ?", subOrderID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) MarkSuccess(ctx context.Context, id uuid.UUID, transactionID string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentStatusSuccess,
			"transaction_id": transactionID,
			"paid_at":        paidAt,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, transactionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"transaction_id": transactionID,
		}).Error
}

// MarkExpiredIfPending flips a payment to EXPIRED only while it is
// still PENDING and reports whether the flip happened.
func (r *repository) MarkExpiredIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Update("status", enums.PaymentStatusExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSubOrdersPaid moves every listed suborder from PENDING_PAYMENT
// to PAID, skipping suborders that already left that status.
func (r *repository) MarkSubOrdersPaid(ctx context.Context, subOrderIDs []uuid.UUID) (int64, error) {
	if len(subOrderIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id IN ? AND status = ?", subOrderIDs, enums.SubOrderStatusPendingPayment).
		Update("status", enums.SubOrderStatusPaid)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
