package vouchers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
)

// Repository manages persistence for vouchers and their usage rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, voucher *models.Voucher) error
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Voucher, error)
	ListPlatform(ctx context.Context) ([]models.Voucher, error)
	CountUserUsage(ctx context.Context, voucherID, userID uuid.UUID) (int64, error)
	IncrementUsage(ctx context.Context, voucherID uuid.UUID) (bool, error)
	DecrementUsage(ctx context.Context, voucherID uuid.UUID) error
	InsertUsage(ctx context.Context, usage *models.VoucherUsage) error
	FindUsageByMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*models.VoucherUsage, error)
	DeleteUsage(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a voucher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (r *repository) ListPlatform(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := r.db.WithContext(ctx).
		Where("shop_id IS NULL").
		Order("created_at DESC").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (r *repository) CountUserUsage(ctx context.Context, voucherID, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementUsage bumps usage_count only while it is still under the
// limit, so a concurrent redemption racing past the cap loses.
func (r *repository) IncrementUsage(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND usage_count < usage_limit", voucherID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DecrementUsage(ctx context.Context, voucherID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND usage_count > 0", voucherID).
		UpdateColumn("usage_count", gorm.Expr("usage_count - 1")).Error
}

func (r *repository) InsertUsage(ctx context.Context, usage *models.VoucherUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) FindUsageByMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*models.VoucherUsage, error) {
	var usage models.VoucherUsage
	if err := r.db.WithContext(ctx).
		First(&usage, "master_order_id = ?", masterOrderID).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *repository) DeleteUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.VoucherUsage{}, "id = ?", id).Error
}
