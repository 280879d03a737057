package models

import (
	"time"

	"github.com/google/uuid"
)

// VoucherUsage records one redemption. One row per
// (voucher, master order) pair.
type VoucherUsage struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VoucherID       uuid.UUID `gorm:"column:voucher_id;type:uuid;not null;uniqueIndex:idx_voucher_usage_order"`
	MasterOrderID   uuid.UUID `gorm:"column:master_order_id;type:uuid;not null;uniqueIndex:idx_voucher_usage_order"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	DiscountApplied int64     `gorm:"column:discount_applied;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
