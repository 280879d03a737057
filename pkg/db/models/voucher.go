package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

// Voucher is a platform- or shop-funded discount. UsageCount is
// mutated atomically with order creation and reverted only by the
// expiration sweep.
type Voucher struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string                    `gorm:"column:code;not null;uniqueIndex"`
	Type              enums.VoucherType         `gorm:"column:type;not null"`
	DiscountType      enums.VoucherDiscountType `gorm:"column:discount_type;not null"`
	DiscountValue     int64                     `gorm:"column:discount_value;not null"`
	MinOrderValue     int64                     `gorm:"column:min_order_value;not null;default:0"`
	MaxDiscountAmount *int64                    `gorm:"column:max_discount_amount"`
	UsageLimit        int                       `gorm:"column:usage_limit;not null"`
	PerUserLimit      int                       `gorm:"column:per_user_limit;not null;default:1"`
	UsageCount        int                       `gorm:"column:usage_count;not null;default:0"`
	StartsAt          time.Time                 `gorm:"column:starts_at;not null"`
	EndsAt            time.Time                 `gorm:"column:ends_at;not null"`
	ShopID            *uuid.UUID                `gorm:"column:shop_id;type:uuid;index"`
	Status            enums.VoucherStatus       `gorm:"column:status;not null;default:'ACTIVE'"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
