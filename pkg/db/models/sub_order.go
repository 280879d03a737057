package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

// SubOrder is the per-shop slice of a master order. RealAmount is
// what the seller is owed; TotalAmount is what the buyer owes for
// this slice.
type SubOrder struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MasterOrderID    uuid.UUID            `gorm:"column:master_order_id;type:uuid;not null;index"`
	ShopID           uuid.UUID            `gorm:"column:shop_id;type:uuid;not null;index"`
	Code             string               `gorm:"column:code;not null;uniqueIndex"`
	Status           enums.SubOrderStatus `gorm:"column:status;not null;default:'PENDING_PAYMENT'"`
	ItemsTotal       int64                `gorm:"column:items_total;not null"`
	ShippingFee      int64                `gorm:"column:shipping_fee;not null;default:0"`
	DiscountAmount   int64                `gorm:"column:discount_amount;not null;default:0"`
	PlatformShare    int64                `gorm:"column:platform_share;not null;default:0"`
	CommissionAmount int64                `gorm:"column:commission_amount;not null;default:0"`
	RealAmount       int64                `gorm:"column:real_amount;not null"`
	TotalAmount      int64                `gorm:"column:total_amount;not null"`
	CancelReason     *string              `gorm:"column:cancel_reason"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	Items            []OrderItem          `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
