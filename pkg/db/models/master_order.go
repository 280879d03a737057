package models

import (
	"time"

	"github.com/google/uuid"
)

// MasterOrder is the buyer-level aggregate created once per checkout.
// Amounts are VND.
type MasterOrder struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Code                string     `gorm:"column:code;not null;uniqueIndex"`
	ReceiverName        string     `gorm:"column:receiver_name;not null"`
	ReceiverPhone       string     `gorm:"column:receiver_phone;not null"`
	ReceiverAddress     string     `gorm:"column:receiver_address;not null"`
	OriginalTotalAmount int64      `gorm:"column:original_total_amount;not null"`
	PlatformDiscount    int64      `gorm:"column:platform_discount;not null;default:0"`
	TotalAmountAtBuy    int64      `gorm:"column:total_amount_at_buy;not null"`
	SubOrders           []SubOrder `gorm:"foreignKey:MasterOrderID;constraint:OnDelete:CASCADE"`
	Payment             *Payment   `gorm:"foreignKey:MasterOrderID"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
