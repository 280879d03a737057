package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopShippingRule defines the per-shop shipping fee formula.
// FreeShipMin, when set, waives the fee once the item subtotal
// reaches the threshold.
type ShopShippingRule struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID       uuid.UUID `gorm:"column:shop_id;type:uuid;not null;uniqueIndex"`
	BaseFee      int64     `gorm:"column:base_fee;not null"`
	ExtraPerItem int64     `gorm:"column:extra_per_item;not null;default:0"`
	FreeShipMin  *int64    `gorm:"column:free_ship_min"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
