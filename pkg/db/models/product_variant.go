package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the purchasable unit. Stock is the contended
// counter that checkout reservation decrements.
type ProductVariant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ShopID      uuid.UUID `gorm:"column:shop_id;type:uuid;not null"`
	ProductName string    `gorm:"column:product_name;not null"`
	Name        string    `gorm:"column:name;not null"`
	SKU         *string   `gorm:"column:sku"`
	Price       int64     `gorm:"column:price;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
