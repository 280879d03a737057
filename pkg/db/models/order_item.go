package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem freezes the price and naming of a purchased line at
// checkout time. Later catalog edits never touch these rows.
type OrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubOrderID  uuid.UUID `gorm:"column:sub_order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ProductName string    `gorm:"column:product_name;not null"`
	VariantName string    `gorm:"column:variant_name;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	UnitPrice   int64     `gorm:"column:unit_price;not null"`
	LineTotal   int64     `gorm:"column:line_total;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
