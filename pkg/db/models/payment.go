package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

// Payment funds every suborder of one master order. Allocations
// split its amount across them.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MasterOrderID uuid.UUID           `gorm:"column:master_order_id;type:uuid;not null;uniqueIndex"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount   int64               `gorm:"column:total_amount;not null"`
	Method        enums.PaymentMethod `gorm:"column:method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	TransactionID *string             `gorm:"column:transaction_id"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	Allocations   []PaymentAllocation `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
