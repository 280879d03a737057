package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

// Refund models the business decision on money owed back to the
// buyer after a cancellation. Actual money movement is external.
type Refund struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubOrderID uuid.UUID          `gorm:"column:sub_order_id;type:uuid;not null;index"`
	PaymentID  uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;index"`
	Amount     int64              `gorm:"column:amount;not null"`
	Reason     string             `gorm:"column:reason;not null"`
	Status     enums.RefundStatus `gorm:"column:status;not null;default:'REQUESTED'"`
	ResolvedAt *time.Time         `gorm:"column:resolved_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
