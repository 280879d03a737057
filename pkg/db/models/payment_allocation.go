package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAllocation is the ledger row splitting one payment across
// suborders. The amounts under one payment always sum to the
// payment total.
type PaymentAllocation struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID  uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	SubOrderID uuid.UUID `gorm:"column:sub_order_id;type:uuid;not null;uniqueIndex"`
	Amount     int64     `gorm:"column:amount;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
