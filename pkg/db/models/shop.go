package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shop is the seller-side aggregate that suborders attach to.
type Shop struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID        `gorm:"column:owner_id;type:uuid;not null"`
	Name           string           `gorm:"column:name;not null"`
	CommissionRate *decimal.Decimal `gorm:"column:commission_rate;type:numeric(6,4)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
