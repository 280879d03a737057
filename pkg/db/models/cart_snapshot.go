package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

// CartSnapshot is the durable fallback for authenticated carts.
// Written only by the idle sync pass, read only on cache miss.
type CartSnapshot struct {
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;primaryKey"`
	Items     types.QuantityMap `gorm:"column:items;type:jsonb;serializer:json;not null"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
