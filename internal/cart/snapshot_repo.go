package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

// SnapshotRepository persists the durable cart fallback for
// authenticated owners.
type SnapshotRepository interface {
	Upsert(ctx context.Context, userID uuid.UUID, items types.QuantityMap) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CartSnapshot, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository returns a snapshot repository bound to the
// provided database.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Upsert(ctx context.Context, userID uuid.UUID, items types.QuantityMap) error {
	snapshot := &models.CartSnapshot{UserID: userID, Items: items}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(snapshot).Error
}

func (r *snapshotRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartSnapshot{}, "user_id = ?", userID).Error
}
