package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/repo"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
)

// Repository exposes the read surface the checkout path needs from
// the catalog collaborator: live variant price/stock, shop info and
// the per-shop shipping rule.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
	FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindShippingRuleByShopID(ctx context.Context, shopID uuid.UUID) (*models.ShopShippingRule, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.DB(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var variants []models.ProductVariant
	if err := r.DB(ctx).
		Where("id IN ?", ids).
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repository) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.DB(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShippingRuleByShopID(ctx context.Context, shopID uuid.UUID) (*models.ShopShippingRule, error) {
	var rule models.ShopShippingRule
	if err := r.DB(ctx).
		First(&rule, "shop_id = ?", shopID).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}
