package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/catalog"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

type cache interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, pairs ...any) error
	HDel(ctx context.Context, key string, fields ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	UserCartKey(userID string) string
	GuestCartKey(token string) string
}

// Line is one denormalized cart row joined against live catalog data.
// It is a read-only projection and never persisted.
type Line struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	ShopID      uuid.UUID `json:"shop_id"`
	ShopName    string    `json:"shop_name"`
	UnitPrice   int64     `json:"unit_price"`
	Stock       int       `json:"stock"`
	Quantity    int       `json:"quantity"`
	LineTotal   int64     `json:"line_total"`
}

// Projection is the buyer-facing view of a cart.
type Projection struct {
	Lines        []Line     `json:"lines"`
	TotalItems   int        `json:"total_items"`
	TotalAmount  int64      `json:"total_amount"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// Service exposes the hot-cache cart operations. Stock checks here
// are advisory; the atomic reservation at checkout is the real guard.
type Service interface {
	Get(ctx context.Context, owner Identifier) (*Projection, error)
	AddItem(ctx context.Context, owner Identifier, variantID uuid.UUID, quantity int) error
	UpdateQuantity(ctx context.Context, owner Identifier, variantID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, owner Identifier, variantID uuid.UUID) error
	Clear(ctx context.Context, owner Identifier) error
	Lines(ctx context.Context, owner Identifier) (types.QuantityMap, error)
	RemoveLines(ctx context.Context, owner Identifier, variantIDs []uuid.UUID) error
}

type service struct {
	cache     cache
	snapshots SnapshotRepository
	catalog   catalog.Repository
	ttl       time.Duration
	now       func() time.Time
}

// NewService builds the cart store backed by the provided stack.
func NewService(cache cache, snapshots SnapshotRepository, catalogRepo catalog.Repository, ttl time.Duration) (Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &service{
		cache:     cache,
		snapshots: snapshots,
		catalog:   catalogRepo,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (s *service) key(owner Identifier) (string, error) {
	if !owner.Valid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart owner required")
	}
	if userID, ok := owner.UserID(); ok {
		return s.cache.UserCartKey(userID.String()), nil
	}
	return s.cache.GuestCartKey(ownerGuestToken(owner)), nil
}

func ownerGuestToken(owner Identifier) string {
	return owner.guestID
}

func (s *service) Get(ctx context.Context, owner Identifier) (*Projection, error) {
	key, err := s.key(owner)
	if err != nil {
		return nil, err
	}
	fields, err := s.cache.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	items, lastActivity := DecodeHash(fields)

	// guest carts have no durable fallback
	if len(items) == 0 {
		userID, ok := owner.UserID()
		if !ok {
			return &Projection{}, nil
		}
		hydrated, err := s.hydrateFromSnapshot(ctx, key, userID)
		if err != nil {
			return nil, err
		}
		if hydrated == nil {
			return &Projection{}, nil
		}
		items = hydrated
		lastActivity = s.now()
	}

	return s.project(ctx, items, lastActivity)
}

func (s *service) hydrateFromSnapshot(ctx context.Context, key string, userID uuid.UUID) (types.QuantityMap, error) {
	snapshot, err := s.snapshots.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, nil
	}
	pairs := make([]any, 0, len(snapshot.Items)*2+2)
	for variantID, qty := range snapshot.Items {
		pairs = append(pairs, variantID, qty)
	}
	pairs = append(pairs, activityField, encodeActivity(s.now()))
	if err := s.cache.HSet(ctx, key, pairs...); err != nil {
		return nil, err
	}
	if err := s.cache.Expire(ctx, key, s.ttl); err != nil {
		return nil, err
	}
	return snapshot.Items, nil
}

func (s *service) project(ctx context.Context, items types.QuantityMap, lastActivity time.Time) (*Projection, error) {
	projection := &Projection{Lines: []Line{}}
	if !lastActivity.IsZero() {
		at := lastActivity
		projection.LastActivity = &at
	}
	if len(items) == 0 {
		return projection, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for raw := range items {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	variants, err := s.catalog.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	shopNames := map[uuid.UUID]string{}
	for _, variant := range variants {
		qty := items[variant.ID.String()]
		if qty <= 0 {
			continue
		}
		shopName, ok := shopNames[variant.ShopID]
		if !ok {
			shop, err := s.catalog.FindShopByID(ctx, variant.ShopID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, err
			}
			shopName = shop.Name
			shopNames[variant.ShopID] = shopName
		}
		line := Line{
			VariantID:   variant.ID,
			ProductID:   variant.ProductID,
			ProductName: variant.ProductName,
			VariantName: variant.Name,
			ShopID:      variant.ShopID,
			ShopName:    shopName,
			UnitPrice:   variant.Price,
			Stock:       variant.Stock,
			Quantity:    qty,
			LineTotal:   variant.Price * int64(qty),
		}
		projection.Lines = append(projection.Lines, line)
		projection.TotalItems += qty
		projection.TotalAmount += line.LineTotal
	}
	return projection, nil
}

func (s *service) AddItem(ctx context.Context, owner Identifier, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	variant, err := s.loadVariant(ctx, variantID)
	if err != nil {
		return err
	}
	fields, err := s.cache.HGetAll(ctx, key)
	if err != nil {
		return err
	}
	items, _ := DecodeHash(fields)
	next := items[variantID.String()] + quantity
	if next > variant.Stock {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"variant_id": variantID.String(), "stock": variant.Stock})
	}
	if err := s.cache.HSet(ctx, key, variantID.String(), next); err != nil {
		return err
	}
	return s.touch(ctx, key)
}

func (s *service) UpdateQuantity(ctx context.Context, owner Identifier, variantID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, variantID)
	}
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	variant, err := s.loadVariant(ctx, variantID)
	if err != nil {
		return err
	}
	if quantity > variant.Stock {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"variant_id": variantID.String(), "stock": variant.Stock})
	}
	if err := s.cache.HSet(ctx, key, variantID.String(), quantity); err != nil {
		return err
	}
	return s.touch(ctx, key)
}

func (s *service) RemoveItem(ctx context.Context, owner Identifier, variantID uuid.UUID) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	if err := s.cache.HDel(ctx, key, variantID.String()); err != nil {
		return err
	}
	return s.touch(ctx, key)
}

func (s *service) Clear(ctx context.Context, owner Identifier) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	return s.cache.Del(ctx, key)
}

// Lines returns the raw quantity map for checkout re-resolution.
func (s *service) Lines(ctx context.Context, owner Identifier) (types.QuantityMap, error) {
	key, err := s.key(owner)
	if err != nil {
		return nil, err
	}
	fields, err := s.cache.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	items, _ := DecodeHash(fields)
	return items, nil
}

// RemoveLines drops purchased lines after checkout. Best effort by
// contract: the caller treats failures as non-fatal.
func (s *service) RemoveLines(ctx context.Context, owner Identifier, variantIDs []uuid.UUID) error {
	if len(variantIDs) == 0 {
		return nil
	}
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	fields := make([]string, 0, len(variantIDs))
	for _, id := range variantIDs {
		fields = append(fields, id.String())
	}
	if err := s.cache.HDel(ctx, key, fields...); err != nil {
		return err
	}
	return s.touch(ctx, key)
}

func (s *service) loadVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.catalog.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, err
	}
	return variant, nil
}

// touch refreshes the activity marker and extends the sliding
// expiration window.
func (s *service) touch(ctx context.Context, key string) error {
	if err := s.cache.HSet(ctx, key, activityField, encodeActivity(s.now())); err != nil {
		return err
	}
	return s.cache.Expire(ctx, key, s.ttl)
}
