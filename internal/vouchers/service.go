package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

// Service defines the voucher engine surface. Validation and usage
// accounting run inside the caller's checkout transaction; the admin
// operations run standalone.
type Service interface {
	ValidateAndCalculate(ctx context.Context, tx *gorm.DB, input ValidateInput) (*Validated, error)
	Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) error
	RollbackUsage(ctx context.Context, tx *gorm.DB, masterOrderID uuid.UUID) error
	CreateVoucher(ctx context.Context, input CreateVoucherInput) (*models.Voucher, error)
	ListShopVouchers(ctx context.Context, shopID uuid.UUID) ([]models.Voucher, error)
	ListPlatformVouchers(ctx context.Context) ([]models.Voucher, error)
}

// ValidateInput carries everything eligibility checks need.
type ValidateInput struct {
	Code       string
	UserID     uuid.UUID
	OrderTotal int64
	ShopIDs    []uuid.UUID
}

// Validated is the outcome of a successful eligibility check.
type Validated struct {
	Voucher  *models.Voucher
	Discount int64
}

// ApplyInput records one redemption inside the checkout transaction.
type ApplyInput struct {
	VoucherID     uuid.UUID
	UserID        uuid.UUID
	MasterOrderID uuid.UUID
	Discount      int64
}

// CreateVoucherInput is the admin creation payload. A nil ShopID
// creates a platform voucher.
type CreateVoucherInput struct {
	Code              string
	DiscountType      enums.VoucherDiscountType
	DiscountValue     int64
	MinOrderValue     int64
	MaxDiscountAmount *int64
	UsageLimit        int
	PerUserLimit      int
	StartsAt          time.Time
	EndsAt            time.Time
	ShopID            *uuid.UUID
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the voucher engine with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) ValidateAndCalculate(ctx context.Context, tx *gorm.DB, input ValidateInput) (*Validated, error) {
	// codes are stored upper-cased, match the normalization on create
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	repo := s.repo.WithTx(tx)

	voucher, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher not found")
		}
		return nil, err
	}
	if voucher.Status != enums.VoucherStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher is not active")
	}
	now := s.now()
	if now.Before(voucher.StartsAt) || now.After(voucher.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher is outside its validity window")
	}
	if voucher.UsageCount >= voucher.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher usage limit reached")
	}
	userUsage, err := repo.CountUserUsage(ctx, voucher.ID, input.UserID)
	if err != nil {
		return nil, err
	}
	if userUsage >= int64(voucher.PerUserLimit) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher already used by this user")
	}
	if voucher.Type == enums.VoucherTypeShop {
		if voucher.ShopID == nil || !containsShop(input.ShopIDs, *voucher.ShopID) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher does not apply to the selected shops")
		}
	}
	if input.OrderTotal < voucher.MinOrderValue {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "order total below voucher minimum")
	}

	return &Validated{
		Voucher:  voucher,
		Discount: calculateDiscount(voucher, input.OrderTotal),
	}, nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	repo := s.repo.WithTx(tx)

	bumped, err := repo.IncrementUsage(ctx, input.VoucherID)
	if err != nil {
		return err
	}
	if !bumped {
		return pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher usage limit reached")
	}
	usage := &models.VoucherUsage{
		ID:              uuid.New(),
		VoucherID:       input.VoucherID,
		MasterOrderID:   input.MasterOrderID,
		UserID:          input.UserID,
		DiscountApplied: input.Discount,
	}
	return repo.InsertUsage(ctx, usage)
}

// RollbackUsage reverses a redemption for an expired order. A master
// order without a usage row is a no-op.
func (s *service) RollbackUsage(ctx context.Context, tx *gorm.DB, masterOrderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	repo := s.repo.WithTx(tx)

	usage, err := repo.FindUsageByMasterOrder(ctx, masterOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := repo.DecrementUsage(ctx, usage.VoucherID); err != nil {
		return err
	}
	return repo.DeleteUsage(ctx, usage.ID)
}

func (s *service) CreateVoucher(ctx context.Context, input CreateVoucherInput) (*models.Voucher, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.VoucherDiscountPercent && input.DiscountValue > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent discount cannot exceed 100")
	}
	if input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher window must end after it starts")
	}

	voucherType := enums.VoucherTypePlatform
	if input.ShopID != nil {
		voucherType = enums.VoucherTypeShop
	}
	perUserLimit := input.PerUserLimit
	if perUserLimit <= 0 {
		perUserLimit = 1
	}

	voucher := &models.Voucher{
		Code:              code,
		Type:              voucherType,
		DiscountType:      input.DiscountType,
		DiscountValue:     input.DiscountValue,
		MinOrderValue:     input.MinOrderValue,
		MaxDiscountAmount: input.MaxDiscountAmount,
		UsageLimit:        input.UsageLimit,
		PerUserLimit:      perUserLimit,
		StartsAt:          input.StartsAt,
		EndsAt:            input.EndsAt,
		ShopID:            input.ShopID,
		Status:            enums.VoucherStatusActive,
	}
	voucher.ID = uuid.New()
	if err := s.repo.Create(ctx, voucher); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "voucher code already exists")
		}
		return nil, err
	}
	return voucher, nil
}

func (s *service) ListShopVouchers(ctx context.Context, shopID uuid.UUID) ([]models.Voucher, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	return s.repo.ListByShop(ctx, shopID)
}

func (s *service) ListPlatformVouchers(ctx context.Context) ([]models.Voucher, error) {
	return s.repo.ListPlatform(ctx)
}

// calculateDiscount applies the voucher formula: percent of the order
// total capped by the voucher ceiling, or a fixed cut. The result is
// never larger than the order total.
func calculateDiscount(voucher *models.Voucher, orderTotal int64) int64 {
	var discount int64
	switch voucher.DiscountType {
	case enums.VoucherDiscountPercent:
		discount = decimal.NewFromInt(orderTotal).
			Mul(decimal.NewFromInt(voucher.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			IntPart()
		if voucher.MaxDiscountAmount != nil && discount > *voucher.MaxDiscountAmount {
			discount = *voucher.MaxDiscountAmount
		}
	case enums.VoucherDiscountFixed:
		discount = voucher.DiscountValue
	}
	if discount > orderTotal {
		discount = orderTotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func containsShop(shopIDs []uuid.UUID, target uuid.UUID) bool {
	for _, id := range shopIDs {
		if id == target {
			return true
		}
	}
	return false
}
