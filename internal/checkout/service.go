package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	"github.com/nqtuan-dev/vietshop-backend/internal/catalog"
	"github.com/nqtuan-dev/vietshop-backend/internal/inventory"
	"github.com/nqtuan-dev/vietshop-backend/internal/orders"
	"github.com/nqtuan-dev/vietshop-backend/internal/payments"
	"github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartLines interface {
	Lines(ctx context.Context, owner cart.Identifier) (types.QuantityMap, error)
	RemoveLines(ctx context.Context, owner cart.Identifier, variantIDs []uuid.UUID) error
}

type voucherEngine interface {
	ValidateAndCalculate(ctx context.Context, tx *gorm.DB, input vouchers.ValidateInput) (*vouchers.Validated, error)
	Apply(ctx context.Context, tx *gorm.DB, input vouchers.ApplyInput) error
}

// Input is the checkout command. Selection quantities override the
// cart's quantities for this purchase.
type Input struct {
	Selection       types.QuantityMap
	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	PaymentMethod   enums.PaymentMethod
	VoucherCode     string
}

// Result is what the buyer needs to proceed to the gateway.
type Result struct {
	MasterOrderID uuid.UUID `json:"master_order_id"`
	OrderCode     string    `json:"order_code"`
	TotalAmount   int64     `json:"total_amount"`
	PaymentID     uuid.UUID `json:"payment_id"`
}

// Service splits one cart selection into per-shop suborders, reserves
// stock, prices everything and opens the payment, all in one
// transaction.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx             txRunner
	cart           cartLines
	catalog        catalog.Repository
	vouchers       voucherEngine
	orders         orders.Repository
	payments       payments.Repository
	commissionRate decimal.Decimal
	logger         zerolog.Logger
	now            func() time.Time
}

// NewService wires the checkout orchestrator. commissionRate is the
// platform default applied when a shop has no override.
func NewService(
	tx txRunner,
	cartSvc cartLines,
	catalogRepo catalog.Repository,
	voucherSvc voucherEngine,
	ordersRepo orders.Repository,
	paymentsRepo payments.Repository,
	commissionRate decimal.Decimal,
	logger zerolog.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if voucherSvc == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if commissionRate.IsNegative() {
		return nil, fmt.Errorf("commission rate must not be negative")
	}
	return &service{
		tx:             tx,
		cart:           cartSvc,
		catalog:        catalogRepo,
		vouchers:       voucherSvc,
		orders:         ordersRepo,
		payments:       paymentsRepo,
		commissionRate: commissionRate,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// line is one resolved selection entry with its catalog snapshot.
type line struct {
	variant  models.ProductVariant
	quantity int
}

// shopGroup accumulates one shop's lines and priced totals.
type shopGroup struct {
	shopID         uuid.UUID
	lines          []line
	itemsTotal     int64
	itemCount      int
	shippingFee    int64
	shopDiscount   int64
	platformShare  int64
	commission     int64
	commissionRate decimal.Decimal
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "checkout requires an authenticated buyer")
	}
	if len(input.Selection) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selection is empty")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"method": string(input.PaymentMethod)})
	}

	owner := cart.UserIdentifier(userID)
	var result *Result
	var purchased []uuid.UUID

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.resolveSelection(ctx, tx, owner, input.Selection)
		if err != nil {
			return err
		}

		groups, cartItemsTotal, err := s.groupByShop(ctx, tx, resolved)
		if err != nil {
			return err
		}

		reserve := make([]inventory.Item, 0, len(resolved))
		for _, ln := range resolved {
			reserve = append(reserve, inventory.Item{VariantID: ln.variant.ID, Quantity: ln.quantity})
		}
		if err := inventory.Reserve(ctx, tx, reserve); err != nil {
			return err
		}

		var validated *vouchers.Validated
		if input.VoucherCode != "" {
			shopIDs := make([]uuid.UUID, 0, len(groups))
			for _, group := range groups {
				shopIDs = append(shopIDs, group.shopID)
			}
			validated, err = s.vouchers.ValidateAndCalculate(ctx, tx, vouchers.ValidateInput{
				Code:       input.VoucherCode,
				UserID:     userID,
				OrderTotal: cartItemsTotal,
				ShopIDs:    shopIDs,
			})
			if err != nil {
				return err
			}
		}
		s.applyDiscounts(groups, cartItemsTotal, validated)

		now := s.now()
		master := s.buildMasterOrder(userID, input, groups, now)
		if err := s.orders.WithTx(tx).Create(ctx, master); err != nil {
			return err
		}

		payment := s.buildPayment(master, input.PaymentMethod)
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		if validated != nil {
			if err := s.vouchers.Apply(ctx, tx, vouchers.ApplyInput{
				VoucherID:     validated.Voucher.ID,
				UserID:        userID,
				MasterOrderID: master.ID,
				Discount:      validated.Discount,
			}); err != nil {
				return err
			}
		}

		purchased = make([]uuid.UUID, 0, len(resolved))
		for _, ln := range resolved {
			purchased = append(purchased, ln.variant.ID)
		}
		result = &Result{
			MasterOrderID: master.ID,
			OrderCode:     master.Code,
			TotalAmount:   master.TotalAmountAtBuy,
			PaymentID:     payment.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// cleanup is outside the atomic boundary; a failure leaves stale
	// cart lines that the next checkout re-validates anyway
	if err := s.cart.RemoveLines(ctx, owner, purchased); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Msg("failed to remove purchased cart lines")
	}
	return result, nil
}

// resolveSelection checks the selection against the live cart and the
// catalog, freezing variant data for the order.
func (s *service) resolveSelection(ctx context.Context, tx *gorm.DB, owner cart.Identifier, selection types.QuantityMap) ([]line, error) {
	live, err := s.cart.Lines(ctx, owner)
	if err != nil {
		return nil, err
	}

	variantIDs := make([]uuid.UUID, 0, len(selection))
	quantities := make(map[uuid.UUID]int, len(selection))
	for raw, quantity := range selection {
		if quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selection quantity must be positive").
				WithDetails(map[string]any{"variant_id": raw})
		}
		variantID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid variant id in selection").
				WithDetails(map[string]any{"variant_id": raw})
		}
		if _, ok := live[raw]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStaleCartSelection, "selected item is no longer in the cart").
				WithDetails(map[string]any{"variant_id": raw})
		}
		variantIDs = append(variantIDs, variantID)
		quantities[variantID] = quantity
	}

	variants, err := s.catalog.WithTx(tx).FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.ProductVariant, len(variants))
	for _, variant := range variants {
		byID[variant.ID] = variant
	}

	resolved := make([]line, 0, len(variantIDs))
	for _, variantID := range variantIDs {
		variant, ok := byID[variantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStaleCartSelection, "selected item no longer exists").
				WithDetails(map[string]any{"variant_id": variantID.String()})
		}
		resolved = append(resolved, line{variant: variant, quantity: quantities[variantID]})
	}
	// deterministic processing order for stable pricing and tests
	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].variant.ID.String() < resolved[j].variant.ID.String()
	})
	return resolved, nil
}

// groupByShop buckets lines per shop and resolves each shop's
// shipping rule up front so a missing rule aborts before any writes.
func (s *service) groupByShop(ctx context.Context, tx *gorm.DB, resolved []line) ([]*shopGroup, int64, error) {
	repo := s.catalog.WithTx(tx)
	byShop := make(map[uuid.UUID]*shopGroup)
	order := make([]uuid.UUID, 0)

	var cartItemsTotal int64
	for _, ln := range resolved {
		group, ok := byShop[ln.variant.ShopID]
		if !ok {
			group = &shopGroup{shopID: ln.variant.ShopID}
			byShop[ln.variant.ShopID] = group
			order = append(order, ln.variant.ShopID)
		}
		lineTotal := ln.variant.Price * int64(ln.quantity)
		group.lines = append(group.lines, ln)
		group.itemsTotal += lineTotal
		group.itemCount += ln.quantity
		cartItemsTotal += lineTotal
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })

	groups := make([]*shopGroup, 0, len(byShop))
	for _, shopID := range order {
		group := byShop[shopID]
		rule, err := repo.FindShippingRuleByShopID(ctx, shopID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, pkgerrors.New(pkgerrors.CodeMissingShippingRule, "shop has no shipping rule").
					WithDetails(map[string]any{"shop_id": shopID.String()})
			}
			return nil, 0, err
		}
		group.shippingFee = rule.BaseFee + rule.ExtraPerItem*int64(group.itemCount)
		if rule.FreeShipMin != nil && group.itemsTotal >= *rule.FreeShipMin {
			group.shippingFee = 0
		}

		shop, err := repo.FindShopByID(ctx, shopID)
		if err != nil {
			return nil, 0, err
		}
		group.commissionRate = s.commissionRate
		if shop.CommissionRate != nil {
			group.commissionRate = *shop.CommissionRate
		}
		group.commission = commissionFor(group.itemsTotal, group.commissionRate)
		groups = append(groups, group)
	}
	return groups, cartItemsTotal, nil
}

// applyDiscounts distributes the voucher discount across shops. A
// SHOP voucher lands entirely on its shop; a PLATFORM voucher is split
// proportionally to item subtotals, with the last shop absorbing the
// rounding remainder so the shares sum exactly.
func (s *service) applyDiscounts(groups []*shopGroup, cartItemsTotal int64, validated *vouchers.Validated) {
	if validated == nil || validated.Discount == 0 {
		return
	}
	voucher := validated.Voucher
	discount := validated.Discount

	if voucher.Type == enums.VoucherTypeShop && voucher.ShopID != nil {
		for _, group := range groups {
			if group.shopID == *voucher.ShopID {
				group.shopDiscount = min(discount, group.itemsTotal)
				group.commission = commissionFor(group.itemsTotal-group.shopDiscount, group.commissionRate)
			}
		}
		return
	}

	var distributed int64
	for i, group := range groups {
		if i == len(groups)-1 {
			group.platformShare = discount - distributed
			break
		}
		share := decimal.NewFromInt(discount).
			Mul(decimal.NewFromInt(group.itemsTotal)).
			Div(decimal.NewFromInt(cartItemsTotal)).
			Floor().IntPart()
		group.platformShare = share
		distributed += share
	}
}

func commissionFor(base int64, rate decimal.Decimal) int64 {
	if base <= 0 {
		return 0
	}
	return decimal.NewFromInt(base).Mul(rate).Round(0).IntPart()
}

func (s *service) buildMasterOrder(userID uuid.UUID, input Input, groups []*shopGroup, now time.Time) *models.MasterOrder {
	master := &models.MasterOrder{
		ID:              uuid.New(),
		UserID:          userID,
		Code:            newMasterOrderCode(now),
		ReceiverName:    input.ReceiverName,
		ReceiverPhone:   input.ReceiverPhone,
		ReceiverAddress: input.ReceiverAddress,
	}

	for _, group := range groups {
		subOrder := models.SubOrder{
			ID:               uuid.New(),
			MasterOrderID:    master.ID,
			ShopID:           group.shopID,
			Code:             newSubOrderCode(now),
			Status:           enums.SubOrderStatusPendingPayment,
			ItemsTotal:       group.itemsTotal,
			ShippingFee:      group.shippingFee,
			DiscountAmount:   group.shopDiscount,
			PlatformShare:    group.platformShare,
			CommissionAmount: group.commission,
			RealAmount:       group.itemsTotal - group.shopDiscount - group.commission + group.shippingFee,
			TotalAmount:      group.itemsTotal - group.shopDiscount - group.platformShare + group.shippingFee,
		}
		for _, ln := range group.lines {
			subOrder.Items = append(subOrder.Items, models.OrderItem{
				ID:          uuid.New(),
				SubOrderID:  subOrder.ID,
				ProductID:   ln.variant.ProductID,
				VariantID:   ln.variant.ID,
				ProductName: ln.variant.ProductName,
				VariantName: ln.variant.Name,
				Quantity:    ln.quantity,
				UnitPrice:   ln.variant.Price,
				LineTotal:   ln.variant.Price * int64(ln.quantity),
			})
		}
		master.SubOrders = append(master.SubOrders, subOrder)
		master.OriginalTotalAmount += group.itemsTotal + group.shippingFee
		master.PlatformDiscount += group.platformShare
		master.TotalAmountAtBuy += subOrder.TotalAmount
	}
	return master
}

func (s *service) buildPayment(master *models.MasterOrder, method enums.PaymentMethod) *models.Payment {
	payment := &models.Payment{
		ID:            uuid.New(),
		MasterOrderID: master.ID,
		UserID:        master.UserID,
		TotalAmount:   master.TotalAmountAtBuy,
		Method:        method,
		Status:        enums.PaymentStatusPending,
	}
	for _, subOrder := range master.SubOrders {
		payment.Allocations = append(payment.Allocations, models.PaymentAllocation{
			ID:         uuid.New(),
			PaymentID:  payment.ID,
			SubOrderID: subOrder.ID,
			Amount:     subOrder.TotalAmount,
		})
	}
	return payment
}
