package suborders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/inventory"
	"github.com/nqtuan-dev/vietshop-backend/internal/orders"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentLoader interface {
	FindPaymentForSubOrder(ctx context.Context, tx *gorm.DB, subOrderID uuid.UUID) (*models.Payment, error)
}

// sellerTransitionTargets are the statuses sellers may set through
// the transition command. PAID only arrives via payment callbacks and
// CANCELLED via the cancellation saga.
var sellerTransitionTargets = map[enums.SubOrderStatus]struct{}{
	enums.SubOrderStatusProcessing: {},
	enums.SubOrderStatusShipping:   {},
	enums.SubOrderStatusDelivered:  {},
	enums.SubOrderStatusCompleted:  {},
}

// Service drives the post-checkout suborder lifecycle and the
// cancellation/refund saga.
type Service interface {
	TransitionStatus(ctx context.Context, shopID, subOrderID uuid.UUID, target enums.SubOrderStatus) (*models.SubOrder, error)
	BuyerCancel(ctx context.Context, userID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error)
	SellerCancel(ctx context.Context, shopID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error)
	ResolveCancelRequest(ctx context.Context, shopID, subOrderID uuid.UUID, approve bool) (*models.SubOrder, error)
	ListShopSubOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopFilters) (*ShopSubOrderList, error)
	GetShopSubOrder(ctx context.Context, shopID, subOrderID uuid.UUID) (*models.SubOrder, error)
}

// ShopSubOrderList is one page of a seller's suborders.
type ShopSubOrderList struct {
	SubOrders  []models.SubOrder `json:"sub_orders"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type service struct {
	tx       txRunner
	repo     Repository
	orders   orders.Repository
	payments paymentLoader
	now      func() time.Time
}

// NewService builds the suborder lifecycle service.
func NewService(tx txRunner, repo Repository, ordersRepo orders.Repository, payments paymentLoader) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("suborder repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment loader required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		orders:   ordersRepo,
		payments: payments,
		now:      time.Now,
	}, nil
}

func (s *service) TransitionStatus(ctx context.Context, shopID, subOrderID uuid.UUID, target enums.SubOrderStatus) (*models.SubOrder, error) {
	if _, ok := sellerTransitionTargets[target]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "status cannot be set directly").
			WithDetails(map[string]any{"to": target.String()})
	}

	var updated *models.SubOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		subOrder, err := s.loadOwnedByShop(ctx, repo, shopID, subOrderID)
		if err != nil {
			return err
		}
		if err := CheckTransition(subOrder.Status, target); err != nil {
			return err
		}
		if RequiresSuccessfulPayment(target) {
			payment, err := s.payments.FindPaymentForSubOrder(ctx, tx, subOrderID)
			if err != nil {
				return err
			}
			if payment.Status != enums.PaymentStatusSuccess {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment has not succeeded").
					WithDetails(map[string]any{"payment_status": payment.Status.String()})
			}
		}
		won, err := repo.UpdateStatusFrom(ctx, subOrderID, subOrder.Status, target)
		if err != nil {
			return err
		}
		if !won {
			return errStatusChanged(subOrder.ID)
		}
		subOrder.Status = target
		updated = subOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) BuyerCancel(ctx context.Context, userID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var updated *models.SubOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		subOrder, err := s.load(ctx, repo, subOrderID)
		if err != nil {
			return err
		}
		master, err := s.orders.WithTx(tx).FindByID(ctx, subOrder.MasterOrderID)
		if err != nil {
			return err
		}
		if master.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}

		switch subOrder.Status {
		case enums.SubOrderStatusPendingPayment:
			// unpaid: close out and release stock, nothing to refund
			won, err := repo.MarkCancelled(ctx, subOrderID, subOrder.Status, reason, s.now())
			if err != nil {
				return err
			}
			if !won {
				return errStatusChanged(subOrder.ID)
			}
			if err := inventory.Release(ctx, tx, inventory.ItemsFromOrderItems(subOrder.Items)); err != nil {
				return err
			}
			subOrder.Status = enums.SubOrderStatusCancelled

		case enums.SubOrderStatusPaid, enums.SubOrderStatusProcessing:
			won, err := repo.UpdateStatusFrom(ctx, subOrderID, subOrder.Status, enums.SubOrderStatusCancelRequested)
			if err != nil {
				return err
			}
			if !won {
				return errStatusChanged(subOrder.ID)
			}
			payment, err := s.payments.FindPaymentForSubOrder(ctx, tx, subOrderID)
			if err != nil {
				return err
			}
			refund := &models.Refund{
				ID:         uuid.New(),
				SubOrderID: subOrderID,
				PaymentID:  payment.ID,
				Amount:     subOrder.TotalAmount,
				Reason:     reason,
				Status:     enums.RefundStatusRequested,
			}
			if err := repo.CreateRefund(ctx, refund); err != nil {
				return err
			}
			subOrder.Status = enums.SubOrderStatusCancelRequested

		default:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "suborder can no longer be cancelled").
				WithDetails(map[string]any{"status": subOrder.Status.String()})
		}
		updated = subOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) SellerCancel(ctx context.Context, shopID, subOrderID uuid.UUID, reason string) (*models.SubOrder, error) {
	var updated *models.SubOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		subOrder, err := s.loadOwnedByShop(ctx, repo, shopID, subOrderID)
		if err != nil {
			return err
		}
		if subOrder.Status != enums.SubOrderStatusPendingPayment && subOrder.Status != enums.SubOrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "suborder can no longer be cancelled").
				WithDetails(map[string]any{"status": subOrder.Status.String()})
		}

		won, err := repo.MarkCancelled(ctx, subOrderID, subOrder.Status, reason, s.now())
		if err != nil {
			return err
		}
		if !won {
			return errStatusChanged(subOrder.ID)
		}
		if err := inventory.Release(ctx, tx, inventory.ItemsFromOrderItems(subOrder.Items)); err != nil {
			return err
		}

		if subOrder.Status == enums.SubOrderStatusPaid {
			payment, err := s.payments.FindPaymentForSubOrder(ctx, tx, subOrderID)
			if err != nil {
				return err
			}
			resolvedAt := s.now()
			refund := &models.Refund{
				ID:         uuid.New(),
				SubOrderID: subOrderID,
				PaymentID:  payment.ID,
				Amount:     subOrder.TotalAmount,
				Reason:     reason,
				Status:     enums.RefundStatusApproved,
				ResolvedAt: &resolvedAt,
			}
			if err := repo.CreateRefund(ctx, refund); err != nil {
				return err
			}
		}
		subOrder.Status = enums.SubOrderStatusCancelled
		updated = subOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ResolveCancelRequest(ctx context.Context, shopID, subOrderID uuid.UUID, approve bool) (*models.SubOrder, error) {
	var updated *models.SubOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		subOrder, err := s.loadOwnedByShop(ctx, repo, shopID, subOrderID)
		if err != nil {
			return err
		}
		if subOrder.Status != enums.SubOrderStatusCancelRequested {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "no cancellation request pending").
				WithDetails(map[string]any{"status": subOrder.Status.String()})
		}
		refund, err := repo.FindOpenRefundBySubOrder(ctx, subOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request not found")
			}
			return err
		}
		resolvedAt := s.now()

		if !approve {
			// rejection puts the suborder back in the paid lane, stock untouched
			won, err := repo.UpdateStatusFrom(ctx, subOrderID, enums.SubOrderStatusCancelRequested, enums.SubOrderStatusPaid)
			if err != nil {
				return err
			}
			if !won {
				return errStatusChanged(subOrder.ID)
			}
			if err := repo.UpdateRefundStatus(ctx, refund.ID, enums.RefundStatusRejected, &resolvedAt); err != nil {
				return err
			}
			subOrder.Status = enums.SubOrderStatusPaid
			updated = subOrder
			return nil
		}

		won, err := repo.MarkCancelled(ctx, subOrderID, enums.SubOrderStatusCancelRequested, refund.Reason, resolvedAt)
		if err != nil {
			return err
		}
		if !won {
			return errStatusChanged(subOrder.ID)
		}
		if err := inventory.Release(ctx, tx, inventory.ItemsFromOrderItems(subOrder.Items)); err != nil {
			return err
		}
		if err := repo.UpdateRefundStatus(ctx, refund.ID, enums.RefundStatusApproved, &resolvedAt); err != nil {
			return err
		}
		subOrder.Status = enums.SubOrderStatusCancelled
		updated = subOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ListShopSubOrders(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopFilters) (*ShopSubOrderList, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	subOrders, next, err := s.repo.ListByShop(ctx, shopID, params, filters)
	if err != nil {
		return nil, err
	}
	return &ShopSubOrderList{SubOrders: subOrders, NextCursor: next}, nil
}

func (s *service) GetShopSubOrder(ctx context.Context, shopID, subOrderID uuid.UUID) (*models.SubOrder, error) {
	return s.loadOwnedByShop(ctx, s.repo, shopID, subOrderID)
}

// errStatusChanged reports a guarded status update that matched zero
// rows: another writer moved the suborder between our read and write.
func errStatusChanged(subOrderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "suborder status changed concurrently").
		WithDetails(map[string]any{"sub_order_id": subOrderID.String()})
}

func (s *service) load(ctx context.Context, repo Repository, subOrderID uuid.UUID) (*models.SubOrder, error) {
	if subOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suborder id required")
	}
	subOrder, err := repo.FindByID(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "suborder not found")
		}
		return nil, err
	}
	return subOrder, nil
}

func (s *service) loadOwnedByShop(ctx context.Context, repo Repository, shopID, subOrderID uuid.UUID) (*models.SubOrder, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	subOrder, err := s.load(ctx, repo, subOrderID)
	if err != nil {
		return nil, err
	}
	if subOrder.ShopID != shopID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "suborder belongs to another shop")
	}
	return subOrder, nil
}
