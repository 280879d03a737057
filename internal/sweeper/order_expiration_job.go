package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/internal/inventory"
	"github.com/nqtuan-dev/vietshop-backend/internal/payments"
	"github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

const expiredReason = "payment window expired"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type voucherRollback interface {
	RollbackUsage(ctx context.Context, tx *gorm.DB, masterOrderID uuid.UUID) error
}

// OrderExpirationJob cancels suborders left unpaid past the TTL. Each
// suborder is reconciled in its own transaction so one failure never
// blocks the rest of the batch.
type OrderExpirationJob struct {
	tx        txRunner
	subOrders suborders.Repository
	payments  payments.Repository
	vouchers  voucherRollback
	logger    zerolog.Logger
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOrderExpirationJob wires the expiration sweep.
func NewOrderExpirationJob(
	tx txRunner,
	subOrdersRepo suborders.Repository,
	paymentsRepo payments.Repository,
	voucherSvc voucherRollback,
	logger zerolog.Logger,
	ttl, interval time.Duration,
	batchSize int,
) (*OrderExpirationJob, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if subOrdersRepo == nil {
		return nil, fmt.Errorf("suborder repository required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if voucherSvc == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	if ttl <= 0 || interval <= 0 {
		return nil, fmt.Errorf("ttl and interval must be positive")
	}
	return &OrderExpirationJob{
		tx:        tx,
		subOrders: subOrdersRepo,
		payments:  paymentsRepo,
		vouchers:  voucherSvc,
		logger:    logger,
		ttl:       ttl,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

func (j *OrderExpirationJob) Name() string { return "order_expiration" }

func (j *OrderExpirationJob) Interval() time.Duration { return j.interval }

func (j *OrderExpirationJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.ttl)
	expired, err := j.subOrders.ListPendingOlderThan(ctx, cutoff, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing expired suborders: %w", err)
	}

	var errs error
	processed := 0
	for _, subOrder := range expired {
		if err := j.expire(ctx, subOrder); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("suborder %s: %w", subOrder.ID, err))
			j.logger.Error().Err(err).
				Str("sub_order_id", subOrder.ID.String()).
				Msg("failed to expire suborder")
			continue
		}
		processed++
	}
	return processed, errs
}

func (j *OrderExpirationJob) expire(ctx context.Context, subOrder models.SubOrder) error {
	return j.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.subOrders.WithTx(tx)

		current, err := repo.FindByID(ctx, subOrder.ID)
		if err != nil {
			return err
		}
		// the guarded update re-checks under the transaction: a payment
		// callback or a buyer cancel may have landed since the listing
		won, err := repo.MarkCancelled(ctx, current.ID, enums.SubOrderStatusPendingPayment, expiredReason, j.now())
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		if err := inventory.Release(ctx, tx, inventory.ItemsFromOrderItems(current.Items)); err != nil {
			return err
		}
		if err := j.vouchers.RollbackUsage(ctx, tx, current.MasterOrderID); err != nil {
			return err
		}

		paymentsRepo := j.payments.WithTx(tx)
		payment, err := paymentsRepo.FindBySubOrder(ctx, current.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		expired, err := paymentsRepo.MarkExpiredIfPending(ctx, payment.ID)
		if err != nil {
			return err
		}
		if expired {
			j.logger.Info().
				Str("payment_id", payment.ID.String()).
				Str("sub_order_id", current.ID.String()).
				Msg("payment expired with its suborder")
		}
		return nil
	})
}
