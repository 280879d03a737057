package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway providers report success with different result codes. VNPay
// uses "00", MoMo uses "0"; everything else is a failure.
var gatewaySuccessCodes = map[string]struct{}{
	"00": {},
	"0":  {},
}

// CallbackInput carries the fields shared by the customer-redirect
// return and the server-to-server notification.
type CallbackInput struct {
	PaymentID     uuid.UUID
	ResultCode    string
	TransactionID string
}

// CallbackResult reports what the callback did. Duplicate deliveries
// of a success callback set AlreadyProcessed instead of failing.
type CallbackResult struct {
	Payment          *models.Payment
	AlreadyProcessed bool
}

// Service settles gateway callbacks against the payment ledger.
type Service interface {
	HandleGatewayCallback(ctx context.Context, input CallbackInput) (*CallbackResult, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error)
	FindPaymentForSubOrder(ctx context.Context, tx *gorm.DB, subOrderID uuid.UUID) (*models.Payment, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService builds the payment ledger service.
func NewService(tx txRunner, repo Repository, logger zerolog.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	return &service{
		tx:     tx,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}, nil
}

// HandleGatewayCallback applies one gateway result to the ledger.
// Idempotent by payment id: a repeated success callback for an
// already-SUCCESS payment is a no-op.
func (s *service) HandleGatewayCallback(ctx context.Context, input CallbackInput) (*CallbackResult, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	_, succeeded := gatewaySuccessCodes[input.ResultCode]

	var result *CallbackResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return err
		}

		if payment.Status.IsTerminal() {
			if succeeded && payment.Status == enums.PaymentStatusSuccess {
				result = &CallbackResult{Payment: payment, AlreadyProcessed: true}
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already settled").
				WithDetails(map[string]any{"status": payment.Status.String()})
		}

		if !succeeded {
			if err := repo.MarkFailed(ctx, payment.ID, input.TransactionID); err != nil {
				return err
			}
			payment.Status = enums.PaymentStatusFailed
			payment.TransactionID = &input.TransactionID
			result = &CallbackResult{Payment: payment}
			s.logger.Warn().
				Str("payment_id", payment.ID.String()).
				Str("result_code", input.ResultCode).
				Msg("payment failed at gateway")
			return nil
		}

		paidAt := s.now()
		if err := repo.MarkSuccess(ctx, payment.ID, input.TransactionID, paidAt); err != nil {
			return err
		}
		subOrderIDs := make([]uuid.UUID, 0, len(payment.Allocations))
		for _, allocation := range payment.Allocations {
			subOrderIDs = append(subOrderIDs, allocation.SubOrderID)
		}
		if _, err := repo.MarkSubOrdersPaid(ctx, subOrderIDs); err != nil {
			return err
		}

		payment.Status = enums.PaymentStatusSuccess
		payment.TransactionID = &input.TransactionID
		payment.PaidAt = &paidAt
		result = &CallbackResult{Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another buyer")
	}
	return payment, nil
}

// FindPaymentForSubOrder resolves a suborder's payment through its
// allocation row, inside the caller's transaction.
func (s *service) FindPaymentForSubOrder(ctx context.Context, tx *gorm.DB, subOrderID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.WithTx(tx).FindBySubOrder(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for suborder")
		}
		return nil, err
	}
	return payment, nil
}
