package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/api/validators"
	paymentsvc "github.com/nqtuan-dev/vietshop-backend/internal/payments"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
)

// PaymentGet returns a payment with its allocations, buyer-owned.
func PaymentGet(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.PathUUID(r, "paymentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.GetPayment(r.Context(), userID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// GatewayReturn handles the customer redirect back from the gateway.
// The gateway appends the outcome as query parameters.
func GatewayReturn(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := callbackFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.HandleGatewayCallback(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type gatewayNotifyRequest struct {
	PaymentID     uuid.UUID `json:"payment_id" validate:"required"`
	ResultCode    string    `json:"result_code" validate:"required"`
	TransactionID string    `json:"transaction_id"`
}

// GatewayNotify handles the server-to-server notification. Same
// idempotent handler as the redirect return.
func GatewayNotify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gatewayNotifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.HandleGatewayCallback(r.Context(), paymentsvc.CallbackInput{
			PaymentID:     payload.PaymentID,
			ResultCode:    payload.ResultCode,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func callbackFromQuery(r *http.Request) (paymentsvc.CallbackInput, error) {
	query := r.URL.Query()
	rawID := strings.TrimSpace(query.Get("payment_id"))
	paymentID, err := uuid.Parse(rawID)
	if err != nil {
		return paymentsvc.CallbackInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id").
			WithDetails(map[string]any{"field": "payment_id"})
	}
	resultCode := strings.TrimSpace(query.Get("result_code"))
	if resultCode == "" {
		return paymentsvc.CallbackInput{}, pkgerrors.New(pkgerrors.CodeValidation, "result code required").
			WithDetails(map[string]any{"field": "result_code"})
	}
	return paymentsvc.CallbackInput{
		PaymentID:     paymentID,
		ResultCode:    resultCode,
		TransactionID: strings.TrimSpace(query.Get("transaction_id")),
	}, nil
}
