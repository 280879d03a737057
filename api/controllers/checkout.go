package controllers

import (
	"net/http"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/api/validators"
	checkoutsvc "github.com/nqtuan-dev/vietshop-backend/internal/checkout"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/types"
)

type checkoutRequest struct {
	Items           map[string]int `json:"items" validate:"required,min=1"`
	ReceiverName    string         `json:"receiver_name" validate:"required"`
	ReceiverPhone   string         `json:"receiver_phone" validate:"required"`
	ReceiverAddress string         `json:"receiver_address" validate:"required"`
	PaymentMethod   string         `json:"payment_method" validate:"required"`
	VoucherCode     string         `json:"voucher_code"`
}

// Checkout splits the selected cart lines into per-shop suborders and
// opens a payment for the total.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), userID, checkoutsvc.Input{
			Selection:       types.QuantityMap(payload.Items),
			ReceiverName:    payload.ReceiverName,
			ReceiverPhone:   payload.ReceiverPhone,
			ReceiverAddress: payload.ReceiverAddress,
			PaymentMethod:   method,
			VoucherCode:     payload.VoucherCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
