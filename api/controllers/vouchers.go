package controllers

import (
	"net/http"
	"time"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/api/validators"
	vouchersvc "github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
)

type createVoucherRequest struct {
	Code              string    `json:"code" validate:"required,min=3,max=32"`
	DiscountType      string    `json:"discount_type" validate:"required,oneof=PERCENT FIXED"`
	DiscountValue     int64     `json:"discount_value" validate:"required,min=1"`
	MinOrderValue     int64     `json:"min_order_value" validate:"min=0"`
	MaxDiscountAmount *int64    `json:"max_discount_amount,omitempty"`
	UsageLimit        int       `json:"usage_limit" validate:"required,min=1"`
	PerUserLimit      int       `json:"per_user_limit" validate:"required,min=1"`
	StartsAt          time.Time `json:"starts_at" validate:"required"`
	EndsAt            time.Time `json:"ends_at" validate:"required"`
}

// ShopVoucherCreate creates a voucher scoped to the seller's own shop.
func ShopVoucherCreate(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ShopID = &shopID
		voucher, err := svc.CreateVoucher(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, voucher)
	}
}

// ShopVouchersList returns the seller's own vouchers.
func ShopVouchersList(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vouchers, err := svc.ListShopVouchers(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vouchers)
	}
}

// PlatformVouchersList returns the active platform-wide vouchers.
func PlatformVouchersList(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vouchers, err := svc.ListPlatformVouchers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vouchers)
	}
}

func (p createVoucherRequest) toInput() (vouchersvc.CreateVoucherInput, error) {
	discountType, err := enums.ParseVoucherDiscountType(p.DiscountType)
	if err != nil {
		return vouchersvc.CreateVoucherInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}
	if !p.EndsAt.After(p.StartsAt) {
		return vouchersvc.CreateVoucherInput{}, pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	return vouchersvc.CreateVoucherInput{
		Code:              p.Code,
		DiscountType:      discountType,
		DiscountValue:     p.DiscountValue,
		MinOrderValue:     p.MinOrderValue,
		MaxDiscountAmount: p.MaxDiscountAmount,
		UsageLimit:        p.UsageLimit,
		PerUserLimit:      p.PerUserLimit,
		StartsAt:          p.StartsAt,
		EndsAt:            p.EndsAt,
	}, nil
}
