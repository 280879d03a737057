package controllers

import (
	"net/http"
	"strings"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/api/validators"
	subordersvc "github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
)

// ShopSubOrdersList returns the seller's suborders with an optional
// status filter.
func ShopSubOrdersList(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters subordersvc.ShopFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSubOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.ListShopSubOrders(r.Context(), shopID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ShopSubOrderGet returns one suborder owned by the seller's shop.
func ShopSubOrderGet(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrderID, err := validators.PathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrder, err := svc.GetShopSubOrder(r.Context(), shopID, subOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// SubOrderTransition moves a suborder along the fulfillment lifecycle.
func SubOrderTransition(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrderID, err := validators.PathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseSubOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}
		subOrder, err := svc.TransitionStatus(r.Context(), shopID, subOrderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}

// SellerSubOrderCancel cancels an unshipped suborder on the seller's
// initiative.
func SellerSubOrderCancel(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrderID, err := validators.PathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrder, err := svc.SellerCancel(r.Context(), shopID, subOrderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}

type resolveCancelRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
}

// SubOrderResolveCancel approves or rejects a buyer's cancellation
// request.
func SubOrderResolveCancel(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := sellerShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrderID, err := validators.PathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload resolveCancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrder, err := svc.ResolveCancelRequest(r.Context(), shopID, subOrderID, payload.Decision == "APPROVE")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}
