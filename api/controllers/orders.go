package controllers

import (
	"net/http"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	"github.com/nqtuan-dev/vietshop-backend/api/validators"
	ordersvc "github.com/nqtuan-dev/vietshop-backend/internal/orders"
	subordersvc "github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
)

// OrdersList returns the buyer's orders, newest first.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListOrders(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderGet returns one of the buyer's orders with suborders, items and
// the payment ledger.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.PathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// SubOrderCancel lets the buyer cancel one suborder of their order.
func SubOrderCancel(svc subordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerID(r)
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
		subOrder, err := svc.BuyerCancel(r.Context(), userID, subOrderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}
