package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nqtuan-dev/vietshop-backend/api/middleware"
	cartsvc "github.com/nqtuan-dev/vietshop-backend/internal/cart"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

func buyerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func sellerShopID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ShopIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller shop context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid shop id")
	}
	return id, nil
}

// cartOwner resolves the tagged cart identity: an authenticated buyer
// when a user claim is present, otherwise the guest token.
func cartOwner(r *http.Request) (cartsvc.Identifier, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Identifier{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cartsvc.UserIdentifier(id), nil
	}
	if token := middleware.GuestTokenFromContext(r.Context()); token != "" {
		return cartsvc.GuestIdentifier(token), nil
	}
	return cartsvc.Identifier{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials or guest token")
}
