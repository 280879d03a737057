package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nqtuan-dev/vietshop-backend/pkg/db/models"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/pagination"
)

// Service exposes buyer-facing order queries. Writes happen through
// the checkout orchestrator, never here.
type Service interface {
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.MasterOrder, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}

// OrderList is one page of a buyer's order history.
type OrderList struct {
	Orders     []models.MasterOrder `json:"orders"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires the order query service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.MasterOrder, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	orders, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: orders, NextCursor: next}, nil
}
