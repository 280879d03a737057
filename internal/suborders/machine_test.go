package suborders

import (
	"testing"

	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

func TestCanTransitionTable(t *testing.T) {
	allowed := []struct {
		from, to enums.SubOrderStatus
	}{
		{enums.SubOrderStatusPendingPayment, enums.SubOrderStatusPaid},
		{enums.SubOrderStatusPendingPayment, enums.SubOrderStatusCancelled},
		{enums.SubOrderStatusPaid, enums.SubOrderStatusProcessing},
		{enums.SubOrderStatusPaid, enums.SubOrderStatusCancelled},
		{enums.SubOrderStatusProcessing, enums.SubOrderStatusShipping},
		{enums.SubOrderStatusShipping, enums.SubOrderStatusDelivered},
		{enums.SubOrderStatusDelivered, enums.SubOrderStatusCompleted},
	}
	for _, pair := range allowed {
		if !CanTransition(pair.from, pair.to) {
			t.Errorf("%s -> %s should be allowed", pair.from, pair.to)
		}
	}

	rejected := []struct {
		from, to enums.SubOrderStatus
	}{
		{enums.SubOrderStatusShipping, enums.SubOrderStatusProcessing},
		{enums.SubOrderStatusCompleted, enums.SubOrderStatusShipping},
		{enums.SubOrderStatusCancelled, enums.SubOrderStatusPaid},
		{enums.SubOrderStatusPendingPayment, enums.SubOrderStatusShipping},
		{enums.SubOrderStatusDelivered, enums.SubOrderStatusCancelled},
	}
	for _, pair := range rejected {
		if CanTransition(pair.from, pair.to) {
			t.Errorf("%s -> %s should be rejected", pair.from, pair.to)
		}
	}
}

func TestCheckTransitionCodes(t *testing.T) {
	err := CheckTransition(enums.SubOrderStatusShipping, enums.SubOrderStatusProcessing)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := CheckTransition(enums.SubOrderStatusPaid, enums.SubOrderStatusProcessing); err != nil {
		t.Fatalf("expected allowed transition, got %v", err)
	}
}

func TestRequiresSuccessfulPayment(t *testing.T) {
	if !RequiresSuccessfulPayment(enums.SubOrderStatusProcessing) {
		t.Error("PROCESSING must require a successful payment")
	}
	if !RequiresSuccessfulPayment(enums.SubOrderStatusShipping) {
		t.Error("SHIPPING must require a successful payment")
	}
	if RequiresSuccessfulPayment(enums.SubOrderStatusCancelled) {
		t.Error("CANCELLED must not require a successful payment")
	}
}
