package suborders

import (
	"github.com/nqtuan-dev/vietshop-backend/pkg/enums"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
)

// transitions is the lifecycle table. Pairs absent here are rejected;
// the cancellation saga moves through CANCEL_REQUESTED separately.
var transitions = map[enums.SubOrderStatus][]enums.SubOrderStatus{
	enums.SubOrderStatusPendingPayment: {enums.SubOrderStatusPaid, enums.SubOrderStatusCancelled},
	enums.SubOrderStatusPaid:           {enums.SubOrderStatusProcessing, enums.SubOrderStatusCancelled},
	enums.SubOrderStatusProcessing:     {enums.SubOrderStatusShipping},
	enums.SubOrderStatusShipping:       {enums.SubOrderStatusDelivered},
	enums.SubOrderStatusDelivered:      {enums.SubOrderStatusCompleted},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to enums.SubOrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns the coded rejection for a disallowed pair.
func CheckTransition(from, to enums.SubOrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown suborder status")
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition not allowed").
			WithDetails(map[string]any{"from": from.String(), "to": to.String()})
	}
	return nil
}

// RequiresSuccessfulPayment reports whether entering the status
// demands a SUCCESS payment on the funding ledger row.
func RequiresSuccessfulPayment(to enums.SubOrderStatus) bool {
	return to == enums.SubOrderStatusProcessing || to == enums.SubOrderStatusShipping
}
