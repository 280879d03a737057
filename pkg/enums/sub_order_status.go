package enums

import "fmt"

// SubOrderStatus tracks the lifecycle of a per-shop suborder.
type SubOrderStatus string

const (
	SubOrderStatusPendingPayment  SubOrderStatus = "PENDING_PAYMENT"
	SubOrderStatusPaid            SubOrderStatus = "PAID"
	SubOrderStatusProcessing      SubOrderStatus = "PROCESSING"
	SubOrderStatusShipping        SubOrderStatus = "SHIPPING"
	SubOrderStatusDelivered       SubOrderStatus = "DELIVERED"
	SubOrderStatusCompleted       SubOrderStatus = "COMPLETED"
	SubOrderStatusCancelRequested SubOrderStatus = "CANCEL_REQUESTED"
	SubOrderStatusCancelled       SubOrderStatus = "CANCELLED"
	SubOrderStatusRefunded        SubOrderStatus = "REFUNDED"
)

var validSubOrderStatuses = []SubOrderStatus{
	SubOrderStatusPendingPayment,
	SubOrderStatusPaid,
	SubOrderStatusProcessing,
	SubOrderStatusShipping,
	SubOrderStatusDelivered,
	SubOrderStatusCompleted,
	SubOrderStatusCancelRequested,
	SubOrderStatusCancelled,
	SubOrderStatusRefunded,
}

// String implements fmt.Stringer.
func (s SubOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubOrderStatus.
func (s SubOrderStatus) IsValid() bool {
	for _, candidate := range validSubOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubOrderStatus converts raw input into a SubOrderStatus.
func ParseSubOrderStatus(value string) (SubOrderStatus, error) {
	for _, candidate := range validSubOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suborder status %q", value)
}
