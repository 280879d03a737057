package enums

import "fmt"

// RefundStatus tracks a cancellation refund request.
type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "REQUESTED"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusRejected  RefundStatus = "REJECTED"
	RefundStatusRefunded  RefundStatus = "REFUNDED"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusRequested,
	RefundStatusApproved,
	RefundStatusRejected,
	RefundStatusRefunded,
}

// String implements fmt.Stringer.
func (s RefundStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefundStatus.
func (s RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
