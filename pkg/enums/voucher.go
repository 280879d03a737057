package enums

import "fmt"

// VoucherType distinguishes who funds a voucher.
type VoucherType string

const (
	VoucherTypePlatform VoucherType = "PLATFORM"
	VoucherTypeShop     VoucherType = "SHOP"
)

var validVoucherTypes = []VoucherType{
	VoucherTypePlatform,
	VoucherTypeShop,
}

func (t VoucherType) String() string {
	return string(t)
}

func (t VoucherType) IsValid() bool {
	for _, candidate := range validVoucherTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseVoucherType converts raw input into a VoucherType.
func ParseVoucherType(value string) (VoucherType, error) {
	for _, candidate := range validVoucherTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher type %q", value)
}

// VoucherDiscountType selects the discount formula.
type VoucherDiscountType string

const (
	VoucherDiscountPercent VoucherDiscountType = "PERCENT"
	VoucherDiscountFixed   VoucherDiscountType = "FIXED"
)

var validVoucherDiscountTypes = []VoucherDiscountType{
	VoucherDiscountPercent,
	VoucherDiscountFixed,
}

func (t VoucherDiscountType) String() string {
	return string(t)
}

func (t VoucherDiscountType) IsValid() bool {
	for _, candidate := range validVoucherDiscountTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseVoucherDiscountType converts raw input into a VoucherDiscountType.
func ParseVoucherDiscountType(value string) (VoucherDiscountType, error) {
	for _, candidate := range validVoucherDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher discount type %q", value)
}

// VoucherStatus gates whether a voucher may be redeemed.
type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "ACTIVE"
	VoucherStatusInactive VoucherStatus = "INACTIVE"
	VoucherStatusExpired  VoucherStatus = "EXPIRED"
)

var validVoucherStatuses = []VoucherStatus{
	VoucherStatusActive,
	VoucherStatusInactive,
	VoucherStatusExpired,
}

func (s VoucherStatus) String() string {
	return string(s)
}

func (s VoucherStatus) IsValid() bool {
	for _, candidate := range validVoucherStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVoucherStatus converts raw input into a VoucherStatus.
func ParseVoucherStatus(value string) (VoucherStatus, error) {
	for _, candidate := range validVoucherStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher status %q", value)
}
