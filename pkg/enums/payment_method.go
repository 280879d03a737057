package enums

import "fmt"

// PaymentMethod identifies how the buyer pays a master order.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodVNPay    PaymentMethod = "VNPAY"
	PaymentMethodMomo     PaymentMethod = "MOMO"
	PaymentMethodBankWire PaymentMethod = "BANK_WIRE"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodVNPay,
	PaymentMethodMomo,
	PaymentMethodBankWire,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
