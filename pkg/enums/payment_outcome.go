package enums

import "fmt"

// PaymentOutcome is the redirect result reported by the hosted payment page.
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailure PaymentOutcome = "failure"
	PaymentOutcomePending PaymentOutcome = "pending"
)

var validPaymentOutcomes = []PaymentOutcome{
	PaymentOutcomeSuccess,
	PaymentOutcomeFailure,
	PaymentOutcomePending,
}

// String implements fmt.Stringer.
func (o PaymentOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known PaymentOutcome.
func (o PaymentOutcome) IsValid() bool {
	for _, candidate := range validPaymentOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OrderStatus maps the outcome onto the order lifecycle.
func (o PaymentOutcome) OrderStatus() OrderStatus {
	switch o {
	case PaymentOutcomeSuccess:
		return OrderStatusPaid
	case PaymentOutcomeFailure:
		return OrderStatusFailed
	default:
		return OrderStatusPending
	}
}

// ParsePaymentOutcome converts raw input into a PaymentOutcome.
func ParsePaymentOutcome(value string) (PaymentOutcome, error) {
	for _, candidate := range validPaymentOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment outcome %q", value)
}
