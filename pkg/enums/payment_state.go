package enums

import "fmt"

// PaymentState tracks the payment orchestrator lifecycle for one checkout session.
type PaymentState string

const (
	PaymentStateIdle          PaymentState = "idle"
	PaymentStateAwaitingLogin PaymentState = "awaiting_login"
	PaymentStateRequesting    PaymentState = "requesting"
	PaymentStateReady         PaymentState = "ready"
	PaymentStateFailed        PaymentState = "failed"
)

var validPaymentStates = []PaymentState{
	PaymentStateIdle,
	PaymentStateAwaitingLogin,
	PaymentStateRequesting,
	PaymentStateReady,
	PaymentStateFailed,
}

// String implements fmt.Stringer.
func (s PaymentState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentState.
func (s PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentState converts raw input into a PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	for _, candidate := range validPaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
