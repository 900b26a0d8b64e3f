package enums

import "fmt"

// CheckoutStep is a panel of the linear checkout wizard.
type CheckoutStep string

const (
	CheckoutStepAddress  CheckoutStep = "address"
	CheckoutStepShipping CheckoutStep = "shipping"
	CheckoutStepPayment  CheckoutStep = "payment"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepAddress,
	CheckoutStepShipping,
	CheckoutStepPayment,
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// Index returns the position of the step in the wizard, or -1 when unknown.
func (s CheckoutStep) Index() int {
	for i, candidate := range validCheckoutSteps {
		if candidate == s {
			return i
		}
	}
	return -1
}

// CheckoutSteps returns the steps in wizard order.
func CheckoutSteps() []CheckoutStep {
	out := make([]CheckoutStep, len(validCheckoutSteps))
	copy(out, validCheckoutSteps)
	return out
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
