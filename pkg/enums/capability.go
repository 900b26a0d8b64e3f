package enums

import "fmt"

// Capability names an action gated by role.
type Capability string

const (
	CapabilityCheckoutPay    Capability = "checkout.pay"
	CapabilityOrdersManage   Capability = "orders.manage"
	CapabilityProductsManage Capability = "products.manage"
	CapabilityUsersManage    Capability = "users.manage"
	CapabilitySettingsManage Capability = "settings.manage"
)

var validCapabilities = []Capability{
	CapabilityCheckoutPay,
	CapabilityOrdersManage,
	CapabilityProductsManage,
	CapabilityUsersManage,
	CapabilitySettingsManage,
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// Capabilities returns every known capability.
func Capabilities() []Capability {
	out := make([]Capability, len(validCapabilities))
	copy(out, validCapabilities)
	return out
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
