package enums

import "fmt"

// ShippingMethodID identifies an entry of the static shipping catalog.
type ShippingMethodID string

const (
	ShippingMethodStandard ShippingMethodID = "standard"
	ShippingMethodExpress  ShippingMethodID = "express"
	ShippingMethodSameDay  ShippingMethodID = "same-day"
)

var validShippingMethodIDs = []ShippingMethodID{
	ShippingMethodStandard,
	ShippingMethodExpress,
	ShippingMethodSameDay,
}

// String implements fmt.Stringer.
func (s ShippingMethodID) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingMethodID.
func (s ShippingMethodID) IsValid() bool {
	for _, candidate := range validShippingMethodIDs {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingMethodID converts raw input into a ShippingMethodID.
func ParseShippingMethodID(value string) (ShippingMethodID, error) {
	for _, candidate := range validShippingMethodIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
