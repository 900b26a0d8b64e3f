package auth

import "github.com/angelmondragon/storefront-backend/pkg/enums"

var capabilitiesByRole = map[enums.Role][]enums.Capability{
	enums.RoleCustomer: {enums.CapabilityCheckoutPay},
	enums.RoleAdmin:    enums.Capabilities(),
}

// Can is the single place where a role is resolved into a capability grant.
// Unknown roles and capabilities are denied.
func Can(role enums.Role, capability enums.Capability) bool {
	if !capability.IsValid() {
		return false
	}
	for _, granted := range capabilitiesByRole[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

// CapabilitiesFor lists the capabilities granted to role.
func CapabilitiesFor(role enums.Role) []enums.Capability {
	granted := capabilitiesByRole[role]
	out := make([]enums.Capability, len(granted))
	copy(out, granted)
	return out
}
