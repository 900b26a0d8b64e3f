package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
)

type keyLine struct {
	ProductID string `json:"id"`
	UnitPrice string `json:"p"`
	Quantity  int    `json:"q"`
}

type keyPayload struct {
	Lines    []keyLine       `json:"l"`
	Address  address.Address `json:"a"`
	Shipping string          `json:"s"`
}

// RequestKey hashes the inputs that shape a preference request. Two calls with
// the same key would send the same payload to the gateway.
func RequestKey(items []cart.Item, addr address.Address, method shipping.Method) string {
	lines := make([]keyLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, keyLine{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	raw, _ := json.Marshal(keyPayload{Lines: lines, Address: addr, Shipping: string(method.ID)})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CheckoutKey is RequestKey for a checkout that may still miss its address or
// shipping method; an incomplete checkout has no key.
func CheckoutKey(items []cart.Item, addr *address.Address, method *shipping.Method) string {
	if addr == nil || method == nil {
		return ""
	}
	return RequestKey(items, *addr, *method)
}
