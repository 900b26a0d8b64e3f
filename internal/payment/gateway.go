package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
)

// PreferenceRequest is the payload sent to the payment gateway for one attempt.
// Retrying with unchanged checkout inputs produces an identical request.
type PreferenceRequest struct {
	CartID          uuid.UUID       `json:"cart_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Items           []cart.Item     `json:"items"`
	ShippingAddress address.Address `json:"shipping_address"`
	ShippingMethod  shipping.Method `json:"shipping_method"`
	Totals          cart.Totals     `json:"totals"`
	Currency        string          `json:"currency"`
}

// Preference is the gateway-side record the customer is redirected to.
type Preference struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Gateway creates payment preferences. Implementations return errors whose
// message is safe to show to the customer.
type Gateway interface {
	Name() string
	CreatePreference(ctx context.Context, req PreferenceRequest, bearerToken string) (Preference, error)
}
