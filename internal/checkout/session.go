package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Session is the checkout state of one cart. Totals and items are never stored;
// they are derived from the cart rows whenever the session is read.
type Session struct {
	CartID           uuid.UUID               `json:"cart_id"`
	CurrentStep      enums.CheckoutStep      `json:"current_step"`
	OpenStep         enums.CheckoutStep      `json:"open_step"`
	Address          *address.Address        `json:"address,omitempty"`
	ShippingMethodID *enums.ShippingMethodID `json:"shipping_method_id,omitempty"`
	Payment          payment.Status          `json:"payment"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// NewSession starts a checkout at the address step.
func NewSession(cartID uuid.UUID) *Session {
	return &Session{
		CartID:      cartID,
		CurrentStep: enums.CheckoutStepAddress,
		OpenStep:    enums.CheckoutStepAddress,
		Payment:     payment.IdleStatus(),
	}
}
