package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a payment preference is created for a checkout.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       uuid.UUID       `json:"user_id"`
	CartID       uuid.UUID       `json:"cart_id"`
	PreferenceID string          `json:"preference_id"`
	Gateway      string          `json:"gateway"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	ItemCount    int             `json:"item_count"`
}

// OrderPaidEvent is emitted once the gateway reports the payment as approved.
type OrderPaidEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       uuid.UUID       `json:"user_id"`
	CartID       uuid.UUID       `json:"cart_id"`
	PreferenceID string          `json:"preference_id"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	PaidAt       time.Time       `json:"paid_at"`
}

// OrderFailedEvent is emitted when the gateway rejects the payment.
type OrderFailedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	UserID       uuid.UUID         `json:"user_id"`
	CartID       uuid.UUID         `json:"cart_id"`
	PreferenceID string            `json:"preference_id"`
	Status       enums.OrderStatus `json:"status"`
	Reason       string            `json:"reason,omitempty"`
}
