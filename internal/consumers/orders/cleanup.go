package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/consumers/dispatch"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const cleanupConsumerName = "cart-cleanup"

type cartClearer interface {
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type sessionDeleter interface {
	Delete(ctx context.Context, cartID uuid.UUID) error
}

// CartCleanup empties the cart and drops its checkout session once an order is paid.
type CartCleanup struct {
	carts    cartClearer
	sessions sessionDeleter
	logg     *logger.Logger
}

// NewCartCleanup builds the order_paid consumer.
func NewCartCleanup(carts cartClearer, sessions sessionDeleter, logg *logger.Logger) (*CartCleanup, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CartCleanup{carts: carts, sessions: sessions, logg: logg}, nil
}

var _ dispatch.Handler = (*CartCleanup)(nil)

func (c *CartCleanup) Name() string { return cleanupConsumerName }

func (c *CartCleanup) Handles(eventType enums.OutboxEventType) bool {
	return eventType == enums.EventOrderPaid
}

// Handle is safe to repeat: clearing an empty cart and deleting a missing session are no-ops.
func (c *CartCleanup) Handle(ctx context.Context, envelope dispatch.Envelope) error {
	paid, ok := envelope.Payload.(*payloads.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", envelope.Payload, envelope.EventType)
	}
	if paid.CartID == uuid.Nil {
		c.logg.Warn(ctx, "paid order has no cart id")
		return nil
	}

	ctx = c.logg.WithCartID(ctx, paid.CartID.String())
	if err := c.carts.Clear(ctx, paid.CartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if err := c.sessions.Delete(ctx, paid.CartID); err != nil {
		return fmt.Errorf("delete checkout session: %w", err)
	}
	c.logg.Info(ctx, "cart cleared after payment")
	return nil
}
