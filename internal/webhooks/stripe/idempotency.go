package stripewebhook

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
)

const (
	idempotencyScope = "stripe-webhook"
	defaultEventTTL  = 72 * time.Hour
)

// IdempotencyGuard remembers delivered Stripe event ids so redeliveries are
// acknowledged without side effects.
type IdempotencyGuard = idempotency.Guard

// NewIdempotencyGuard keeps marks for ttl, or three days when ttl is zero.
func NewIdempotencyGuard(store idempotency.Store, ttl time.Duration) (*IdempotencyGuard, error) {
	if ttl == 0 {
		ttl = defaultEventTTL
	}
	return idempotency.NewGuard(store, idempotencyScope, ttl)
}
