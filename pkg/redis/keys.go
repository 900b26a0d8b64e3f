package redis

import "strings"

// Every key lives under the sf: namespace so one Redis can be shared.
const keyNamespace = "sf"

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey: sf:idempotency:<scope>:<id>.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

// AccessSessionKey: sf:session:access:<jti>.
func (c *Client) AccessSessionKey(accessID string) string {
	return buildKey("session", "access", accessID)
}

// CheckoutSessionKey: sf:checkout:<cart id>.
func (c *Client) CheckoutSessionKey(cartID string) string {
	return buildKey("checkout", cartID)
}

// LockKey: sf:lock:<scope>:<id>.
func (c *Client) LockKey(scope, id string) string {
	return buildKey("lock", scope, id)
}
