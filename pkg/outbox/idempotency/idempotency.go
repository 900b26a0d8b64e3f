// Package idempotency remembers which deliveries were already handled, using
// Redis SETNX keys that expire after a retention window.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the Redis surface a Guard needs; *redis.Client satisfies it.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard marks ids inside one scope. Keys read sf:idempotency:<scope>:<id>.
type Guard struct {
	store Store
	scope string
	ttl   time.Duration
}

// NewGuard builds a guard for scope. A zero ttl keeps marks forever.
func NewGuard(store Store, scope string, ttl time.Duration) (*Guard, error) {
	scope = strings.TrimSpace(scope)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case scope == "":
		return nil, errors.New("idempotency scope is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, scope: scope, ttl: ttl}, nil
}

// Seen claims id and reports whether an earlier call had already claimed it.
func (g *Guard) Seen(ctx context.Context, id string) (bool, error) {
	key, err := g.key(id)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Forget releases the claim so a redelivery of id is handled again.
func (g *Guard) Forget(ctx context.Context, id string) error {
	key, err := g.key(id)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("id is required")
	}
	return g.store.IdempotencyKey(g.scope, id), nil
}

// Manager hands out one guard per subscription consumer so each handler
// tracks its own progress through the same event stream.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if _, err := NewGuard(store, "probe", ttl); err != nil {
		return nil, err
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports whether consumer already handled eventID,
// marking it handled when it had not.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	guard, err := m.guard(consumer, eventID)
	if err != nil {
		return false, err
	}
	return guard.Seen(ctx, eventID.String())
}

// Delete clears the mark after a failed handler so the redelivery runs it again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	guard, err := m.guard(consumer, eventID)
	if err != nil {
		return err
	}
	return guard.Forget(ctx, eventID.String())
}

func (m *Manager) guard(consumer string, eventID uuid.UUID) (*Guard, error) {
	if strings.TrimSpace(consumer) == "" {
		return nil, errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return nil, errors.New("event id is required")
	}
	return NewGuard(m.store, "evt:processed:"+consumer, m.ttl)
}
