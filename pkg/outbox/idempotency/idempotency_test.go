package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys   map[string]time.Duration
	setErr error
}

func newMemStore() *memStore { return &memStore{keys: map[string]time.Duration{}} }

func (m *memStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func TestGuardClaimsOnce(t *testing.T) {
	store := newMemStore()
	guard, err := NewGuard(store, "stripe-webhook", time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, time.Hour, store.keys["sf:idempotency:stripe-webhook:evt_1"])

	seen, err = guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Forget(ctx, "evt_1"))
	seen, err = guard.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestGuardRejectsBadInput(t *testing.T) {
	_, err := NewGuard(nil, "scope", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemStore(), " ", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemStore(), "scope", -time.Second)
	assert.Error(t, err)

	guard, err := NewGuard(newMemStore(), "scope", 0)
	require.NoError(t, err)
	_, err = guard.Seen(context.Background(), "")
	assert.Error(t, err)
}

func TestGuardSurfacesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("connection refused")
	guard, err := NewGuard(store, "scope", time.Minute)
	require.NoError(t, err)

	_, err = guard.Seen(context.Background(), "evt_1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestManagerScopesByConsumer(t *testing.T) {
	store := newMemStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(ctx, "cart-cleanup", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Contains(t, store.keys, "sf:idempotency:evt:processed:cart-cleanup:"+eventID.String())

	already, err = manager.CheckAndMarkProcessed(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.False(t, already, "consumers track progress independently")

	already, err = manager.CheckAndMarkProcessed(ctx, "cart-cleanup", eventID)
	require.NoError(t, err)
	assert.True(t, already)

	require.NoError(t, manager.Delete(ctx, "cart-cleanup", eventID))
	assert.NotContains(t, store.keys, "sf:idempotency:evt:processed:cart-cleanup:"+eventID.String())

	_, err = manager.CheckAndMarkProcessed(ctx, "", eventID)
	assert.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(ctx, "cart-cleanup", uuid.Nil)
	assert.Error(t, err)
}
