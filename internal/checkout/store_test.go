package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memBackend struct {
	mu    sync.Mutex
	data  map[string]string
	ttls  map[string]time.Duration
	locks map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{
		data:  map[string]string{},
		ttls:  map[string]time.Duration{},
		locks: map[string]string{},
	}
}

func (m *memBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memBackend) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memBackend) CheckoutSessionKey(cartID string) string { return "sf:checkout:" + cartID }

func (m *memBackend) LockKey(scope, id string) string { return "sf:lock:" + scope + ":" + id }

func (m *memBackend) AcquireLock(_ context.Context, key, owner string, _, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return errors.New("lock not acquired")
	}
	m.locks[key] = owner
	return nil
}

func (m *memBackend) ReleaseLock(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == owner {
		delete(m.locks, key)
	}
	return nil
}

func newTestStore(t *testing.T) (SessionStore, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	store, err := NewRedisStore(backend, 0)
	require.NoError(t, err)
	return store, backend
}

func TestStoreLoadMissingReturnsFreshSession(t *testing.T) {
	store, _ := newTestStore(t)
	cartID := uuid.New()

	s, err := store.Load(context.Background(), cartID)
	require.NoError(t, err)
	assert.Equal(t, cartID, s.CartID)
	assert.Equal(t, enums.CheckoutStepAddress, s.CurrentStep)
	assert.Equal(t, enums.PaymentStateIdle, s.Payment.State)
}

func TestStoreSaveLoadKeepsState(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	cartID := uuid.New()

	s := NewSession(cartID)
	StepController{}.CompleteAddress(s, address.Address{Street: "Rua A", Number: "1", Neighborhood: "Centro", City: "Curitiba", State: "PR", ZipCode: "80010000"})
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 24*time.Hour, backend.ttls["sf:checkout:"+cartID.String()])
	assert.False(t, s.UpdatedAt.IsZero())

	loaded, err := store.Load(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepShipping, loaded.CurrentStep)
	require.NotNil(t, loaded.Address)
	assert.Equal(t, "Rua A", loaded.Address.Street)
}

func TestStoreLoadRepairsInconsistentSession(t *testing.T) {
	store, backend := newTestStore(t)
	cartID := uuid.New()
	backend.data["sf:checkout:"+cartID.String()] = `{"current_step":"payment","open_step":"payment","payment":{"state":"idle"}}`

	s, err := store.Load(context.Background(), cartID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepAddress, s.CurrentStep)
	assert.Equal(t, enums.CheckoutStepAddress, s.OpenStep)
	assert.True(t, StepController{}.Holds(s))
}

func TestStoreLoadRejectsCorruptPayload(t *testing.T) {
	store, backend := newTestStore(t)
	cartID := uuid.New()
	backend.data["sf:checkout:"+cartID.String()] = "{"

	_, err := store.Load(context.Background(), cartID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestStoreLockIsExclusive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	cartID := uuid.New()

	unlock, err := store.Lock(ctx, cartID)
	require.NoError(t, err)

	_, err = store.Lock(ctx, cartID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	other, err := store.Lock(ctx, uuid.New())
	require.NoError(t, err)
	other()

	unlock()
	again, err := store.Lock(ctx, cartID)
	require.NoError(t, err)
	again()
}

func TestStoreDelete(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	cartID := uuid.New()

	require.NoError(t, store.Save(ctx, NewSession(cartID)))
	require.NoError(t, store.Delete(ctx, cartID))
	assert.Empty(t, backend.data)
}
