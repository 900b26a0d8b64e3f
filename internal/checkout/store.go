package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	lockScope = "checkout"
	lockTTL   = 30 * time.Second
	lockWait  = 5 * time.Second
)

// SessionStore persists checkout sessions with a TTL and serializes writers per cart.
type SessionStore interface {
	Load(ctx context.Context, cartID uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	Lock(ctx context.Context, cartID uuid.UUID) (func(), error)
}

type redisBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(cartID string) string
	LockKey(scope, id string) string
	AcquireLock(ctx context.Context, key, owner string, ttl, wait time.Duration) error
	ReleaseLock(ctx context.Context, key, owner string) error
}

type redisStore struct {
	backend redisBackend
	ttl     time.Duration
	now     func() time.Time
}

// NewRedisStore stores sessions as JSON under sf:checkout:{cartID}.
func NewRedisStore(backend redisBackend, ttl time.Duration) (SessionStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("redis backend required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{backend: backend, ttl: ttl, now: time.Now}, nil
}

// Load returns a fresh session when none is stored.
func (r *redisStore) Load(ctx context.Context, cartID uuid.UUID) (*Session, error) {
	raw, err := r.backend.Get(ctx, r.backend.CheckoutSessionKey(cartID.String()))
	if errors.Is(err, redis.Nil) {
		return NewSession(cartID), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout session")
	}
	s.CartID = cartID
	StepController{}.Repair(&s)
	return &s, nil
}

func (r *redisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = r.now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout session")
	}
	if err := r.backend.Set(ctx, r.backend.CheckoutSessionKey(s.CartID.String()), string(raw), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return nil
}

func (r *redisStore) Delete(ctx context.Context, cartID uuid.UUID) error {
	return r.backend.Del(ctx, r.backend.CheckoutSessionKey(cartID.String()))
}

// Lock blocks until the cart's session lock is held. The returned func releases it.
func (r *redisStore) Lock(ctx context.Context, cartID uuid.UUID) (func(), error) {
	key := r.backend.LockKey(lockScope, cartID.String())
	owner := uuid.NewString()
	if err := r.backend.AcquireLock(ctx, key, owner, lockTTL, lockWait); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout session busy")
	}
	return func() {
		_ = r.backend.ReleaseLock(context.WithoutCancel(ctx), key, owner)
	}, nil
}
