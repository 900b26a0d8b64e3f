package cron

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const defaultLockTTL = 30 * time.Minute

// Lock keeps two workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockBackend interface {
	AcquireLock(ctx context.Context, key, owner string, ttl, wait time.Duration) error
	ReleaseLock(ctx context.Context, key, owner string) error
}

// RedisLock is a non-blocking owner-token lock on a single Redis key.
type RedisLock struct {
	backend lockBackend
	key     string
	ttl     time.Duration
	owner   string
}

func NewRedisLock(backend lockBackend, key string, ttl time.Duration) (*RedisLock, error) {
	if backend == nil {
		return nil, errors.New("redis backend required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{backend: backend, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	err := l.backend.AcquireLock(ctx, l.key, owner, l.ttl, 0)
	if errors.Is(err, redis.ErrLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	l.owner = owner
	return true, nil
}

// Release is a no-op when the lock expired and someone else took it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	err := l.backend.ReleaseLock(ctx, l.key, l.owner)
	l.owner = ""
	if errors.Is(err, redis.ErrLockHeld) {
		return nil
	}
	return err
}
