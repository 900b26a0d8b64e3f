package redis

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned when another owner holds the lock.
var ErrLockHeld = errors.New("lock held by another owner")

const lockRetryInterval = 25 * time.Millisecond

// releaseLockScript deletes the key only for its owner.
// Returns 1 when released, 0 when the key is gone, -1 when someone else holds it.
const releaseLockScript = `
local v = redis.call("GET", KEYS[1])
if not v then return 0 end
if v == ARGV[1] then return redis.call("DEL", KEYS[1]) end
return -1`

// AcquireLock sets key to owner for ttl, polling until wait elapses.
// A zero wait tries exactly once.
func (c *Client) AcquireLock(ctx context.Context, key, owner string, ttl, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := c.SetNX(ctx, key, owner, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockHeld
		}
		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ReleaseLock frees key if owner still holds it. An expired lock is not an error.
func (c *Client) ReleaseLock(ctx context.Context, key, owner string) error {
	if c.store == nil {
		return errNotInitialized
	}
	res, err := c.store.Eval(ctx, releaseLockScript, []string{key}, owner).Int64()
	if err != nil {
		return err
	}
	if res < 0 {
		return ErrLockHeld
	}
	return nil
}
