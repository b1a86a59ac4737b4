package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// unlockScript removes the key only while it still holds the caller's
// token, so an expired lock re-acquired by someone else is never released
// by the original holder.
const unlockScript = `
local holder = redis.call("GET", KEYS[1])
if holder == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out short-lived advisory locks keyed by an arbitrary
// string. Locks expire on their own; Release is a fast path, not a
// correctness requirement.
type Locker struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		return nil
	}
	return &Locker{rdb: rdb, unlock: redis.NewScript(unlockScript)}
}

// TryLock attempts to take the lock without blocking. On success it
// returns the token Release must present.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.rdb == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	acquired, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lock when the token still matches. Unknown keys and
// stale tokens are ignored; the TTL already reclaimed them.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.rdb == nil || key == "" || token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.rdb, []string{key}, token).Err()
}
