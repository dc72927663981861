package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockPrefix = KeyPrefix + "inflight:"

// Deletes the lock only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InFlightLocker is a workflow.InFlightGuard shared by every instance pointing at the same
// Redis. Locks expire after ttl so a crashed instance cannot hold an employee forever.
type InFlightLocker struct {
	client   *goredis.Client
	ttl      time.Duration
	newToken func() string
}

func NewInFlightLocker(client *goredis.Client, ttl time.Duration) *InFlightLocker {
	return &InFlightLocker{
		client:   client,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

// TryAcquire implements workflow.InFlightGuard.
func (l *InFlightLocker) TryAcquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockPrefix + key
	token := l.newToken()

	acquired, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !acquired {
		return nil, workflow.ErrInProgress
	}

	return sync.OnceFunc(func() {
		// The request context may already be done when the workflow returns.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{lockKey}, token).Err(); err != nil {
			slog.Warn("Failed to release in-flight lock", "key", key, "error", err)
		}
	}), nil
}
