package postgresql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/database"
)

const lockPrefix = "kiosk:inflight:"

// InFlightLocker is a workflow.InFlightGuard backed by session advisory locks, shared by every
// instance pointing at the same database. Each held key pins one pooled connection; the lock
// dies with the connection if the instance crashes.
type InFlightLocker struct {
	db *database.DB
}

func NewInFlightLocker(db *database.DB) *InFlightLocker {
	return &InFlightLocker{db: db}
}

// TryAcquire implements workflow.InFlightGuard.
func (l *InFlightLocker) TryAcquire(ctx context.Context, key string) (func(), error) {
	lockKey := lockPrefix + key

	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres lock %s: acquire connection: %w", key, err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtextextended($1, 0))`, lockKey).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres lock %s: %w", key, err)
	}
	if !acquired {
		conn.Release()
		return nil, workflow.ErrInProgress
	}

	return sync.OnceFunc(func() {
		// The request context may already be done when the workflow returns.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		defer conn.Release()

		if _, err := conn.Exec(releaseCtx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, lockKey); err != nil {
			slog.Warn("Failed to release in-flight lock", "key", key, "error", err)
			// A closed connection is dropped from the pool, taking the lock with it.
			_ = conn.Conn().Close(releaseCtx)
		}
	}), nil
}
