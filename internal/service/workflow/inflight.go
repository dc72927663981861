package workflow

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
)

// LocalInFlight is an in-process workflow.InFlightGuard for single-instance deployments.
type LocalInFlight struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalInFlight() *LocalInFlight {
	return &LocalInFlight{
		held: make(map[string]struct{}),
	}
}

// TryAcquire implements workflow.InFlightGuard.
func (l *LocalInFlight) TryAcquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, workflow.ErrInProgress
	}
	l.held[key] = struct{}{}

	return sync.OnceFunc(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}), nil
}

// Held returns the number of keys currently held.
func (l *LocalInFlight) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
