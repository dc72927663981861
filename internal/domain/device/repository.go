package device

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by SessionStore.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// SessionStore persists JSON documents by key. Implementations must be safe for concurrent use.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
