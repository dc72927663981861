package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
)

// SessionStore keeps device documents in process memory. Values are lost on restart.
type SessionStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// Get implements device.SessionStore.
func (s *SessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", device.ErrKeyNotFound
	}
	return value, nil
}

// Set implements device.SessionStore.
func (s *SessionStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete implements device.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		values: make(map[string]string),
	}
}
