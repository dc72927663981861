package device

import (
	"context"
	"time"
)

// Guard enforces one active employee per device per day, with an HR bypass.
type Guard interface {
	// Load returns today's session for the device; a session from another day is discarded.
	Load(ctx context.Context, deviceID string) (Session, error)

	// CheckAvailability decides whether employeeID may use the device. It never writes.
	CheckAvailability(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (Availability, error)

	// Claim makes employeeID the device owner for today. An HR claim only records the HR
	// session and leaves ownership alone.
	Claim(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (Session, error)

	// Release clears device ownership. An HR release leaves ownership alone.
	Release(ctx context.Context, deviceID string, hrLoggedIn bool) (Session, error)
}

// Mirror keeps the terminal-side view of the current employee session and clock history.
type Mirror interface {
	LoadEmployeeSession(ctx context.Context, deviceID string) (*EmployeeSession, error)
	SaveEmployeeSession(ctx context.Context, deviceID string, session EmployeeSession) (EmployeeSession, error)
	// UpdateEmployeeStatus refreshes the mirrored status when it belongs to employeeID and was
	// last written no later than observedAt. It reports whether anything changed.
	UpdateEmployeeStatus(ctx context.Context, deviceID string, employeeID string, status string, inProgress bool, observedAt time.Time) (bool, error)
	AppendHistory(ctx context.Context, deviceID string, entry HistoryEntry) error
	CompleteHistory(ctx context.Context, deviceID string, entry HistoryEntry) error
	History(ctx context.Context, deviceID string) ([]HistoryEntry, error)
}
