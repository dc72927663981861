package workflow

import (
	"context"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
)

// Orchestrator runs the clock-in and clock-out workflows for a kiosk terminal.
// Every error it returns is an *Error.
type Orchestrator interface {
	ClockIn(ctx context.Context, cmd ClockInCommand) (ClockInResult, error)
	ClockOut(ctx context.Context, cmd ClockOutCommand) (ClockOutResult, error)
	Status(ctx context.Context, deviceID string, employeeID string) (StatusView, error)
	Availability(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (device.Availability, error)
	Session(ctx context.Context, deviceID string) (SessionView, error)
	History(ctx context.Context, deviceID string) ([]device.HistoryEntry, error)
}

// InFlightGuard rejects a second concurrent workflow on the same key.
type InFlightGuard interface {
	// TryAcquire returns ErrInProgress when key is already held. release must be called once.
	TryAcquire(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Lock keys
func EmployeeKey(employeeID string) string { return "employee:" + employeeID }
func DeviceKey(deviceID string) string     { return "device:" + deviceID }
