package attendance

import (
	"context"
	"time"
)

// StateMachine validates attendance transitions for a single employee-day.
type StateMachine interface {
	// Deadline returns the clock-in cutoff on now's calendar day.
	Deadline(now time.Time) time.Time

	// EffectiveState derives the state from the clock times and checks it against the stored label.
	EffectiveState(status EmployeeStatus) (Status, error)

	// RequestClockIn validates a clock-in at now.
	RequestClockIn(status EmployeeStatus, now time.Time) (ClockInIntent, error)

	// RequestClockOut validates a clock-out at now and computes the work duration.
	RequestClockOut(status EmployeeStatus, now time.Time) (ClockOutIntent, error)
}

// AttendanceAPI is the external backend that owns attendance persistence.
type AttendanceAPI interface {
	GetStatus(ctx context.Context, employeeID string) (EmployeeStatus, error)
	ClockIn(ctx context.Context, req ClockInRequest) (ClockInResponse, error)
	ClockOut(ctx context.Context, req ClockOutRequest) (ClockOutResponse, error)
	GetSecuritySettings(ctx context.Context) (SecuritySettings, error)
}
