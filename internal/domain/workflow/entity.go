package workflow

import (
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
)

// EventType names what happened on a terminal.
type EventType string

const (
	EventClockInSucceeded  EventType = "clock_in.succeeded"
	EventClockOutSucceeded EventType = "clock_out.succeeded"
	EventRejected          EventType = "workflow.rejected"
)

// Event is published once per finished clock-in or clock-out attempt.
type Event struct {
	Type         EventType `json:"type"`
	DeviceID     string    `json:"device_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty"`
	Kind         Kind      `json:"kind,omitempty"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type ClockInResult struct {
	SessionID      string    `json:"session_id"`
	EmployeeID     string    `json:"employee_id"`
	EmployeeName   string    `json:"employee_name"`
	ClockInTime    time.Time `json:"clock_in_time"`
	Location       string    `json:"location,omitempty"`
	DistanceMeters *int      `json:"distance_meters,omitempty"`
	Message        string    `json:"message"`
}

type ClockOutResult struct {
	SessionID    string    `json:"session_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	ClockInTime  time.Time `json:"clock_in_time"`
	ClockOutTime time.Time `json:"clock_out_time"`
	WorkDuration string    `json:"work_duration"`
	Message      string    `json:"message"`
}

// StatusView is the read-only answer to "what can this employee do right now".
type StatusView struct {
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name"`
	Status       string     `json:"status"`
	ClockInTime  *time.Time `json:"clock_in_time,omitempty"`
	ClockOutTime *time.Time `json:"clock_out_time,omitempty"`
	WorkDuration string     `json:"work_duration,omitempty"`
	CanClockIn   bool       `json:"can_clock_in"`
	CanClockOut  bool       `json:"can_clock_out"`
	Deadline     time.Time  `json:"deadline"`
	Message      string     `json:"message"`
}

// SessionView is what a reloaded terminal needs to restore its screen.
type SessionView struct {
	Device   device.Session          `json:"device"`
	Employee *device.EmployeeSession `json:"employee,omitempty"`
}
