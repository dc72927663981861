package attendance

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNotClockedIn Status = "not_clocked_in"
	StatusClockedIn    Status = "clocked_in"
	StatusCompleted    Status = "completed"

	// Absent and Late are assigned by the backend's deadline enforcement and are
	// never reached through a kiosk transition.
	StatusAbsent Status = "absent"
	StatusLate   Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotClockedIn, StatusClockedIn, StatusCompleted, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// EmployeeStatus is one employee's attendance record for the current day as held by the
// Attendance API. Clock times are local civil times on that day.
type EmployeeStatus struct {
	EmployeeID   string
	EmployeeName string
	Status       Status
	ClockInTime  *time.Time
	ClockOutTime *time.Time
}

// WorkDuration is a whole-minute span reported as hours and minutes.
type WorkDuration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// NewWorkDuration floors out-in to whole minutes. A negative span is a defect and is returned
// as ErrNegativeDuration rather than clamped.
func NewWorkDuration(clockIn, clockOut time.Time) (WorkDuration, error) {
	if clockOut.Before(clockIn) {
		return WorkDuration{}, fmt.Errorf("%w: clock in %s, clock out %s",
			ErrNegativeDuration, clockIn.Format(time.TimeOnly), clockOut.Format(time.TimeOnly))
	}

	totalMinutes := int(clockOut.Sub(clockIn) / time.Minute)

	return WorkDuration{
		Hours:   totalMinutes / 60,
		Minutes: totalMinutes % 60,
	}, nil
}

func (d WorkDuration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

func (d WorkDuration) String() string {
	return fmt.Sprintf("%dh %dm", d.Hours, d.Minutes)
}

// ClockInIntent is what a validated clock-in asks the Attendance API to persist.
type ClockInIntent struct {
	EmployeeID  string
	ClockInTime time.Time
}

// ClockOutIntent is what a validated clock-out asks the Attendance API to persist.
type ClockOutIntent struct {
	EmployeeID   string
	ClockInTime  time.Time
	ClockOutTime time.Time
	WorkDuration WorkDuration
}
