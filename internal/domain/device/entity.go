package device

import "time"

// Session binds one device to one employee for the current calendar day.
type Session struct {
	ActiveEmployeeID *string    `json:"active_employee_id,omitempty"`
	IsHRSession      bool       `json:"is_hr_session"`
	SessionStartTime *time.Time `json:"session_start_time,omitempty"`
}

// IsFrom reports whether the session was started on the same calendar day as now, in now's location.
func (s Session) IsFrom(now time.Time) bool {
	if s.SessionStartTime == nil {
		return false
	}
	start := s.SessionStartTime.In(now.Location())
	y1, m1, d1 := start.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsEmpty reports whether nothing about the session is worth persisting.
func (s Session) IsEmpty() bool {
	return s.ActiveEmployeeID == nil && !s.IsHRSession
}

type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

// EmployeeSession mirrors the last workflow outcome for the employee using this device, so a
// reloaded terminal can resume the right screen.
type EmployeeSession struct {
	SessionID      string     `json:"session_id"`
	EmployeeID     string     `json:"employee_id"`
	EmployeeName   string     `json:"employee_name,omitempty"`
	Status         string     `json:"status"`
	ClockInTime    *time.Time `json:"clock_in_time,omitempty"`
	ClockOutTime   *time.Time `json:"clock_out_time,omitempty"`
	WorkDuration   string     `json:"work_duration,omitempty"`
	InProgress     bool       `json:"in_progress"`
	LastUpdateTime time.Time  `json:"last_update_time"`
}

// HistoryEntry is one clock-in recorded on this device.
type HistoryEntry struct {
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name,omitempty"`
	ClockInTime  time.Time  `json:"clock_in_time"`
	ClockOutTime *time.Time `json:"clock_out_time,omitempty"`
	WorkDuration string     `json:"work_duration,omitempty"`
	Status       string     `json:"status"`
	Location     string     `json:"location,omitempty"`
}

// MaxHistoryEntries caps the per-device clock history.
const MaxHistoryEntries = 50

// Storage keys
func SessionKey(deviceID string) string         { return "device_session:" + deviceID }
func EmployeeSessionKey(deviceID string) string { return "employee_session:" + deviceID }
func HistoryKey(deviceID string) string         { return "clock_history:" + deviceID }
