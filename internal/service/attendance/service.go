package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

// DefaultDeadline is the clock-in cutoff used when none is configured.
const DefaultDeadline = "10:00"

type StateMachineImpl struct {
	deadlineHour   int
	deadlineMinute int
}

// Deadline implements attendance.StateMachine.
func (s *StateMachineImpl) Deadline(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), s.deadlineHour, s.deadlineMinute, 0, 0, now.Location())
}

// EffectiveState implements attendance.StateMachine.
func (s *StateMachineImpl) EffectiveState(status attendance.EmployeeStatus) (attendance.Status, error) {
	switch status.Status {
	case attendance.StatusAbsent, attendance.StatusLate:
		return status.Status, nil
	}

	if status.ClockOutTime != nil && status.ClockInTime == nil {
		return "", fmt.Errorf("%w: clock out without clock in", attendance.ErrInconsistentStatus)
	}
	if status.ClockOutTime != nil && status.ClockOutTime.Before(*status.ClockInTime) {
		return "", fmt.Errorf("%w: clock out before clock in", attendance.ErrInconsistentStatus)
	}

	derived := attendance.StatusNotClockedIn
	switch {
	case status.ClockOutTime != nil:
		derived = attendance.StatusCompleted
	case status.ClockInTime != nil:
		derived = attendance.StatusClockedIn
	}

	if status.Status != "" && status.Status != derived {
		return "", fmt.Errorf("%w: status %q but clock times say %q", attendance.ErrInconsistentStatus, status.Status, derived)
	}

	return derived, nil
}

// RequestClockIn implements attendance.StateMachine.
func (s *StateMachineImpl) RequestClockIn(status attendance.EmployeeStatus, now time.Time) (attendance.ClockInIntent, error) {
	state, err := s.EffectiveState(status)
	if err != nil {
		return attendance.ClockInIntent{}, err
	}

	switch state {
	case attendance.StatusClockedIn:
		return attendance.ClockInIntent{}, attendance.ErrAlreadyCheckedIn
	case attendance.StatusCompleted:
		return attendance.ClockInIntent{}, attendance.ErrAlreadyCheckedOut
	case attendance.StatusAbsent, attendance.StatusLate:
		return attendance.ClockInIntent{}, attendance.ErrAttendanceClosed
	}

	// The deadline instant itself already counts as passed.
	if !now.Before(s.Deadline(now)) {
		return attendance.ClockInIntent{}, attendance.ErrDeadlinePassed
	}

	return attendance.ClockInIntent{
		EmployeeID:  status.EmployeeID,
		ClockInTime: now,
	}, nil
}

// RequestClockOut implements attendance.StateMachine.
func (s *StateMachineImpl) RequestClockOut(status attendance.EmployeeStatus, now time.Time) (attendance.ClockOutIntent, error) {
	state, err := s.EffectiveState(status)
	if err != nil {
		return attendance.ClockOutIntent{}, err
	}

	switch state {
	case attendance.StatusNotClockedIn:
		return attendance.ClockOutIntent{}, attendance.ErrNotCheckedIn
	case attendance.StatusCompleted:
		return attendance.ClockOutIntent{}, attendance.ErrAlreadyCheckedOut
	case attendance.StatusAbsent, attendance.StatusLate:
		return attendance.ClockOutIntent{}, attendance.ErrAttendanceClosed
	}

	clockIn := *status.ClockInTime
	if now.Before(clockIn) {
		return attendance.ClockOutIntent{}, attendance.ErrOrderingViolation
	}

	duration, err := attendance.NewWorkDuration(clockIn, now)
	if err != nil {
		return attendance.ClockOutIntent{}, err
	}

	return attendance.ClockOutIntent{
		EmployeeID:   status.EmployeeID,
		ClockInTime:  clockIn,
		ClockOutTime: now,
		WorkDuration: duration,
	}, nil
}

// NewStateMachine builds a state machine with an "HH:MM" clock-in deadline.
func NewStateMachine(deadline string) (attendance.StateMachine, error) {
	if deadline == "" {
		deadline = DefaultDeadline
	}

	t, ok := validator.IsValidClockTime(deadline)
	if !ok {
		return nil, fmt.Errorf("invalid clock-in deadline %q, want HH:MM", deadline)
	}

	return &StateMachineImpl{
		deadlineHour:   t.Hour(),
		deadlineMinute: t.Minute(),
	}, nil
}
