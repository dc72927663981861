package attendance

import (
	"errors"
	"fmt"
	"net/http"
)

// Attendance domain errors
var (
	// Transition errors
	ErrInvalidState      = errors.New("transition not allowed from current status")
	ErrAlreadyCheckedIn  = &stateError{msg: "you have already checked in today"}
	ErrAlreadyCheckedOut = &stateError{msg: "you have already completed attendance for today"}
	ErrNotCheckedIn      = &stateError{msg: "you have not checked in yet"}
	ErrAttendanceClosed  = &stateError{msg: "attendance for today has already been closed"}
	ErrDeadlinePassed    = errors.New("clock-in deadline has passed, you are marked as absent for today")
	ErrOrderingViolation = errors.New("clock-out time must be after your clock-in time")

	// Defects in data handed to the state machine
	ErrNegativeDuration   = errors.New("negative work duration")
	ErrInconsistentStatus = errors.New("attendance status does not match its clock times")

	// Attendance API errors
	ErrEmployeeNotFound = errors.New("employee not found, please contact HR to register")
	ErrAPIUnavailable   = errors.New("attendance service is unreachable")
	ErrServerRejected   = errors.New("attendance service rejected the request")
	ErrInvalidSettings  = errors.New("security settings are incomplete")
)

// stateError is a specific flavour of ErrInvalidState with its own message.
type stateError struct {
	msg string
}

func (e *stateError) Error() string { return e.msg }

func (e *stateError) Is(target error) bool { return target == ErrInvalidState }

// ServerError is a structured error body returned by the Attendance API.
// A 409 Conflict is the backend's duplicate guard and matches ErrInvalidState.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("attendance service returned status %d", e.StatusCode)
	}
	return e.Message
}

func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrServerRejected:
		return e.StatusCode != http.StatusConflict
	case ErrInvalidState:
		return e.StatusCode == http.StatusConflict
	}
	return false
}
