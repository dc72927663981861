package workflow

import (
	"errors"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

// Kind classifies why a workflow step failed.
type Kind string

const (
	KindDeviceUnavailable   Kind = "device_unavailable"
	KindDeadlinePassed      Kind = "deadline_passed"
	KindInvalidState        Kind = "invalid_state"
	KindOrderingViolation   Kind = "ordering_violation"
	KindOutOfRange          Kind = "out_of_range"
	KindLocationUnavailable Kind = "location_unavailable"
	KindNetworkError        Kind = "network_error"
	KindServerRejected      Kind = "server_rejected"
	KindEmployeeNotFound    Kind = "employee_not_found"
	KindInProgress          Kind = "in_progress"
	KindValidation          Kind = "validation_failed"
	KindInternal            Kind = "internal"
)

// ErrInProgress is returned by an InFlightGuard when the key is already held.
var ErrInProgress = errors.New("a request for this employee or device is already being processed")

const internalMessage = "An unexpected error occurred"

// Error is the typed failure every orchestrator operation returns.
type Error struct {
	Kind           Kind
	Message        string
	DistanceMeters *int
	Err            error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed without user action
// beyond moving, waiting or reconnecting.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetworkError, KindLocationUnavailable, KindInProgress:
		return true
	}
	return false
}

// Classify maps a domain error onto its Kind.
func Classify(err error) Kind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return KindValidation
	}

	switch {
	case errors.Is(err, ErrInProgress):
		return KindInProgress
	case errors.Is(err, device.ErrMissingDeviceID):
		return KindValidation
	case errors.Is(err, device.ErrDeviceUnavailable):
		return KindDeviceUnavailable
	case errors.Is(err, attendance.ErrDeadlinePassed):
		return KindDeadlinePassed
	case errors.Is(err, attendance.ErrOrderingViolation):
		return KindOrderingViolation
	case errors.Is(err, attendance.ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, geo.ErrOutsideRadius):
		return KindOutOfRange
	case errors.Is(err, geo.ErrLocationUnavailable):
		return KindLocationUnavailable
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		return KindEmployeeNotFound
	case errors.Is(err, attendance.ErrAPIUnavailable):
		return KindNetworkError
	case errors.Is(err, attendance.ErrServerRejected), errors.Is(err, attendance.ErrInvalidSettings):
		return KindServerRejected
	}
	return KindInternal
}

// Wrap turns any error into an *Error. Internal defects get a generic message so details
// never reach the terminal.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr
	}

	kind := Classify(err)
	wrapped := &Error{Kind: kind, Message: err.Error(), Err: err}

	switch kind {
	case KindInternal:
		wrapped.Message = internalMessage
	case KindOutOfRange:
		var outOfRange *geo.OutOfRangeError
		if errors.As(err, &outOfRange) {
			distance := outOfRange.DistanceMeters
			wrapped.DistanceMeters = &distance
		}
	}

	return wrapped
}
