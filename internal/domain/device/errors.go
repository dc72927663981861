package device

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceUnavailable = errors.New("device is in use by another employee")
	ErrMissingDeviceID   = errors.New("device id is required")
)

// UnavailableError names the employee who currently owns the device.
type UnavailableError struct {
	OccupyingEmployeeID string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Device is currently in use by Employee %s. Only HR can access multiple staff records.", e.OccupyingEmployeeID)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}
