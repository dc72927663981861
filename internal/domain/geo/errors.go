package geo

import (
	"errors"
	"fmt"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrOutsideRadius       = errors.New("you are outside the allowed radius")
)

// LocationError reports a failed location fix. It matches ErrLocationUnavailable with errors.Is.
type LocationError struct {
	Reason LocationFailure
}

func (e *LocationError) Error() string {
	switch e.Reason {
	case FailureUnsupported:
		return "geolocation is not supported by this device"
	case FailurePermissionDenied:
		return "location access was denied, please enable location services"
	case FailurePositionUnavailable:
		return "location information is unavailable"
	case FailureTimeout:
		return "location request timed out"
	default:
		return fmt.Sprintf("location unavailable: %s", e.Reason)
	}
}

func (e *LocationError) Is(target error) bool {
	return target == ErrLocationUnavailable
}

// OutOfRangeError carries the measured distance of a fix that failed the radius check.
type OutOfRangeError struct {
	DistanceMeters int
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("you are %dm from the workplace, please move closer to clock in", e.DistanceMeters)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutsideRadius
}
