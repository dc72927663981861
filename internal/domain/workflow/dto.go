package workflow

import (
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

type ClockInCommand struct {
	DeviceID   string
	EmployeeID string
	HRLoggedIn bool
	// Locator is only consulted when the server requires GPS verification.
	Locator geo.Locator
}

func (c ClockInCommand) Validate() error {
	return ValidateIdentity(c.DeviceID, c.EmployeeID)
}

type ClockOutCommand struct {
	DeviceID   string
	EmployeeID string
	HRLoggedIn bool
}

func (c ClockOutCommand) Validate() error {
	return ValidateIdentity(c.DeviceID, c.EmployeeID)
}

// ValidateIdentity checks the device and employee identifiers every workflow starts from.
func ValidateIdentity(deviceID, employeeID string) error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(deviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is required",
		})
	} else if !validator.IsValidDeviceID(deviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is malformed",
		})
	}

	if validator.IsEmpty(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	} else if !validator.IsValidEmployeeID(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id may only contain letters, digits, dots, dashes and underscores",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ClockInRequest is the body a terminal posts to clock in. The browser either reports a fix in
// Location or the reason it could not get one in LocationError.
type ClockInRequest struct {
	EmployeeID    string              `json:"employee_id"`
	Location      *geo.Point          `json:"location,omitempty"`
	LocationError geo.LocationFailure `json:"location_error,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Location != nil {
		if !validator.IsValidLatitude(r.Location.Latitude) {
			errs = append(errs, validator.ValidationError{
				Field:   "location.latitude",
				Message: "latitude must be between -90 and 90",
			})
		}
		if !validator.IsValidLongitude(r.Location.Longitude) {
			errs = append(errs, validator.ValidationError{
				Field:   "location.longitude",
				Message: "longitude must be between -180 and 180",
			})
		}
		if r.Location.Accuracy != nil && *r.Location.Accuracy < 0 {
			errs = append(errs, validator.ValidationError{
				Field:   "location.accuracy",
				Message: "accuracy cannot be negative",
			})
		}
	}

	if r.LocationError != "" && !r.LocationError.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "location_error",
			Message: "location_error must be one of unsupported, permission_denied, position_unavailable, timeout",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *ClockInRequest) ToCommand(deviceID string, hrLoggedIn bool) ClockInCommand {
	return ClockInCommand{
		DeviceID:   deviceID,
		EmployeeID: r.EmployeeID,
		HRLoggedIn: hrLoggedIn,
		Locator: geo.ReportedFix{
			Point:   r.Location,
			Failure: r.LocationError,
		},
	}
}

type ClockOutRequest struct {
	EmployeeID string `json:"employee_id"`
}

func (r *ClockOutRequest) Validate() error {
	if validator.IsEmpty(r.EmployeeID) {
		return validator.ValidationErrors{{
			Field:   "employee_id",
			Message: "employee_id is required",
		}}
	}
	return nil
}

func (r *ClockOutRequest) ToCommand(deviceID string, hrLoggedIn bool) ClockOutCommand {
	return ClockOutCommand{
		DeviceID:   deviceID,
		EmployeeID: r.EmployeeID,
		HRLoggedIn: hrLoggedIn,
	}
}
