package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

// ========================================
// ATTENDANCE API DTOs
// ========================================

type ClockInRequest struct {
	EmployeeID  string
	ClockInTime time.Time
	Latitude    *float64
	Longitude   *float64
	Accuracy    *float64
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.ClockInTime.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_in_time",
			Message: "clock_in_time is required",
		})
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "latitude and longitude must be provided together",
		})
	}

	if r.Latitude != nil && !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude != nil && !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockInResponse struct {
	EmployeeName string `json:"employee_name"`
	ClockInTime  string `json:"clock_in_time,omitempty"`
	Location     string `json:"location,omitempty"`
	Message      string `json:"message,omitempty"`
}

type ClockOutRequest struct {
	EmployeeID   string
	ClockOutTime time.Time
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.ClockOutTime.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_out_time",
			Message: "clock_out_time is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockOutResponse struct {
	EmployeeName string `json:"employee_name"`
	ClockInTime  string `json:"clock_in_time,omitempty"`
	ClockOutTime string `json:"clock_out_time,omitempty"`
	WorkDuration string `json:"work_duration,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ========================================
// SECURITY SETTINGS
// ========================================

// SecuritySettings is the GPS policy served by the Attendance API. It is the only source of
// the workplace location and radius; there is no local fallback.
type SecuritySettings struct {
	RequireGPSVerification bool
	RadiusMeters           *float64
	Latitude               *float64
	Longitude              *float64
}

// Workplace returns the configured reference location, or ErrInvalidSettings when any part
// of it is missing or out of range.
func (s SecuritySettings) Workplace() (geo.Workplace, error) {
	if s.RadiusMeters == nil || s.Latitude == nil || s.Longitude == nil {
		return geo.Workplace{}, ErrInvalidSettings
	}
	if *s.RadiusMeters <= 0 ||
		!validator.IsValidLatitude(*s.Latitude) ||
		!validator.IsValidLongitude(*s.Longitude) {
		return geo.Workplace{}, ErrInvalidSettings
	}

	return geo.Workplace{
		Latitude:     *s.Latitude,
		Longitude:    *s.Longitude,
		RadiusMeters: *s.RadiusMeters,
	}, nil
}
