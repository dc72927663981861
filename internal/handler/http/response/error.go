package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

type kindMapping struct {
	status int
	code   string
}

var kindMappings = map[workflow.Kind]kindMapping{
	workflow.KindDeviceUnavailable:   {http.StatusLocked, "DEVICE_UNAVAILABLE"},
	workflow.KindDeadlinePassed:      {http.StatusUnprocessableEntity, "DEADLINE_PASSED"},
	workflow.KindInvalidState:        {http.StatusConflict, "INVALID_STATE"},
	workflow.KindOrderingViolation:   {http.StatusConflict, "ORDERING_VIOLATION"},
	workflow.KindOutOfRange:          {http.StatusForbidden, "OUT_OF_RANGE"},
	workflow.KindLocationUnavailable: {http.StatusFailedDependency, "LOCATION_UNAVAILABLE"},
	workflow.KindNetworkError:        {http.StatusBadGateway, "NETWORK_ERROR"},
	workflow.KindServerRejected:      {http.StatusUnprocessableEntity, "SERVER_REJECTED"},
	workflow.KindEmployeeNotFound:    {http.StatusNotFound, "EMPLOYEE_NOT_FOUND"},
	workflow.KindInProgress:          {http.StatusTooManyRequests, "IN_PROGRESS"},
	workflow.KindValidation:          {http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	wfErr := workflow.Wrap(err)

	mapping, ok := kindMappings[wfErr.Kind]
	if !ok {
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	var details map[string]string
	if wfErr.DistanceMeters != nil {
		details = map[string]string{"distance_meters": strconv.Itoa(*wfErr.DistanceMeters)}
	}
	if wfErr.Retryable() {
		if details == nil {
			details = map[string]string{}
		}
		details["retryable"] = "true"
	}

	writeJSON(w, mapping.status, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    mapping.code,
			Message: wfErr.Message,
			Details: details,
		},
	})
}
