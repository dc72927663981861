package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
)

type OrchestratorImpl struct {
	guard     device.Guard
	mirror    device.Mirror
	api       attendance.AttendanceAPI
	machine   attendance.StateMachine
	verifier  geo.Verifier
	inFlight  workflow.InFlightGuard
	publisher workflow.EventPublisher
	loc       *time.Location
	now       func() time.Time
}

// ClockIn implements workflow.Orchestrator.
func (o *OrchestratorImpl) ClockIn(ctx context.Context, cmd workflow.ClockInCommand) (workflow.ClockInResult, error) {
	if err := cmd.Validate(); err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	release, err := o.acquire(ctx, cmd.DeviceID, cmd.EmployeeID)
	if err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}
	defer release()

	if err := o.ensureAvailable(ctx, cmd.DeviceID, cmd.EmployeeID, cmd.HRLoggedIn); err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	status, err := o.api.GetStatus(ctx, cmd.EmployeeID)
	if err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	intent, err := o.machine.RequestClockIn(status, o.clock())
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			// The clock-in was recorded but its response never reached this terminal.
			o.rebind(ctx, cmd.DeviceID, cmd.EmployeeID, cmd.HRLoggedIn)
		}
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	req := attendance.ClockInRequest{
		EmployeeID:  intent.EmployeeID,
		ClockInTime: intent.ClockInTime,
	}
	if req.EmployeeID == "" {
		req.EmployeeID = cmd.EmployeeID
	}

	// Settings are read on every clock-in so a policy change applies immediately.
	settings, err := o.api.GetSecuritySettings(ctx)
	if err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	var distance *int
	if settings.RequireGPSVerification {
		point, verdict, err := o.verifyLocation(ctx, settings, cmd.Locator)
		if err != nil {
			return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
		}
		req.Latitude = &point.Latitude
		req.Longitude = &point.Longitude
		req.Accuracy = point.Accuracy
		distance = &verdict.DistanceMeters
	}

	if err := req.Validate(); err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	resp, err := o.api.ClockIn(ctx, req)
	if err != nil {
		return workflow.ClockInResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	name := resp.EmployeeName
	if name == "" {
		name = status.EmployeeName
	}
	message := resp.Message
	if message == "" {
		message = "Clock in successful"
	}

	// The Attendance API has recorded the clock-in; local bookkeeping failures are logged
	// and never turn a recorded clock-in into an error.
	if _, err := o.guard.Claim(ctx, cmd.DeviceID, req.EmployeeID, cmd.HRLoggedIn); err != nil {
		slog.Error("Failed to claim device after clock-in", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	clockIn := intent.ClockInTime
	session, err := o.mirror.SaveEmployeeSession(ctx, cmd.DeviceID, device.EmployeeSession{
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		Status:       string(attendance.StatusClockedIn),
		ClockInTime:  &clockIn,
		InProgress:   true,
	})
	if err != nil {
		slog.Error("Failed to save employee session", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	if err := o.mirror.AppendHistory(ctx, cmd.DeviceID, device.HistoryEntry{
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		ClockInTime:  clockIn,
		Status:       string(attendance.StatusClockedIn),
		Location:     resp.Location,
	}); err != nil {
		slog.Error("Failed to append clock history", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	slog.Info("Clock-in recorded",
		"device_id", cmd.DeviceID,
		"employee_id", req.EmployeeID,
		"hr_session", cmd.HRLoggedIn,
		"gps_verified", distance != nil)

	o.publish(ctx, workflow.Event{
		Type:         workflow.EventClockInSucceeded,
		DeviceID:     cmd.DeviceID,
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		Message:      message,
		OccurredAt:   clockIn,
	})

	return workflow.ClockInResult{
		SessionID:      session.SessionID,
		EmployeeID:     req.EmployeeID,
		EmployeeName:   name,
		ClockInTime:    clockIn,
		Location:       resp.Location,
		DistanceMeters: distance,
		Message:        message,
	}, nil
}

// ClockOut implements workflow.Orchestrator.
func (o *OrchestratorImpl) ClockOut(ctx context.Context, cmd workflow.ClockOutCommand) (workflow.ClockOutResult, error) {
	if err := cmd.Validate(); err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	release, err := o.acquire(ctx, cmd.DeviceID, cmd.EmployeeID)
	if err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}
	defer release()

	if err := o.ensureAvailable(ctx, cmd.DeviceID, cmd.EmployeeID, cmd.HRLoggedIn); err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	status, err := o.api.GetStatus(ctx, cmd.EmployeeID)
	if err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	intent, err := o.machine.RequestClockOut(status, o.clock())
	if err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	req := attendance.ClockOutRequest{
		EmployeeID:   intent.EmployeeID,
		ClockOutTime: intent.ClockOutTime,
	}
	if req.EmployeeID == "" {
		req.EmployeeID = cmd.EmployeeID
	}
	if err := req.Validate(); err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	resp, err := o.api.ClockOut(ctx, req)
	if err != nil {
		return workflow.ClockOutResult{}, o.reject(ctx, cmd.DeviceID, cmd.EmployeeID, err)
	}

	name := resp.EmployeeName
	if name == "" {
		name = status.EmployeeName
	}
	message := resp.Message
	if message == "" {
		message = "Clock out successful"
	}
	// The duration shown is always the locally computed one.
	duration := intent.WorkDuration.String()

	if _, err := o.guard.Release(ctx, cmd.DeviceID, cmd.HRLoggedIn); err != nil {
		slog.Error("Failed to release device after clock-out", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	clockIn, clockOut := intent.ClockInTime, intent.ClockOutTime
	session, err := o.mirror.SaveEmployeeSession(ctx, cmd.DeviceID, device.EmployeeSession{
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		Status:       string(attendance.StatusCompleted),
		ClockInTime:  &clockIn,
		ClockOutTime: &clockOut,
		WorkDuration: duration,
		InProgress:   false,
	})
	if err != nil {
		slog.Error("Failed to save employee session", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	if err := o.mirror.CompleteHistory(ctx, cmd.DeviceID, device.HistoryEntry{
		EmployeeID:   req.EmployeeID,
		ClockOutTime: &clockOut,
		WorkDuration: duration,
		Status:       string(attendance.StatusCompleted),
	}); err != nil {
		slog.Error("Failed to complete clock history", "device_id", cmd.DeviceID, "employee_id", req.EmployeeID, "error", err)
	}

	slog.Info("Clock-out recorded",
		"device_id", cmd.DeviceID,
		"employee_id", req.EmployeeID,
		"hr_session", cmd.HRLoggedIn,
		"work_duration", duration)

	o.publish(ctx, workflow.Event{
		Type:         workflow.EventClockOutSucceeded,
		DeviceID:     cmd.DeviceID,
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		Message:      message,
		OccurredAt:   clockOut,
	})

	return workflow.ClockOutResult{
		SessionID:    session.SessionID,
		EmployeeID:   req.EmployeeID,
		EmployeeName: name,
		ClockInTime:  clockIn,
		ClockOutTime: clockOut,
		WorkDuration: duration,
		Message:      message,
	}, nil
}

// Status implements workflow.Orchestrator. deviceID is optional; when given, the device's
// employee session mirror is brought in line with the server.
func (o *OrchestratorImpl) Status(ctx context.Context, deviceID string, employeeID string) (workflow.StatusView, error) {
	if !validator.IsValidEmployeeID(employeeID) {
		return workflow.StatusView{}, workflow.Wrap(validator.ValidationErrors{{
			Field:   "employee_id",
			Message: "employee_id is malformed",
		}})
	}

	observedAt := o.clock()
	status, err := o.api.GetStatus(ctx, employeeID)
	if err != nil {
		return workflow.StatusView{}, workflow.Wrap(err)
	}

	state, err := o.machine.EffectiveState(status)
	if err != nil {
		slog.Error("Attendance API returned an inconsistent status", "employee_id", employeeID, "error", err)
		return workflow.StatusView{}, workflow.Wrap(err)
	}

	now := o.clock()
	view := workflow.StatusView{
		EmployeeID:   employeeID,
		EmployeeName: status.EmployeeName,
		Status:       string(state),
		ClockInTime:  status.ClockInTime,
		ClockOutTime: status.ClockOutTime,
		Deadline:     o.machine.Deadline(now),
	}

	switch state {
	case attendance.StatusNotClockedIn:
		if _, err := o.machine.RequestClockIn(status, now); err != nil {
			view.Message = "Clock-in deadline has passed for today"
		} else {
			view.CanClockIn = true
			view.Message = "Employee has not clocked in today"
		}
	case attendance.StatusClockedIn:
		view.CanClockOut = true
		view.Message = "Employee is clocked in and can now clock out"
		if d, err := attendance.NewWorkDuration(*status.ClockInTime, now); err == nil {
			view.WorkDuration = d.String()
		}
	case attendance.StatusCompleted:
		view.Message = "Employee has completed attendance for today"
		if d, err := attendance.NewWorkDuration(*status.ClockInTime, *status.ClockOutTime); err == nil {
			view.WorkDuration = d.String()
		}
	default:
		view.Message = "Attendance for today has already been closed"
	}

	if deviceID != "" {
		o.syncMirror(ctx, deviceID, employeeID, state, observedAt)
	}

	return view, nil
}

// Availability implements workflow.Orchestrator.
func (o *OrchestratorImpl) Availability(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (device.Availability, error) {
	if err := workflow.ValidateIdentity(deviceID, employeeID); err != nil {
		return device.Availability{}, workflow.Wrap(err)
	}

	availability, err := o.guard.CheckAvailability(ctx, deviceID, employeeID, hrLoggedIn)
	if err != nil {
		return device.Availability{}, workflow.Wrap(err)
	}
	return availability, nil
}

// Session implements workflow.Orchestrator.
func (o *OrchestratorImpl) Session(ctx context.Context, deviceID string) (workflow.SessionView, error) {
	session, err := o.guard.Load(ctx, deviceID)
	if err != nil {
		return workflow.SessionView{}, workflow.Wrap(err)
	}

	employee, err := o.mirror.LoadEmployeeSession(ctx, deviceID)
	if err != nil {
		return workflow.SessionView{}, workflow.Wrap(err)
	}

	return workflow.SessionView{Device: session, Employee: employee}, nil
}

// History implements workflow.Orchestrator.
func (o *OrchestratorImpl) History(ctx context.Context, deviceID string) ([]device.HistoryEntry, error) {
	if deviceID == "" {
		return nil, workflow.Wrap(device.ErrMissingDeviceID)
	}

	history, err := o.mirror.History(ctx, deviceID)
	if err != nil {
		return nil, workflow.Wrap(err)
	}
	return history, nil
}

func (o *OrchestratorImpl) clock() time.Time {
	return o.now().In(o.loc)
}

// acquire holds both the employee and the device key for the duration of one workflow.
func (o *OrchestratorImpl) acquire(ctx context.Context, deviceID, employeeID string) (func(), error) {
	releaseEmployee, err := o.inFlight.TryAcquire(ctx, workflow.EmployeeKey(employeeID))
	if err != nil {
		return nil, err
	}

	releaseDevice, err := o.inFlight.TryAcquire(ctx, workflow.DeviceKey(deviceID))
	if err != nil {
		releaseEmployee()
		return nil, err
	}

	return func() {
		releaseDevice()
		releaseEmployee()
	}, nil
}

// rebind claims the device for an employee the server already has clocked in.
func (o *OrchestratorImpl) rebind(ctx context.Context, deviceID, employeeID string, hrLoggedIn bool) {
	if hrLoggedIn {
		return
	}
	if _, err := o.guard.Claim(ctx, deviceID, employeeID, false); err != nil {
		slog.Warn("Failed to rebind device to clocked-in employee", "device_id", deviceID, "employee_id", employeeID, "error", err)
		return
	}
	slog.Info("Device rebound to clocked-in employee", "device_id", deviceID, "employee_id", employeeID)
}

// syncMirror brings the employee session mirror in line with a status read at observedAt. It
// yields to a running workflow on the device and never overwrites a newer mirror.
func (o *OrchestratorImpl) syncMirror(ctx context.Context, deviceID, employeeID string, state attendance.Status, observedAt time.Time) {
	release, err := o.inFlight.TryAcquire(ctx, workflow.DeviceKey(deviceID))
	if err != nil {
		slog.Debug("Skipping employee session sync", "device_id", deviceID, "employee_id", employeeID, "error", err)
		return
	}
	defer release()

	changed, err := o.mirror.UpdateEmployeeStatus(ctx, deviceID, employeeID, string(state), state == attendance.StatusClockedIn, observedAt)
	if err != nil {
		slog.Warn("Failed to sync employee session", "device_id", deviceID, "employee_id", employeeID, "error", err)
		return
	}
	if changed {
		slog.Info("Employee session synced with server", "device_id", deviceID, "employee_id", employeeID, "status", state)
	}
}

func (o *OrchestratorImpl) ensureAvailable(ctx context.Context, deviceID, employeeID string, hrLoggedIn bool) error {
	availability, err := o.guard.CheckAvailability(ctx, deviceID, employeeID, hrLoggedIn)
	if err != nil {
		return err
	}
	if !availability.Available {
		return &workflow.Error{
			Kind:    workflow.KindDeviceUnavailable,
			Message: availability.Reason,
			Err:     device.ErrDeviceUnavailable,
		}
	}
	return nil
}

func (o *OrchestratorImpl) verifyLocation(ctx context.Context, settings attendance.SecuritySettings, locator geo.Locator) (geo.Point, geo.Verdict, error) {
	workplace, err := settings.Workplace()
	if err != nil {
		return geo.Point{}, geo.Verdict{}, err
	}

	point, err := o.verifier.Locate(ctx, locator)
	if err != nil {
		return geo.Point{}, geo.Verdict{}, err
	}

	verdict := o.verifier.VerifyWithinRadius(point, workplace)
	if !verdict.WithinRadius {
		return point, verdict, &geo.OutOfRangeError{
			DistanceMeters: verdict.DistanceMeters,
			RadiusMeters:   workplace.RadiusMeters,
		}
	}

	return point, verdict, nil
}

func (o *OrchestratorImpl) reject(ctx context.Context, deviceID, employeeID string, err error) error {
	wfErr := workflow.Wrap(err)

	if wfErr.Kind == workflow.KindInternal {
		slog.Error("Workflow failed", "device_id", deviceID, "employee_id", employeeID, "error", err)
	} else {
		slog.Info("Workflow rejected", "device_id", deviceID, "employee_id", employeeID, "kind", wfErr.Kind, "reason", wfErr.Message)
	}

	if deviceID != "" {
		o.publish(ctx, workflow.Event{
			Type:       workflow.EventRejected,
			DeviceID:   deviceID,
			EmployeeID: employeeID,
			Kind:       wfErr.Kind,
			Message:    wfErr.Message,
			OccurredAt: o.clock(),
		})
	}

	return wfErr
}

func (o *OrchestratorImpl) publish(ctx context.Context, event workflow.Event) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, event)
}

func NewOrchestrator(
	guard device.Guard,
	mirror device.Mirror,
	api attendance.AttendanceAPI,
	machine attendance.StateMachine,
	verifier geo.Verifier,
	inFlight workflow.InFlightGuard,
	publisher workflow.EventPublisher,
	loc *time.Location,
) workflow.Orchestrator {
	if loc == nil {
		loc = time.Local
	}
	return &OrchestratorImpl{
		guard:     guard,
		mirror:    mirror,
		api:       api,
		machine:   machine,
		verifier:  verifier,
		inFlight:  inFlight,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}
