package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeviceID = "kiosk-front-desk"

type fakeOrchestrator struct {
	clockInCmd  workflow.ClockInCommand
	clockOutCmd workflow.ClockOutCommand
	err         error
}

func (f *fakeOrchestrator) ClockIn(ctx context.Context, cmd workflow.ClockInCommand) (workflow.ClockInResult, error) {
	f.clockInCmd = cmd
	if f.err != nil {
		return workflow.ClockInResult{}, f.err
	}
	return workflow.ClockInResult{
		SessionID:    "session-1",
		EmployeeID:   cmd.EmployeeID,
		EmployeeName: "Budi Santoso",
		Message:      "Clock-in successful",
	}, nil
}

func (f *fakeOrchestrator) ClockOut(ctx context.Context, cmd workflow.ClockOutCommand) (workflow.ClockOutResult, error) {
	f.clockOutCmd = cmd
	if f.err != nil {
		return workflow.ClockOutResult{}, f.err
	}
	return workflow.ClockOutResult{
		EmployeeID:   cmd.EmployeeID,
		WorkDuration: "8h 30m",
		Message:      "Clock-out successful",
	}, nil
}

func (f *fakeOrchestrator) Status(ctx context.Context, deviceID string, employeeID string) (workflow.StatusView, error) {
	if f.err != nil {
		return workflow.StatusView{}, f.err
	}
	return workflow.StatusView{EmployeeID: employeeID, CanClockIn: true}, nil
}

func (f *fakeOrchestrator) Availability(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (device.Availability, error) {
	return device.Availability{Available: hrLoggedIn, Reason: deviceID}, nil
}

func (f *fakeOrchestrator) Session(ctx context.Context, deviceID string) (workflow.SessionView, error) {
	return workflow.SessionView{}, nil
}

func (f *fakeOrchestrator) History(ctx context.Context, deviceID string) ([]device.HistoryEntry, error) {
	return []device.HistoryEntry{{EmployeeID: "EMP-0042", Status: "in_progress"}}, nil
}

func newTestKiosk(orch workflow.Orchestrator, hub *sse.Hub) http.Handler {
	h := NewKioskHandler(orch, hub, time.Hour)
	r := chi.NewRouter()
	r.Use(middleware.DeviceIdentity(false, time.Hour))
	r.Get("/status/{employeeID}", h.Status)
	r.Get("/availability/{employeeID}", h.Availability)
	r.Post("/clock-in", h.ClockIn)
	r.Post("/clock-out", h.ClockOut)
	r.Get("/history", h.History)
	r.Get("/events", h.Events)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(middleware.DeviceIDHeader, testDeviceID)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestKioskHandler_ClockIn(t *testing.T) {
	orch := &fakeOrchestrator{}
	h := newTestKiosk(orch, sse.NewHub(1))

	w, env := doRequest(t, h, http.MethodPost, "/clock-in",
		`{"employee_id":"EMP-0042","location":{"latitude":-6.2,"longitude":106.8,"accuracy":12}}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Clock-in successful", env.Message)
	assert.Equal(t, testDeviceID, orch.clockInCmd.DeviceID)
	assert.Equal(t, "EMP-0042", orch.clockInCmd.EmployeeID)
	assert.False(t, orch.clockInCmd.HRLoggedIn)

	point, err := orch.clockInCmd.Locator.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -6.2, point.Latitude)
}

func TestKioskHandler_ClockInLocationFailureReachesOrchestrator(t *testing.T) {
	orch := &fakeOrchestrator{}
	h := newTestKiosk(orch, sse.NewHub(1))

	w, _ := doRequest(t, h, http.MethodPost, "/clock-in",
		`{"employee_id":"EMP-0042","location_error":"permission_denied"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	_, err := orch.clockInCmd.Locator.Locate(context.Background())
	var locErr *geo.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, geo.FailurePermissionDenied, locErr.Reason)
}

func TestKioskHandler_ClockInRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "not json", body: `employee=1`, wantStatus: http.StatusBadRequest},
		{name: "missing employee", body: `{}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "latitude out of range", body: `{"employee_id":"EMP-0042","location":{"latitude":91,"longitude":0}}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown location error", body: `{"employee_id":"EMP-0042","location_error":"bored"}`, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &fakeOrchestrator{}
			h := newTestKiosk(orch, sse.NewHub(1))

			w, env := doRequest(t, h, http.MethodPost, "/clock-in", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			assert.Empty(t, orch.clockInCmd.EmployeeID)
		})
	}
}

func TestKioskHandler_ErrorKinds(t *testing.T) {
	distance := 150
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "device unavailable",
			err:        &workflow.Error{Kind: workflow.KindDeviceUnavailable, Message: "Device is in use by another employee"},
			wantStatus: http.StatusLocked,
			wantCode:   "DEVICE_UNAVAILABLE",
		},
		{
			name:       "out of range",
			err:        &workflow.Error{Kind: workflow.KindOutOfRange, Message: "You are 150m away", DistanceMeters: &distance},
			wantStatus: http.StatusForbidden,
			wantCode:   "OUT_OF_RANGE",
		},
		{
			name:       "network",
			err:        &workflow.Error{Kind: workflow.KindNetworkError, Message: "Attendance service is unreachable"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "NETWORK_ERROR",
		},
		{
			name:       "in progress",
			err:        &workflow.Error{Kind: workflow.KindInProgress, Message: "busy", Err: workflow.ErrInProgress},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "IN_PROGRESS",
		},
		{
			name:       "missing device id",
			err:        workflow.Wrap(device.ErrMissingDeviceID),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestKiosk(&fakeOrchestrator{err: tt.err}, sse.NewHub(1))

			w, env := doRequest(t, h, http.MethodPost, "/clock-in", `{"employee_id":"EMP-0042"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	t.Run("distance and retry hints", func(t *testing.T) {
		h := newTestKiosk(&fakeOrchestrator{err: tests[1].err}, sse.NewHub(1))
		_, env := doRequest(t, h, http.MethodPost, "/clock-in", `{"employee_id":"EMP-0042"}`)
		assert.Equal(t, "150", env.Error.Details["distance_meters"])
		assert.NotContains(t, env.Error.Details, "retryable")

		h = newTestKiosk(&fakeOrchestrator{err: tests[2].err}, sse.NewHub(1))
		_, env = doRequest(t, h, http.MethodPost, "/clock-in", `{"employee_id":"EMP-0042"}`)
		assert.Equal(t, "true", env.Error.Details["retryable"])
	})
}

func TestKioskHandler_ClockOut(t *testing.T) {
	orch := &fakeOrchestrator{}
	h := newTestKiosk(orch, sse.NewHub(1))

	w, env := doRequest(t, h, http.MethodPost, "/clock-out", `{"employee_id":"EMP-0042"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Clock-out successful", env.Message)
	assert.Equal(t, testDeviceID, orch.clockOutCmd.DeviceID)
}

func TestKioskHandler_StatusAndHistory(t *testing.T) {
	h := newTestKiosk(&fakeOrchestrator{}, sse.NewHub(1))

	w, env := doRequest(t, h, http.MethodGet, "/status/EMP-0042", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view workflow.StatusView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "EMP-0042", view.EmployeeID)

	w, env = doRequest(t, h, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []device.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

func TestKioskHandler_AvailabilityUsesDeviceFromRequest(t *testing.T) {
	h := newTestKiosk(&fakeOrchestrator{}, sse.NewHub(1))

	w, env := doRequest(t, h, http.MethodGet, "/availability/EMP-0042", "")
	require.Equal(t, http.StatusOK, w.Code)

	var availability device.Availability
	require.NoError(t, json.Unmarshal(env.Data, &availability))
	assert.Equal(t, testDeviceID, availability.Reason)
}

func TestKioskHandler_EventsStream(t *testing.T) {
	hub := sse.NewHub(4)
	srv := httptest.NewServer(newTestKiosk(&fakeOrchestrator{}, hub))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.DeviceIDHeader, testDeviceID)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)
	_, _ = reader.ReadString('\n')
	_, _ = reader.ReadString('\n')

	require.Eventually(t, func() bool { return hub.SubscriberCount(testDeviceID) == 1 }, time.Second, 10*time.Millisecond)
	sse.NewWorkflowPublisher(hub).Publish(ctx, workflow.Event{
		Type:       workflow.EventClockInSucceeded,
		DeviceID:   testDeviceID,
		EmployeeID: "EMP-0042",
	})

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: clock_in.succeeded\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"employee_id":"EMP-0042"`)
}
