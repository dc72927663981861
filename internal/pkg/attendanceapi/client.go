package attendanceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/attendance"
)

// TimestampLayout is the local civil time format the Attendance API expects.
const TimestampLayout = "2006-01-02T15:04:05"

const maxBodyBytes = 1 << 20

// Radius units accepted for gps_verification_radius.
const (
	RadiusMeters     = "m"
	RadiusKilometers = "km"
)

var clockLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM"}

var timestampLayouts = []string{TimestampLayout, "2006-01-02 15:04:05", time.RFC3339}

// Client talks to the external Attendance API. It implements attendance.AttendanceAPI.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	loc        *time.Location
	radiusUnit string
	now        func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, loc *time.Location, radiusUnit string) *Client {
	if loc == nil {
		loc = time.Local
	}
	if radiusUnit == "" {
		radiusUnit = RadiusMeters
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		loc:        loc,
		radiusUnit: radiusUnit,
		now:        time.Now,
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

type statusResponse struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Status       string `json:"status"`
	ClockInTime  string `json:"clock_in_time"`
	ClockOutTime string `json:"clock_out_time"`
}

type clockInPayload struct {
	EmployeeID  string   `json:"employeeId"`
	ClockInTime string   `json:"clockInTime"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
}

type clockOutPayload struct {
	EmployeeID   string `json:"employeeId"`
	ClockOutTime string `json:"clockOutTime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// settingValue accepts a JSON string, number or boolean and keeps its text.
type settingValue string

func (v *settingValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = settingValue(strings.TrimSpace(s))
		return nil
	}
	*v = settingValue(strings.TrimSpace(string(data)))
	return nil
}

type securitySettingsResponse struct {
	RequireGPSVerification settingValue `json:"require_gps_verification"`
	GPSVerificationRadius  settingValue `json:"gps_verification_radius"`
	AssemblyLatitude       settingValue `json:"assembly_latitude"`
	AssemblyLongitude      settingValue `json:"assembly_longitude"`
}

// GetStatus implements attendance.AttendanceAPI.
func (c *Client) GetStatus(ctx context.Context, employeeID string) (attendance.EmployeeStatus, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status/"+url.PathEscape(employeeID), nil, &resp); err != nil {
		return attendance.EmployeeStatus{}, err
	}

	clockIn, err := c.parseClockTime(resp.ClockInTime)
	if err != nil {
		return attendance.EmployeeStatus{}, err
	}
	clockOut, err := c.parseClockTime(resp.ClockOutTime)
	if err != nil {
		return attendance.EmployeeStatus{}, err
	}

	status := attendance.Status(resp.Status)
	if !status.Valid() {
		// Unknown labels are left for the state machine to derive from the clock times.
		status = ""
	}

	id := resp.EmployeeID
	if id == "" {
		id = employeeID
	}

	return attendance.EmployeeStatus{
		EmployeeID:   id,
		EmployeeName: resp.EmployeeName,
		Status:       status,
		ClockInTime:  clockIn,
		ClockOutTime: clockOut,
	}, nil
}

// ClockIn implements attendance.AttendanceAPI.
func (c *Client) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.ClockInResponse, error) {
	payload := clockInPayload{
		EmployeeID:  req.EmployeeID,
		ClockInTime: req.ClockInTime.In(c.loc).Format(TimestampLayout),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Accuracy:    req.Accuracy,
	}

	var resp attendance.ClockInResponse
	if err := c.do(ctx, http.MethodPost, "/api/clock-in", payload, &resp); err != nil {
		return attendance.ClockInResponse{}, err
	}
	return resp, nil
}

// ClockOut implements attendance.AttendanceAPI.
func (c *Client) ClockOut(ctx context.Context, req attendance.ClockOutRequest) (attendance.ClockOutResponse, error) {
	payload := clockOutPayload{
		EmployeeID:   req.EmployeeID,
		ClockOutTime: req.ClockOutTime.In(c.loc).Format(TimestampLayout),
	}

	var resp attendance.ClockOutResponse
	if err := c.do(ctx, http.MethodPost, "/api/clock-out", payload, &resp); err != nil {
		return attendance.ClockOutResponse{}, err
	}
	return resp, nil
}

// GetSecuritySettings implements attendance.AttendanceAPI. A missing
// require_gps_verification flag is treated as required.
func (c *Client) GetSecuritySettings(ctx context.Context) (attendance.SecuritySettings, error) {
	var resp securitySettingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/settings/security", nil, &resp); err != nil {
		return attendance.SecuritySettings{}, err
	}

	settings := attendance.SecuritySettings{RequireGPSVerification: true}
	if resp.RequireGPSVerification != "" {
		required, err := strconv.ParseBool(strings.ToLower(string(resp.RequireGPSVerification)))
		if err != nil {
			return attendance.SecuritySettings{}, fmt.Errorf("%w: require_gps_verification %q", attendance.ErrInvalidSettings, resp.RequireGPSVerification)
		}
		settings.RequireGPSVerification = required
	}

	settings.RadiusMeters = parseFloat(resp.GPSVerificationRadius)
	if settings.RadiusMeters != nil && c.radiusUnit == RadiusKilometers {
		meters := *settings.RadiusMeters * 1000
		settings.RadiusMeters = &meters
	}
	settings.Latitude = parseFloat(resp.AssemblyLatitude)
	settings.Longitude = parseFloat(resp.AssemblyLongitude)

	return settings, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", attendance.ErrAPIUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", attendance.ErrAPIUnavailable, path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: %s returned a non-JSON body", attendance.ErrAPIUnavailable, path)
		}
		return nil
	}

	var apiErr errorResponse
	decodeErr := json.Unmarshal(raw, &apiErr)

	if resp.StatusCode == http.StatusNotFound {
		if decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%w: %s", attendance.ErrEmployeeNotFound, apiErr.Error)
		}
		return attendance.ErrEmployeeNotFound
	}

	if decodeErr != nil || (apiErr.Error == "" && resp.StatusCode >= 500) {
		return fmt.Errorf("%w: %s returned status %d", attendance.ErrAPIUnavailable, path, resp.StatusCode)
	}

	return &attendance.ServerError{StatusCode: resp.StatusCode, Message: apiErr.Error}
}

// parseClockTime reads a time-of-day (or a full timestamp) as local time on today's date.
func (c *Client) parseClockTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			t = t.In(c.loc)
			return &t, nil
		}
	}

	today := c.now().In(c.loc)
	for _, layout := range clockLayouts {
		t, err := time.ParseInLocation(layout, strings.ToUpper(s), c.loc)
		if err != nil {
			continue
		}
		combined := time.Date(today.Year(), today.Month(), today.Day(), t.Hour(), t.Minute(), t.Second(), 0, c.loc)
		return &combined, nil
	}

	return nil, fmt.Errorf("%w: unreadable clock time %q", attendance.ErrAPIUnavailable, s)
}

func parseFloat(v settingValue) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return nil
	}
	return &f
}
