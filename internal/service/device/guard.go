package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
)

type GuardImpl struct {
	store device.SessionStore
	loc   *time.Location
	now   func() time.Time
}

func (g *GuardImpl) today() time.Time {
	return g.now().In(g.loc)
}

// Load implements device.Guard.
func (g *GuardImpl) Load(ctx context.Context, deviceID string) (device.Session, error) {
	if deviceID == "" {
		return device.Session{}, device.ErrMissingDeviceID
	}

	key := device.SessionKey(deviceID)
	raw, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, device.ErrKeyNotFound) {
			return device.Session{}, nil
		}
		return device.Session{}, fmt.Errorf("failed to load device session: %w", err)
	}

	var session device.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		slog.Warn("Discarding unreadable device session", "device_id", deviceID, "error", err)
		return device.Session{}, g.discard(ctx, key)
	}

	// Sessions only live for the calendar day they were started on.
	if !session.IsFrom(g.today()) {
		slog.Info("Discarding device session from a previous day", "device_id", deviceID)
		return device.Session{}, g.discard(ctx, key)
	}

	return session, nil
}

// CheckAvailability implements device.Guard.
func (g *GuardImpl) CheckAvailability(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (device.Availability, error) {
	session, err := g.Load(ctx, deviceID)
	if err != nil {
		return device.Availability{}, err
	}

	if hrLoggedIn {
		return device.Availability{Available: true, Reason: "HR access granted"}, nil
	}

	// A stored HR flag only describes the last transition; ownership rules apply to staff.
	if session.ActiveEmployeeID == nil {
		return device.Availability{Available: true, Reason: "Device available"}, nil
	}

	if *session.ActiveEmployeeID == employeeID {
		return device.Availability{Available: true, Reason: "Continuing your session"}, nil
	}

	unavailable := &device.UnavailableError{OccupyingEmployeeID: *session.ActiveEmployeeID}
	return device.Availability{Available: false, Reason: unavailable.Error()}, nil
}

// Claim implements device.Guard.
func (g *GuardImpl) Claim(ctx context.Context, deviceID string, employeeID string, hrLoggedIn bool) (device.Session, error) {
	session, err := g.Load(ctx, deviceID)
	if err != nil {
		return device.Session{}, err
	}

	if hrLoggedIn {
		return g.markHR(ctx, deviceID, session)
	}

	if session.ActiveEmployeeID != nil {
		if *session.ActiveEmployeeID != employeeID {
			return session, &device.UnavailableError{OccupyingEmployeeID: *session.ActiveEmployeeID}
		}
		if !session.IsHRSession {
			return session, nil
		}
		session.IsHRSession = false
		if err := g.save(ctx, deviceID, session); err != nil {
			return device.Session{}, err
		}
		return session, nil
	}

	now := g.today()
	session.ActiveEmployeeID = &employeeID
	session.IsHRSession = false
	session.SessionStartTime = &now

	if err := g.save(ctx, deviceID, session); err != nil {
		return device.Session{}, err
	}

	slog.Info("Device claimed", "device_id", deviceID, "employee_id", employeeID)
	return session, nil
}

// Release implements device.Guard.
func (g *GuardImpl) Release(ctx context.Context, deviceID string, hrLoggedIn bool) (device.Session, error) {
	session, err := g.Load(ctx, deviceID)
	if err != nil {
		return device.Session{}, err
	}

	// HR sessions never alter device ownership.
	if hrLoggedIn {
		return g.markHR(ctx, deviceID, session)
	}

	session = device.Session{}
	if err := g.save(ctx, deviceID, session); err != nil {
		return device.Session{}, err
	}

	slog.Info("Device released", "device_id", deviceID)
	return session, nil
}

func (g *GuardImpl) markHR(ctx context.Context, deviceID string, session device.Session) (device.Session, error) {
	if session.IsHRSession {
		return session, nil
	}

	session.IsHRSession = true
	if session.SessionStartTime == nil {
		now := g.today()
		session.SessionStartTime = &now
	}
	if err := g.save(ctx, deviceID, session); err != nil {
		return device.Session{}, err
	}
	return session, nil
}

func (g *GuardImpl) save(ctx context.Context, deviceID string, session device.Session) error {
	key := device.SessionKey(deviceID)
	if session.IsEmpty() {
		return g.discard(ctx, key)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode device session: %w", err)
	}

	if err := g.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to save device session: %w", err)
	}
	return nil
}

func (g *GuardImpl) discard(ctx context.Context, key string) error {
	if err := g.store.Delete(ctx, key); err != nil && !errors.Is(err, device.ErrKeyNotFound) {
		return fmt.Errorf("failed to clear device session: %w", err)
	}
	return nil
}

// NewGuard builds a device guard. Calendar days are evaluated in loc; now defaults to time.Now.
func NewGuard(store device.SessionStore, loc *time.Location, now func() time.Time) device.Guard {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &GuardImpl{
		store: store,
		loc:   loc,
		now:   now,
	}
}
