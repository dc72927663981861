package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/google/uuid"
)

type MirrorImpl struct {
	store device.SessionStore
	loc   *time.Location
	now   func() time.Time
}

// LoadEmployeeSession implements device.Mirror. It returns nil when nothing is mirrored.
func (m *MirrorImpl) LoadEmployeeSession(ctx context.Context, deviceID string) (*device.EmployeeSession, error) {
	var session device.EmployeeSession
	found, err := m.load(ctx, device.EmployeeSessionKey(deviceID), &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

// SaveEmployeeSession implements device.Mirror. The session ID is kept while the same
// employee stays on the device and regenerated when a different one takes over.
func (m *MirrorImpl) SaveEmployeeSession(ctx context.Context, deviceID string, session device.EmployeeSession) (device.EmployeeSession, error) {
	existing, err := m.LoadEmployeeSession(ctx, deviceID)
	if err != nil {
		return device.EmployeeSession{}, err
	}

	if session.SessionID == "" {
		if existing != nil && existing.EmployeeID == session.EmployeeID {
			session.SessionID = existing.SessionID
		} else {
			session.SessionID = newSessionID()
		}
	}
	if session.EmployeeName == "" && existing != nil && existing.EmployeeID == session.EmployeeID {
		session.EmployeeName = existing.EmployeeName
	}
	session.LastUpdateTime = m.now().In(m.loc)

	if err := m.save(ctx, device.EmployeeSessionKey(deviceID), session); err != nil {
		return device.EmployeeSession{}, err
	}
	return session, nil
}

// UpdateEmployeeStatus implements device.Mirror.
func (m *MirrorImpl) UpdateEmployeeStatus(ctx context.Context, deviceID string, employeeID string, status string, inProgress bool, observedAt time.Time) (bool, error) {
	existing, err := m.LoadEmployeeSession(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.EmployeeID != employeeID {
		return false, nil
	}
	// A workflow finished after the status was read; its record wins.
	if existing.LastUpdateTime.After(observedAt) {
		return false, nil
	}
	if existing.Status == status && existing.InProgress == inProgress {
		return false, nil
	}

	existing.Status = status
	existing.InProgress = inProgress
	existing.LastUpdateTime = m.now().In(m.loc)

	if err := m.save(ctx, device.EmployeeSessionKey(deviceID), existing); err != nil {
		return false, err
	}
	return true, nil
}

// AppendHistory implements device.Mirror. Newest entries come first.
func (m *MirrorImpl) AppendHistory(ctx context.Context, deviceID string, entry device.HistoryEntry) error {
	history, err := m.History(ctx, deviceID)
	if err != nil {
		return err
	}

	history = append([]device.HistoryEntry{entry}, history...)
	if len(history) > device.MaxHistoryEntries {
		history = history[:device.MaxHistoryEntries]
	}

	return m.save(ctx, device.HistoryKey(deviceID), history)
}

// CompleteHistory implements device.Mirror. It fills in today's open entry for the employee;
// a missing entry is not an error.
func (m *MirrorImpl) CompleteHistory(ctx context.Context, deviceID string, entry device.HistoryEntry) error {
	history, err := m.History(ctx, deviceID)
	if err != nil {
		return err
	}

	today := m.now().In(m.loc)
	for i := range history {
		h := &history[i]
		if h.EmployeeID != entry.EmployeeID || h.ClockOutTime != nil || !sameDay(h.ClockInTime, today) {
			continue
		}
		h.ClockOutTime = entry.ClockOutTime
		h.WorkDuration = entry.WorkDuration
		h.Status = entry.Status
		return m.save(ctx, device.HistoryKey(deviceID), history)
	}

	return nil
}

// History implements device.Mirror.
func (m *MirrorImpl) History(ctx context.Context, deviceID string) ([]device.HistoryEntry, error) {
	history := []device.HistoryEntry{}
	if _, err := m.load(ctx, device.HistoryKey(deviceID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (m *MirrorImpl) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, device.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MirrorImpl) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func NewMirror(store device.SessionStore, loc *time.Location, now func() time.Time) device.Mirror {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &MirrorImpl{
		store: store,
		loc:   loc,
		now:   now,
	}
}
