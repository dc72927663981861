package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDevice = "kiosk-front-desk"

var testLoc = time.FixedZone("GMT", 0)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestGuard(t *testing.T) (device.Guard, *memory.SessionStore, *testClock) {
	t.Helper()
	store := memory.NewSessionStore()
	clock := &testClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, testLoc)}
	return NewGuard(store, testLoc, clock.Now), store, clock
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("connection refused")
}
func (failingStore) Set(ctx context.Context, key, value string) error { return errors.New("connection refused") }
func (failingStore) Delete(ctx context.Context, key string) error     { return errors.New("connection refused") }

func TestGuard_EmptyDeviceIsAvailable(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	availability, err := guard.CheckAvailability(context.Background(), testDevice, "E1", false)

	require.NoError(t, err)
	assert.True(t, availability.Available)
}

func TestGuard_ClaimLocksOutOtherEmployees(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := newTestGuard(t)

	_, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	other, err := guard.CheckAvailability(ctx, testDevice, "E2", false)
	require.NoError(t, err)
	assert.False(t, other.Available)
	assert.Contains(t, other.Reason, "Employee E1")

	own, err := guard.CheckAvailability(ctx, testDevice, "E1", false)
	require.NoError(t, err)
	assert.True(t, own.Available)
	assert.Equal(t, "Continuing your session", own.Reason)

	hr, err := guard.CheckAvailability(ctx, testDevice, "E2", true)
	require.NoError(t, err)
	assert.True(t, hr.Available)
}

func TestGuard_ClaimIsIdempotent(t *testing.T) {
	ctx := context.Background()
	guard, _, clock := newTestGuard(t)

	first, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Hour)
	second, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	assert.Equal(t, first.SessionStartTime.Unix(), second.SessionStartTime.Unix())
}

func TestGuard_ClaimRefusesToStealDevice(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := newTestGuard(t)

	_, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	_, err = guard.Claim(ctx, testDevice, "E2", false)
	assert.ErrorIs(t, err, device.ErrDeviceUnavailable)
}

func TestGuard_ReleaseFreesDevice(t *testing.T) {
	ctx := context.Background()
	guard, store, _ := newTestGuard(t)

	_, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)
	_, err = guard.Release(ctx, testDevice, false)
	require.NoError(t, err)

	availability, err := guard.CheckAvailability(ctx, testDevice, "E2", false)
	require.NoError(t, err)
	assert.True(t, availability.Available)
	assert.Equal(t, 0, store.Len())
}

func TestGuard_HRSessionNeverAltersOwnership(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := newTestGuard(t)

	session, err := guard.Claim(ctx, testDevice, "E1", true)
	require.NoError(t, err)
	assert.True(t, session.IsHRSession)
	assert.Nil(t, session.ActiveEmployeeID)

	// Once HR has left, the first staff transition claims the device as usual.
	session, err = guard.Claim(ctx, testDevice, "E2", false)
	require.NoError(t, err)
	assert.False(t, session.IsHRSession)
	require.NotNil(t, session.ActiveEmployeeID)
	assert.Equal(t, "E2", *session.ActiveEmployeeID)
}

func TestGuard_HRReleaseKeepsOwner(t *testing.T) {
	ctx := context.Background()
	guard, _, _ := newTestGuard(t)

	_, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	session, err := guard.Release(ctx, testDevice, true)
	require.NoError(t, err)
	require.NotNil(t, session.ActiveEmployeeID)
	assert.Equal(t, "E1", *session.ActiveEmployeeID)
	assert.True(t, session.IsHRSession)

	// Once HR is gone the employee still holds the device.
	other, err := guard.CheckAvailability(ctx, testDevice, "E2", false)
	require.NoError(t, err)
	assert.False(t, other.Available)

	own, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)
	assert.False(t, own.IsHRSession)
}

func TestGuard_CheckAvailabilityNeverWrites(t *testing.T) {
	ctx := context.Background()
	guard, store, _ := newTestGuard(t)

	hr, err := guard.CheckAvailability(ctx, testDevice, "E1", true)
	require.NoError(t, err)
	assert.True(t, hr.Available)
	assert.Equal(t, 0, store.Len())

	_, err = guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)
	before, err := store.Get(ctx, device.SessionKey(testDevice))
	require.NoError(t, err)

	for _, hrLoggedIn := range []bool{true, false, true} {
		_, err := guard.CheckAvailability(ctx, testDevice, "E2", hrLoggedIn)
		require.NoError(t, err)
	}

	after, err := store.Get(ctx, device.SessionKey(testDevice))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGuard_DayRolloverDiscardsSession(t *testing.T) {
	ctx := context.Background()
	guard, store, clock := newTestGuard(t)

	_, err := guard.Claim(ctx, testDevice, "E1", false)
	require.NoError(t, err)

	clock.now = clock.now.AddDate(0, 0, 1)

	session, err := guard.Load(ctx, testDevice)
	require.NoError(t, err)
	assert.Nil(t, session.ActiveEmployeeID)
	assert.Equal(t, 0, store.Len())

	availability, err := guard.CheckAvailability(ctx, testDevice, "E2", false)
	require.NoError(t, err)
	assert.True(t, availability.Available)
}

func TestGuard_UnreadableSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	guard, store, _ := newTestGuard(t)
	require.NoError(t, store.Set(ctx, device.SessionKey(testDevice), "{not json"))

	session, err := guard.Load(ctx, testDevice)

	require.NoError(t, err)
	assert.Equal(t, device.Session{}, session)
	assert.Equal(t, 0, store.Len())
}

func TestGuard_MissingDeviceID(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	_, err := guard.CheckAvailability(context.Background(), "", "E1", false)

	assert.ErrorIs(t, err, device.ErrMissingDeviceID)
}

func TestGuard_StoreFailureSurfaces(t *testing.T) {
	guard := NewGuard(failingStore{}, testLoc, nil)

	_, err := guard.CheckAvailability(context.Background(), testDevice, "E1", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
