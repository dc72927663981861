package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlightLocker_ExclusiveAcrossInstances(t *testing.T) {
	ctx := context.Background()
	first := postgresql.NewInFlightLocker(newTestDatabase(t))
	second := postgresql.NewInFlightLocker(newTestDatabase(t))
	key := workflow.DeviceKey("kiosk-" + uuid.NewString())

	release, err := first.TryAcquire(ctx, key)
	require.NoError(t, err)

	_, err = second.TryAcquire(ctx, key)
	assert.ErrorIs(t, err, workflow.ErrInProgress)
	_, err = first.TryAcquire(ctx, key)
	assert.ErrorIs(t, err, workflow.ErrInProgress)

	release()
	release()

	again, err := second.TryAcquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestInFlightLocker_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	locker := postgresql.NewInFlightLocker(newTestDatabase(t))
	id := uuid.NewString()

	releaseEmployee, err := locker.TryAcquire(ctx, workflow.EmployeeKey(id))
	require.NoError(t, err)
	defer releaseEmployee()

	releaseDevice, err := locker.TryAcquire(ctx, workflow.DeviceKey(id))
	require.NoError(t, err)
	defer releaseDevice()
}

func TestInFlightLocker_ReleaseReturnsConnection(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	locker := postgresql.NewInFlightLocker(db)

	// More sequential acquisitions than the pool has connections.
	for i := 0; i < 10; i++ {
		release, err := locker.TryAcquire(ctx, workflow.EmployeeKey("E1-"+uuid.NewString()))
		require.NoError(t, err)
		release()
	}
	assert.Zero(t, db.Stat().AcquiredConns())
}
