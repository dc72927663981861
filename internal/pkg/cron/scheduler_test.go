package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	before time.Time
	purged int64
	err    error
}

func (f *fakePurger) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.purged, f.err
}

func TestDeviceSessionJobs_UsesRetentionCutoff(t *testing.T) {
	purger := &fakePurger{purged: 3}
	jobs := NewDeviceSessionJobs(purger, 48*time.Hour, time.Hour)
	now := time.Date(2026, 10, 19, 0, 30, 0, 0, time.UTC)
	jobs.now = func() time.Time { return now }

	require.NoError(t, jobs.PurgeStaleDeviceSessions(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour), purger.before)
}

func TestDeviceSessionJobs_PropagatesFailure(t *testing.T) {
	purger := &fakePurger{err: errors.New("connection refused")}
	jobs := NewDeviceSessionJobs(purger, time.Hour, time.Hour)

	err := jobs.PurgeStaleDeviceSessions(context.Background())

	assert.ErrorContains(t, err, "connection refused")
}

func TestScheduler_RunOnceAndStop(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler()
	s.AddJob("count", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.AddJob("fail", time.Hour, func(ctx context.Context) error {
		return errors.New("boom")
	})

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), runs.Load())

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 10*time.Millisecond)
	s.Stop()
}
