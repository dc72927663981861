package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StalePurger removes persisted device sessions last written before a cutoff.
type StalePurger interface {
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

type DeviceSessionJobs struct {
	purger    StalePurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewDeviceSessionJobs(purger StalePurger, retention, interval time.Duration) *DeviceSessionJobs {
	return &DeviceSessionJobs{
		purger:    purger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

func (j *DeviceSessionJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("purge_stale_device_sessions", j.interval, j.PurgeStaleDeviceSessions)
}

// PurgeStaleDeviceSessions deletes sessions older than the retention window. Sessions from a
// previous day are already ignored on load; this only reclaims their storage.
func (j *DeviceSessionJobs) PurgeStaleDeviceSessions(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	purged, err := j.purger.PurgeStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge stale device sessions: %w", err)
	}

	if purged > 0 {
		slog.Info("Cron: Purged stale device sessions", "count", purged, "cutoff", cutoff)
	}
	return nil
}
