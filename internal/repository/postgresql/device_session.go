package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const deviceKVSchema = `
CREATE TABLE IF NOT EXISTS device_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_device_kv_updated_at ON device_kv (updated_at);
`

// DeviceSessionStore implements device.SessionStore on a single key/value table.
type DeviceSessionStore struct {
	db *database.DB
}

func NewDeviceSessionStore(db *database.DB) *DeviceSessionStore {
	return &DeviceSessionStore{db: db}
}

// EnsureSchema creates the device_kv table when missing.
func (r *DeviceSessionStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, deviceKVSchema); err != nil {
		return fmt.Errorf("create device_kv: %w", err)
	}
	return nil
}

// Get implements device.SessionStore.
func (r *DeviceSessionStore) Get(ctx context.Context, key string) (string, error) {
	q := GetQuerier(ctx, r.db)

	var value string
	err := q.QueryRow(ctx, `SELECT value FROM device_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", device.ErrKeyNotFound
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set implements device.SessionStore.
func (r *DeviceSessionStore) Set(ctx context.Context, key string, value string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO device_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete implements device.SessionStore.
func (r *DeviceSessionStore) Delete(ctx context.Context, key string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM device_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PurgeStale removes device and employee sessions not written since before. Clock history
// is kept. It returns the number of rows removed.
func (r *DeviceSessionStore) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	var purged int64

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		for _, prefix := range []string{device.SessionKey(""), device.EmployeeSessionKey("")} {
			tag, err := q.Exec(ctx, `
				DELETE FROM device_kv
				WHERE starts_with(key, $1) AND updated_at < $2
			`, prefix, before)
			if err != nil {
				return fmt.Errorf("purge %s: %w", prefix, err)
			}
			purged += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return purged, nil
}
