package memory

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	_, err := store.Get(ctx, "device_session:abc")
	assert.ErrorIs(t, err, device.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "device_session:abc", `{"is_hr_session":false}`))
	got, err := store.Get(ctx, "device_session:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"is_hr_session":false}`, got)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "device_session:abc"))
	assert.Equal(t, 0, store.Len())
	require.NoError(t, store.Delete(ctx, "device_session:abc"))
}
