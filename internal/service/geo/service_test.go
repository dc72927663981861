package geo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWorkplace = geo.Workplace{Latitude: 6.6745, Longitude: -1.5716, RadiusMeters: 100}

// northOf returns a point the given number of meters due north of the workplace.
func northOf(meters float64) geo.Point {
	dLat := meters / utils.EarthRadiusMeters * 180 / math.Pi
	return geo.Point{Latitude: testWorkplace.Latitude + dLat, Longitude: testWorkplace.Longitude}
}

type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context) (geo.Point, error) {
	<-ctx.Done()
	return geo.Point{}, ctx.Err()
}

type brokenLocator struct{}

func (brokenLocator) Locate(ctx context.Context) (geo.Point, error) {
	return geo.Point{}, errors.New("sensor glitch")
}

func TestVerifyWithinRadius_Inside(t *testing.T) {
	v := NewVerifier(time.Second)

	verdict := v.VerifyWithinRadius(northOf(50), testWorkplace)

	assert.True(t, verdict.WithinRadius)
	assert.Equal(t, 50, verdict.DistanceMeters)
}

func TestVerifyWithinRadius_Outside(t *testing.T) {
	v := NewVerifier(time.Second)

	verdict := v.VerifyWithinRadius(northOf(150), testWorkplace)

	assert.False(t, verdict.WithinRadius)
	assert.InDelta(t, 150, verdict.DistanceMeters, 1)
}

func TestVerifyWithinRadius_AtWorkplace(t *testing.T) {
	v := NewVerifier(time.Second)

	verdict := v.VerifyWithinRadius(geo.Point{Latitude: 6.6745, Longitude: -1.5716}, testWorkplace)

	assert.True(t, verdict.WithinRadius)
	assert.Equal(t, 0, verdict.DistanceMeters)
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	v := NewVerifier(time.Second)
	a := geo.Point{Latitude: 6.6745, Longitude: -1.5716}
	b := geo.Point{Latitude: 6.673, Longitude: -0.520}

	assert.InDelta(t, v.DistanceMeters(a, b), v.DistanceMeters(b, a), 1e-6)
	assert.Zero(t, v.DistanceMeters(a, a))
}

func TestLocate_ReportedPoint(t *testing.T) {
	v := NewVerifier(time.Second)
	acc := 12.5
	want := geo.Point{Latitude: 1, Longitude: 2, Accuracy: &acc}

	got, err := v.Locate(context.Background(), geo.ReportedFix{Point: &want})

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocate_ReportedFailure(t *testing.T) {
	v := NewVerifier(time.Second)

	_, err := v.Locate(context.Background(), geo.ReportedFix{Failure: geo.FailurePermissionDenied})

	require.Error(t, err)
	assert.ErrorIs(t, err, geo.ErrLocationUnavailable)
	var locErr *geo.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, geo.FailurePermissionDenied, locErr.Reason)
}

func TestLocate_NoLocator(t *testing.T) {
	v := NewVerifier(time.Second)

	_, err := v.Locate(context.Background(), nil)

	var locErr *geo.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, geo.FailureUnsupported, locErr.Reason)
}

func TestLocate_Timeout(t *testing.T) {
	v := NewVerifier(20 * time.Millisecond)

	_, err := v.Locate(context.Background(), blockingLocator{})

	var locErr *geo.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, geo.FailureTimeout, locErr.Reason)
}

func TestLocate_UnknownFailure(t *testing.T) {
	v := NewVerifier(time.Second)

	_, err := v.Locate(context.Background(), brokenLocator{})

	var locErr *geo.LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, geo.FailurePositionUnavailable, locErr.Reason)
}
