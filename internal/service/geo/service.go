package geo

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/utils"
)

type VerifierImpl struct {
	locateTimeout time.Duration
}

// Locate implements geo.Verifier. A single fix is requested; the caller decides whether to retry.
func (v *VerifierImpl) Locate(ctx context.Context, locator geo.Locator) (geo.Point, error) {
	if locator == nil {
		return geo.Point{}, &geo.LocationError{Reason: geo.FailureUnsupported}
	}

	if v.locateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.locateTimeout)
		defer cancel()
	}

	point, err := locator.Locate(ctx)
	if err != nil {
		var locErr *geo.LocationError
		if errors.As(err, &locErr) {
			return geo.Point{}, locErr
		}
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return geo.Point{}, &geo.LocationError{Reason: geo.FailureTimeout}
		}
		return geo.Point{}, &geo.LocationError{Reason: geo.FailurePositionUnavailable}
	}

	return point, nil
}

// DistanceMeters implements geo.Verifier.
func (v *VerifierImpl) DistanceMeters(a, b geo.Point) float64 {
	return utils.CalculateHaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// VerifyWithinRadius implements geo.Verifier. The radius boundary counts as inside.
func (v *VerifierImpl) VerifyWithinRadius(point geo.Point, workplace geo.Workplace) geo.Verdict {
	distance := v.DistanceMeters(point, geo.Point{Latitude: workplace.Latitude, Longitude: workplace.Longitude})

	return geo.Verdict{
		WithinRadius:   distance <= workplace.RadiusMeters,
		DistanceMeters: int(math.Round(distance)),
	}
}

func NewVerifier(locateTimeout time.Duration) geo.Verifier {
	return &VerifierImpl{locateTimeout: locateTimeout}
}
