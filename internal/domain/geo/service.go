package geo

import "context"

// Locator produces one location fix per call.
type Locator interface {
	Locate(ctx context.Context) (Point, error)
}

// ReportedFix is a Locator backed by what the terminal's browser already reported:
// either coordinates or the reason it could not get them.
type ReportedFix struct {
	Point   *Point
	Failure LocationFailure
}

// Locate implements Locator.
func (r ReportedFix) Locate(ctx context.Context) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, &LocationError{Reason: FailureTimeout}
	}
	if r.Failure != "" {
		return Point{}, &LocationError{Reason: r.Failure}
	}
	if r.Point == nil {
		return Point{}, &LocationError{Reason: FailurePositionUnavailable}
	}
	return *r.Point, nil
}

// Verifier wraps location retrieval and the radius decision.
type Verifier interface {
	Locate(ctx context.Context, locator Locator) (Point, error)
	DistanceMeters(a, b Point) float64
	VerifyWithinRadius(point Point, workplace Workplace) Verdict
}
