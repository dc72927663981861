package geo

// Point is a single location fix. Accuracy is surfaced as reported by the device and never
// used to adjust a radius decision.
type Point struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Workplace is the reference location a clock-in must be near.
type Workplace struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Verdict is the outcome of a radius check.
type Verdict struct {
	WithinRadius   bool `json:"within_radius"`
	DistanceMeters int  `json:"distance_meters"`
}

// LocationFailure enumerates why a device could not produce a fix.
type LocationFailure string

const (
	FailureUnsupported         LocationFailure = "unsupported"
	FailurePermissionDenied    LocationFailure = "permission_denied"
	FailurePositionUnavailable LocationFailure = "position_unavailable"
	FailureTimeout             LocationFailure = "timeout"
)

func (f LocationFailure) Valid() bool {
	switch f {
	case FailureUnsupported, FailurePermissionDenied, FailurePositionUnavailable, FailureTimeout:
		return true
	}
	return false
}
