package routing

import (
	"math"

	"github.com/twpayne/go-polyline"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

// RouteSegment is the resolved route for one directed leg. Segments are
// produced fresh on every computation and never mutated afterwards.
type RouteSegment struct {
	Origin              geo.Coordinate   `json:"origin"`
	Destination         geo.Coordinate   `json:"destination"`
	DistanceKm          float64          `json:"distance_km"`
	DurationMinutes     float64          `json:"duration_minutes"`
	TrafficDelayMinutes float64          `json:"traffic_delay_minutes"`
	TrafficAware        bool             `json:"traffic_aware"`
	Path                []geo.Coordinate `json:"path,omitempty"`
	Success             bool             `json:"success"`
}

// RouteInfo is the full two-leg trip route: vehicle to patient, then patient
// to destination. Totals are always the exact sums of the two segments.
type RouteInfo struct {
	LegToPatient             RouteSegment     `json:"leg_to_patient"`
	LegToDestination         RouteSegment     `json:"leg_to_destination"`
	TotalDistanceKm          float64          `json:"total_distance_km"`
	TotalDurationMinutes     float64          `json:"total_duration_minutes"`
	TotalTrafficDelayMinutes float64          `json:"total_traffic_delay_minutes"`
	TrafficAware             bool             `json:"traffic_aware"`
	CombinedPath             []geo.Coordinate `json:"combined_path,omitempty"`
	Polyline                 string           `json:"polyline,omitempty"`
}

// NewRouteInfo composes a RouteInfo from its two legs. The totals are derived
// here and nowhere else.
func NewRouteInfo(legToPatient, legToDestination RouteSegment) RouteInfo {
	combined := make([]geo.Coordinate, 0, len(legToPatient.Path)+len(legToDestination.Path))
	combined = append(combined, legToPatient.Path...)
	combined = append(combined, legToDestination.Path...)

	return RouteInfo{
		LegToPatient:             legToPatient,
		LegToDestination:         legToDestination,
		TotalDistanceKm:          legToPatient.DistanceKm + legToDestination.DistanceKm,
		TotalDurationMinutes:     legToPatient.DurationMinutes + legToDestination.DurationMinutes,
		TotalTrafficDelayMinutes: legToPatient.TrafficDelayMinutes + legToDestination.TrafficDelayMinutes,
		TrafficAware:             legToPatient.TrafficAware && legToDestination.TrafficAware,
		CombinedPath:             combined,
		Polyline:                 encodePolyline(combined),
	}
}

// encodePolyline encodes a path using the Google polyline format. An empty
// path encodes to "".
func encodePolyline(path []geo.Coordinate) string {
	if len(path) == 0 {
		return ""
	}
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// round2 rounds to two decimals. Provider outputs are rounded once at
// extraction; totals stay exact sums of the rounded segments.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
