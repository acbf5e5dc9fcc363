package trip

import (
	"sort"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

// UnknownDistanceKm is the sentinel assigned to trips without a pickup
// coordinate so they always sort behind trips that have one.
const UnknownDistanceKm = 999.0

// DispatchCandidate pairs an open trip with its distance from a driver. It is
// an ephemeral projection built per request, never persisted.
type DispatchCandidate struct {
	Trip       *Trip
	DistanceKm float64
}

// RankByDistance orders open trips nearest-first for a driver at the given
// position. The sort is stable, so equal distances (including the sentinel)
// keep their input order — callers pass trips most-recent-first. No trip is
// dropped.
func RankByDistance(driverPos geo.Coordinate, trips []*Trip) []DispatchCandidate {
	candidates := make([]DispatchCandidate, len(trips))
	for i, t := range trips {
		distance := UnknownDistanceKm
		if t.Origin() != nil {
			distance = geo.DistanceKm(driverPos, *t.Origin())
		}
		candidates[i] = DispatchCandidate{Trip: t, DistanceKm: distance}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
	return candidates
}
