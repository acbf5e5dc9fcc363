package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

// tripAt builds a requested trip whose pickup is offset north of the given
// base point by roughly offsetKm.
func tripAt(t *testing.T, base geo.Coordinate, offsetKm float64) *Trip {
	t.Helper()
	origin := geo.Coordinate{
		Latitude:  base.Latitude + offsetKm/111.0,
		Longitude: base.Longitude,
	}
	tr, err := NewTrip("Patient", "+60123456789", AmbulanceBasic, "", "", origin, testDestination)
	require.NoError(t, err)
	return tr
}

func TestRankByDistance(t *testing.T) {
	driverPos := geo.Coordinate{Latitude: 3.1390, Longitude: 101.6869}

	far := tripAt(t, driverPos, 5)
	near := tripAt(t, driverPos, 1)
	mid := tripAt(t, driverPos, 3)

	ranked := RankByDistance(driverPos, []*Trip{far, near, mid})
	require.Len(t, ranked, 3)

	assert.Equal(t, near.ID(), ranked[0].Trip.ID())
	assert.Equal(t, mid.ID(), ranked[1].Trip.ID())
	assert.Equal(t, far.ID(), ranked[2].Trip.ID())

	assert.InDelta(t, 1.0, ranked[0].DistanceKm, 0.05)
	assert.InDelta(t, 3.0, ranked[1].DistanceKm, 0.1)
	assert.InDelta(t, 5.0, ranked[2].DistanceKm, 0.1)
}

func TestRankByDistance_MissingOriginSortsLast(t *testing.T) {
	driverPos := geo.Coordinate{Latitude: 3.1390, Longitude: 101.6869}

	legacy := ReconstructTrip(
		newTestTrip(t).ID(), "AMB-LEGACY", "Old Patient", "+60120000000",
		AmbulanceBasic, "somewhere", "", nil, nil, nil,
		PhaseRequested, nil, nil,
		newTestTrip(t).RequestedAt(), nil, nil, nil, nil, "",
		1, newTestTrip(t).CreatedAt(), newTestTrip(t).UpdatedAt(),
	)
	far := tripAt(t, driverPos, 5)

	ranked := RankByDistance(driverPos, []*Trip{legacy, far})
	require.Len(t, ranked, 2)

	assert.Equal(t, far.ID(), ranked[0].Trip.ID())
	assert.Equal(t, legacy.ID(), ranked[1].Trip.ID())
	assert.Equal(t, UnknownDistanceKm, ranked[1].DistanceKm)
}

func TestRankByDistance_StableForEqualDistances(t *testing.T) {
	driverPos := geo.Coordinate{Latitude: 3.1390, Longitude: 101.6869}

	// Two legacy trips with no pickup pin share the sentinel distance and
	// must keep their input order.
	first := ReconstructTrip(
		newTestTrip(t).ID(), "AMB-FIRST0", "A", "+60120000001",
		AmbulanceBasic, "", "", nil, nil, nil,
		PhaseRequested, nil, nil,
		newTestTrip(t).RequestedAt(), nil, nil, nil, nil, "",
		1, newTestTrip(t).CreatedAt(), newTestTrip(t).UpdatedAt(),
	)
	second := ReconstructTrip(
		newTestTrip(t).ID(), "AMB-SECOND", "B", "+60120000002",
		AmbulanceBasic, "", "", nil, nil, nil,
		PhaseRequested, nil, nil,
		newTestTrip(t).RequestedAt(), nil, nil, nil, nil, "",
		1, newTestTrip(t).CreatedAt(), newTestTrip(t).UpdatedAt(),
	)

	ranked := RankByDistance(driverPos, []*Trip{first, second})
	require.Len(t, ranked, 2)
	assert.Equal(t, "AMB-FIRST0", ranked[0].Trip.RequestNumber())
	assert.Equal(t, "AMB-SECOND", ranked[1].Trip.RequestNumber())
}

func TestRankByDistance_Empty(t *testing.T) {
	ranked := RankByDistance(geo.Coordinate{}, nil)
	assert.Empty(t, ranked)
}
