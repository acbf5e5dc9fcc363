package trip

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

var (
	testOrigin      = geo.Coordinate{Latitude: 3.1390, Longitude: 101.6869}
	testDestination = geo.Coordinate{Latitude: 3.1579, Longitude: 101.7123}
	testDriverPos   = geo.Coordinate{Latitude: 3.1200, Longitude: 101.6500}
)

func newTestTrip(t *testing.T) *Trip {
	t.Helper()
	tr, err := NewTrip("Aisyah binti Rahman", "+60123456789", AmbulanceBasic,
		"12 Jalan Ampang, KL", "Hospital Kuala Lumpur", testOrigin, testDestination)
	require.NoError(t, err)
	return tr
}

func TestNewTrip(t *testing.T) {
	tr := newTestTrip(t)

	assert.NotEqual(t, uuid.Nil, tr.ID())
	assert.True(t, strings.HasPrefix(tr.RequestNumber(), "AMB-"))
	assert.Len(t, tr.RequestNumber(), 10)
	assert.Equal(t, PhaseRequested, tr.Phase())
	assert.Nil(t, tr.AssignedDriverID())
	assert.Equal(t, int64(1), tr.Version())
	require.NotNil(t, tr.Origin())
	assert.Equal(t, testOrigin, *tr.Origin())
}

func TestNewTrip_Validation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*Trip, error)
	}{
		{"missing patient name", func() (*Trip, error) {
			return NewTrip("", "+60123456789", AmbulanceBasic, "", "", testOrigin, testDestination)
		}},
		{"missing contact", func() (*Trip, error) {
			return NewTrip("Pak Abu", "", AmbulanceBasic, "", "", testOrigin, testDestination)
		}},
		{"bad ambulance type", func() (*Trip, error) {
			return NewTrip("Pak Abu", "+60123456789", "helicopter", "", "", testOrigin, testDestination)
		}},
		{"origin out of range", func() (*Trip, error) {
			bad := geo.Coordinate{Latitude: 91, Longitude: 0}
			return NewTrip("Pak Abu", "+60123456789", AmbulanceBasic, "", "", bad, testDestination)
		}},
		{"destination out of range", func() (*Trip, error) {
			bad := geo.Coordinate{Latitude: 0, Longitude: 181}
			return NewTrip("Pak Abu", "+60123456789", AmbulanceBasic, "", "", testOrigin, bad)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestTripAssignAndStart(t *testing.T) {
	tr := newTestTrip(t)
	driverID := uuid.New()

	require.NoError(t, tr.Assign(driverID, testDriverPos))
	assert.Equal(t, PhaseAssigned, tr.Phase())
	require.NotNil(t, tr.AssignedDriverID())
	assert.Equal(t, driverID, *tr.AssignedDriverID())
	assert.NotNil(t, tr.AssignedAt())
	require.NotNil(t, tr.DriverPosition())
	assert.Equal(t, testDriverPos, *tr.DriverPosition())

	require.NoError(t, tr.Start())
	assert.Equal(t, PhaseStarted, tr.Phase())

	// A second assign is not allowed.
	err := tr.Assign(uuid.New(), testDriverPos)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestTripAdvanceTo(t *testing.T) {
	tr := newTestTrip(t)
	require.NoError(t, tr.Assign(uuid.New(), testDriverPos))
	require.NoError(t, tr.Start())

	changed, err := tr.AdvanceTo(PhasePatientReceived)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PhasePatientReceived, tr.Phase())
	assert.NotNil(t, tr.ReceivedAt())

	// Same target again is a no-op, not an error.
	changed, err = tr.AdvanceTo(PhasePatientReceived)
	require.NoError(t, err)
	assert.False(t, changed)

	// So is a target behind the current phase.
	changed, err = tr.AdvanceTo(PhaseStarted)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, PhasePatientReceived, tr.Phase())

	changed, err = tr.AdvanceTo(PhasePatientReached)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotNil(t, tr.ReachedAt())
}

func TestTripAdvanceTo_Rejections(t *testing.T) {
	tr := newTestTrip(t)

	// Skipping ahead past an allowed transition is rejected.
	_, err := tr.AdvanceTo(PhasePatientReached)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	// Cancellation must go through Cancel.
	_, err = tr.AdvanceTo(PhaseCancelled)
	require.Error(t, err)

	// Unknown phases are rejected outright.
	_, err = tr.AdvanceTo(TripPhase("warp"))
	require.Error(t, err)
}

func TestTripCancel(t *testing.T) {
	tr := newTestTrip(t)
	require.NoError(t, tr.Cancel("patient called it off"))
	assert.Equal(t, PhaseCancelled, tr.Phase())
	assert.Equal(t, "patient called it off", tr.CancelNote())
	assert.NotNil(t, tr.CancelledAt())

	// Terminal: cannot cancel twice.
	err := tr.Cancel("again")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestTripCancel_AfterReached(t *testing.T) {
	tr := newTestTrip(t)
	require.NoError(t, tr.Assign(uuid.New(), testDriverPos))
	require.NoError(t, tr.Start())
	_, err := tr.AdvanceTo(PhasePatientReceived)
	require.NoError(t, err)
	_, err = tr.AdvanceTo(PhasePatientReached)
	require.NoError(t, err)

	err = tr.Cancel("too late")
	require.Error(t, err)
}

func TestTripOverridePhase(t *testing.T) {
	tr := newTestTrip(t)

	// Overrides skip the transition rules entirely.
	require.NoError(t, tr.OverridePhase(PhasePatientReceived))
	assert.Equal(t, PhasePatientReceived, tr.Phase())

	// Backward too.
	require.NoError(t, tr.OverridePhase(PhaseStarted))
	assert.Equal(t, PhaseStarted, tr.Phase())

	// But never into a terminal phase.
	err := tr.OverridePhase(PhaseCancelled)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	err = tr.OverridePhase(TripPhase("warp"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestGenerateRequestNumber_Charset(t *testing.T) {
	for i := 0; i < 50; i++ {
		n, err := generateRequestNumber()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(n, "AMB-"))
		for _, ch := range n[4:] {
			assert.Contains(t, requestNumberChars, string(ch))
		}
	}
}
