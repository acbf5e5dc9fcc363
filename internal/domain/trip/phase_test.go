package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TripPhase
		to      TripPhase
		allowed bool
	}{
		{"requested to assigned", PhaseRequested, PhaseAssigned, true},
		{"requested to cancelled", PhaseRequested, PhaseCancelled, true},
		{"requested to started", PhaseRequested, PhaseStarted, false},
		{"assigned to started", PhaseAssigned, PhaseStarted, true},
		{"assigned to patient_received", PhaseAssigned, PhasePatientReceived, true},
		{"started to patient_received", PhaseStarted, PhasePatientReceived, true},
		{"started to patient_reached", PhaseStarted, PhasePatientReached, false},
		{"patient_received to patient_reached", PhasePatientReceived, PhasePatientReached, true},
		{"patient_reached is terminal", PhasePatientReached, PhaseCancelled, false},
		{"cancelled is terminal", PhaseCancelled, PhaseRequested, false},
		{"no backward move", PhasePatientReceived, PhaseStarted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	assert.True(t, PhasePatientReached.IsTerminal())
	assert.True(t, PhaseCancelled.IsTerminal())
	assert.False(t, PhaseRequested.IsTerminal())
	assert.False(t, PhaseStarted.IsTerminal())

	// Unknown phases are treated as terminal dead ends.
	assert.True(t, TripPhase("bogus").IsTerminal())
}

func TestPhaseCanBeCancelled(t *testing.T) {
	assert.True(t, PhaseRequested.CanBeCancelled())
	assert.True(t, PhaseAssigned.CanBeCancelled())
	assert.True(t, PhaseStarted.CanBeCancelled())
	assert.True(t, PhasePatientReceived.CanBeCancelled())
	assert.False(t, PhasePatientReached.CanBeCancelled())
	assert.False(t, PhaseCancelled.CanBeCancelled())
}

func TestPhaseAtOrBehind(t *testing.T) {
	assert.True(t, PhasePatientReceived.AtOrBehind(PhasePatientReceived))
	assert.True(t, PhasePatientReceived.AtOrBehind(PhaseStarted))
	assert.True(t, PhasePatientReached.AtOrBehind(PhaseRequested))
	assert.False(t, PhaseStarted.AtOrBehind(PhasePatientReceived))

	// Cancellation is outside the forward progression.
	assert.False(t, PhaseStarted.AtOrBehind(PhaseCancelled))
	assert.False(t, PhaseCancelled.AtOrBehind(PhaseStarted))
}

func TestParseTripPhase(t *testing.T) {
	phase, err := ParseTripPhase("patient_received")
	require.NoError(t, err)
	assert.Equal(t, PhasePatientReceived, phase)

	_, err = ParseTripPhase("delivered")
	assert.Error(t, err)
}

func TestNormalizePhase(t *testing.T) {
	tests := []struct {
		raw  string
		want TripPhase
	}{
		{"requested", PhaseRequested},
		{"Pending", PhaseRequested},
		{"  queue ", PhaseRequested},
		{"", PhaseRequested},
		{"accepted", PhaseAssigned},
		{"On The Way", PhaseStarted},
		{"en-route", PhaseStarted},
		{"IN PROGRESS", PhaseStarted},
		{"patient_received", PhasePatientReceived},
		{"Picked Up", PhasePatientReceived},
		{"patient reached", PhasePatientReached},
		{"Completed", PhasePatientReached},
		{"done", PhasePatientReached},
		{"canceled", PhaseCancelled},
		{"Cancelled", PhaseCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizePhase(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizePhase("teleported")
	assert.Error(t, err)
}
