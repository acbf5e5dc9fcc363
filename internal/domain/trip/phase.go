package trip

import (
	"fmt"
	"strings"
)

// TripPhase represents the current stage of an ambulance trip.
type TripPhase string

const (
	PhaseRequested       TripPhase = "requested"
	PhaseAssigned        TripPhase = "assigned"
	PhaseStarted         TripPhase = "started"
	PhasePatientReceived TripPhase = "patient_received"
	PhasePatientReached  TripPhase = "patient_reached"
	PhaseCancelled       TripPhase = "cancelled"
)

// validTransitions defines the state machine for trip phase transitions.
var validTransitions = map[TripPhase][]TripPhase{
	PhaseRequested:       {PhaseAssigned, PhaseCancelled},
	PhaseAssigned:        {PhaseStarted, PhasePatientReceived, PhaseCancelled},
	PhaseStarted:         {PhasePatientReceived, PhaseCancelled},
	PhasePatientReceived: {PhasePatientReached, PhaseCancelled},
	PhasePatientReached:  {},
	PhaseCancelled:       {},
}

// phaseRank orders the forward progression of a trip. Cancelled has no rank;
// it is reachable only through Cancel.
var phaseRank = map[TripPhase]int{
	PhaseRequested:       0,
	PhaseAssigned:        1,
	PhaseStarted:         2,
	PhasePatientReceived: 3,
	PhasePatientReached:  4,
}

// IsValid returns true if the phase is a recognized trip phase.
func (p TripPhase) IsValid() bool {
	_, exists := validTransitions[p]
	return exists
}

// CanTransitionTo returns true if a transition from this phase to the target
// is allowed.
func (p TripPhase) CanTransitionTo(target TripPhase) bool {
	allowed, exists := validTransitions[p]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (p TripPhase) IsTerminal() bool {
	allowed, exists := validTransitions[p]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCancelled returns true if the trip can be cancelled from this phase.
func (p TripPhase) CanBeCancelled() bool {
	return p.CanTransitionTo(PhaseCancelled)
}

// AtOrBehind returns true if target is the same phase or an earlier one in
// the forward progression. Cancellation is never at-or-behind.
func (p TripPhase) AtOrBehind(target TripPhase) bool {
	cur, ok := phaseRank[p]
	if !ok {
		return false
	}
	tgt, ok := phaseRank[target]
	if !ok {
		return false
	}
	return tgt <= cur
}

// String returns the string representation of the phase.
func (p TripPhase) String() string {
	return string(p)
}

// OpenPhases lists the phases in which a trip still needs or occupies a
// driver, in the order used by dispatch queries.
func OpenPhases() []TripPhase {
	return []TripPhase{PhaseRequested, PhaseStarted, PhasePatientReceived}
}

// ParseTripPhase converts a string to a TripPhase, returning an error if
// invalid.
func ParseTripPhase(s string) (TripPhase, error) {
	phase := TripPhase(s)
	if !phase.IsValid() {
		return "", fmt.Errorf("invalid trip phase: %s", s)
	}
	return phase, nil
}

// NormalizePhase maps legacy free-text status values from historical records
// to the closed phase enum. Normalization happens once at the store boundary;
// the engine only ever sees canonical phases.
func NormalizePhase(raw string) (TripPhase, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("_", " ", "-", " ", ".", "").Replace(v)
	v = strings.Join(strings.Fields(v), " ")

	switch v {
	case "", "new", "pending", "queue", "waiting", "unknown", "requested":
		return PhaseRequested, nil
	case "assigned", "accepted":
		return PhaseAssigned, nil
	case "started", "in progress", "on the way", "en route":
		return PhaseStarted, nil
	case "patient received", "received", "picked up":
		return PhasePatientReceived, nil
	case "patient reached", "reached", "completed", "done":
		return PhasePatientReached, nil
	case "cancelled", "canceled":
		return PhaseCancelled, nil
	}
	return "", fmt.Errorf("unrecognized trip status: %q", raw)
}
