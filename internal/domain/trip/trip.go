package trip

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/routing"
)

const requestNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AmbulanceType is the requested vehicle category.
type AmbulanceType string

const (
	AmbulanceBasic    AmbulanceType = "basic"
	AmbulanceAdvanced AmbulanceType = "advanced"
	AmbulanceICU      AmbulanceType = "icu"
)

// IsValid returns true if the ambulance type is recognized.
func (a AmbulanceType) IsValid() bool {
	switch a {
	case AmbulanceBasic, AmbulanceAdvanced, AmbulanceICU:
		return true
	}
	return false
}

// Trip is the aggregate root for an ambulance dispatch request. It is created
// on booking and only ever transitioned into a terminal phase, never deleted.
type Trip struct {
	id                 uuid.UUID
	requestNumber      string
	patientName        string
	contact            string
	ambulanceType      AmbulanceType
	pickupAddress      string
	destinationAddress string
	origin             *geo.Coordinate
	destination        *geo.Coordinate
	driverPosition     *geo.Coordinate
	phase              TripPhase
	assignedDriverID   *uuid.UUID
	lastRoute          *routing.RouteInfo

	requestedAt time.Time
	assignedAt  *time.Time
	receivedAt  *time.Time
	reachedAt   *time.Time
	cancelledAt *time.Time
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateRequestNumber creates a request number in the format "AMB-XXXXXX".
func generateRequestNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(requestNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate request number: %w", err)
		}
		result[i] = requestNumberChars[n.Int64()]
	}
	return "AMB-" + string(result), nil
}

// NewTrip creates a new Trip aggregate in phase=requested.
func NewTrip(
	patientName string,
	contact string,
	ambulanceType AmbulanceType,
	pickupAddress string,
	destinationAddress string,
	origin geo.Coordinate,
	destination geo.Coordinate,
) (*Trip, error) {
	if patientName == "" {
		return nil, domain.NewValidationError("patient name is required")
	}
	if contact == "" {
		return nil, domain.NewValidationError("contact is required")
	}
	if !ambulanceType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid ambulance type: %s", ambulanceType))
	}
	if !origin.Valid() {
		return nil, domain.NewValidationError("pickup coordinate is missing or out of range")
	}
	if !destination.Valid() {
		return nil, domain.NewValidationError("destination coordinate is missing or out of range")
	}

	requestNumber, err := generateRequestNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o, d := origin, destination
	return &Trip{
		id:                 uuid.New(),
		requestNumber:      requestNumber,
		patientName:        patientName,
		contact:            contact,
		ambulanceType:      ambulanceType,
		pickupAddress:      pickupAddress,
		destinationAddress: destinationAddress,
		origin:             &o,
		destination:        &d,
		phase:              PhaseRequested,
		requestedAt:        now,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructTrip rebuilds a Trip from persistence data (no validation).
// Historical rows may lack coordinates; the engine tolerates that.
func ReconstructTrip(
	id uuid.UUID,
	requestNumber string,
	patientName string,
	contact string,
	ambulanceType AmbulanceType,
	pickupAddress string,
	destinationAddress string,
	origin *geo.Coordinate,
	destination *geo.Coordinate,
	driverPosition *geo.Coordinate,
	phase TripPhase,
	assignedDriverID *uuid.UUID,
	lastRoute *routing.RouteInfo,
	requestedAt time.Time,
	assignedAt *time.Time,
	receivedAt *time.Time,
	reachedAt *time.Time,
	cancelledAt *time.Time,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Trip {
	return &Trip{
		id:                 id,
		requestNumber:      requestNumber,
		patientName:        patientName,
		contact:            contact,
		ambulanceType:      ambulanceType,
		pickupAddress:      pickupAddress,
		destinationAddress: destinationAddress,
		origin:             origin,
		destination:        destination,
		driverPosition:     driverPosition,
		phase:              phase,
		assignedDriverID:   assignedDriverID,
		lastRoute:          lastRoute,
		requestedAt:        requestedAt,
		assignedAt:         assignedAt,
		receivedAt:         receivedAt,
		reachedAt:          reachedAt,
		cancelledAt:        cancelledAt,
		cancelNote:         cancelNote,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the trip's unique identifier.
func (t *Trip) ID() uuid.UUID { return t.id }

// RequestNumber returns the human-readable request number.
func (t *Trip) RequestNumber() string { return t.requestNumber }

// PatientName returns the patient's name.
func (t *Trip) PatientName() string { return t.patientName }

// Contact returns the requester's contact number.
func (t *Trip) Contact() string { return t.contact }

// AmbulanceType returns the requested vehicle category.
func (t *Trip) AmbulanceType() AmbulanceType { return t.ambulanceType }

// PickupAddress returns the free-text pickup address.
func (t *Trip) PickupAddress() string { return t.pickupAddress }

// DestinationAddress returns the free-text destination address.
func (t *Trip) DestinationAddress() string { return t.destinationAddress }

// Origin returns the pickup coordinate, or nil on legacy rows.
func (t *Trip) Origin() *geo.Coordinate { return t.origin }

// Destination returns the destination coordinate, or nil if not yet known.
func (t *Trip) Destination() *geo.Coordinate { return t.destination }

// DriverPosition returns the last reported vehicle coordinate, or nil.
func (t *Trip) DriverPosition() *geo.Coordinate { return t.driverPosition }

// Phase returns the current trip phase.
func (t *Trip) Phase() TripPhase { return t.phase }

// AssignedDriverID returns the assigned driver's ID, or nil if unassigned.
func (t *Trip) AssignedDriverID() *uuid.UUID { return t.assignedDriverID }

// LastRoute returns the most recently computed route, or nil.
func (t *Trip) LastRoute() *routing.RouteInfo { return t.lastRoute }

// RequestedAt returns the time the trip was requested.
func (t *Trip) RequestedAt() time.Time { return t.requestedAt }

// AssignedAt returns the time a driver accepted the trip.
func (t *Trip) AssignedAt() *time.Time { return t.assignedAt }

// ReceivedAt returns the time the patient was picked up.
func (t *Trip) ReceivedAt() *time.Time { return t.receivedAt }

// ReachedAt returns the time the destination facility was reached.
func (t *Trip) ReachedAt() *time.Time { return t.reachedAt }

// CancelledAt returns the time the trip was cancelled.
func (t *Trip) CancelledAt() *time.Time { return t.cancelledAt }

// CancelNote returns the cancellation reason.
func (t *Trip) CancelNote() string { return t.cancelNote }

// Version returns the entity version for optimistic locking.
func (t *Trip) Version() int64 { return t.version }

// CreatedAt returns the creation timestamp.
func (t *Trip) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (t *Trip) UpdatedAt() time.Time { return t.updatedAt }

// --- Behavior ---

// Assign transitions the trip from requested to assigned with the given
// driver and their current position.
func (t *Trip) Assign(driverID uuid.UUID, driverPosition geo.Coordinate) error {
	if !t.phase.CanTransitionTo(PhaseAssigned) {
		return domain.NewInvalidStateError(string(t.phase), string(PhaseAssigned))
	}
	if driverID == uuid.Nil {
		return domain.NewValidationError("driver ID is required")
	}
	now := time.Now().UTC()
	pos := driverPosition
	t.assignedDriverID = &driverID
	t.driverPosition = &pos
	t.phase = PhaseAssigned
	t.assignedAt = &now
	t.updatedAt = now
	return nil
}

// Start marks the vehicle en route to the patient.
func (t *Trip) Start() error {
	if !t.phase.CanTransitionTo(PhaseStarted) {
		return domain.NewInvalidStateError(string(t.phase), string(PhaseStarted))
	}
	t.phase = PhaseStarted
	t.updatedAt = time.Now().UTC()
	return nil
}

// AdvanceTo moves the trip forward to target. Requests at or behind the
// current phase are no-ops, not errors; a forward transition the state
// machine does not allow is rejected. Returns whether the phase changed.
func (t *Trip) AdvanceTo(target TripPhase) (bool, error) {
	if !target.IsValid() || target == PhaseCancelled {
		return false, domain.NewInvalidStateError(string(t.phase), string(target))
	}
	if t.phase.AtOrBehind(target) {
		return false, nil
	}
	if !t.phase.CanTransitionTo(target) {
		return false, domain.NewInvalidStateError(string(t.phase), string(target))
	}

	now := time.Now().UTC()
	t.phase = target
	switch target {
	case PhaseAssigned:
		t.assignedAt = &now
	case PhasePatientReceived:
		t.receivedAt = &now
	case PhasePatientReached:
		t.reachedAt = &now
	}
	t.updatedAt = now
	return true, nil
}

// Cancel transitions the trip to cancelled if it is not in a terminal phase.
func (t *Trip) Cancel(reason string) error {
	if !t.phase.CanBeCancelled() {
		return domain.NewInvalidStateError(string(t.phase), string(PhaseCancelled))
	}
	now := time.Now().UTC()
	t.phase = PhaseCancelled
	t.cancelNote = reason
	t.cancelledAt = &now
	t.updatedAt = now
	return nil
}

// OverridePhase sets the phase directly, bypassing transition and proximity
// checks. This is the administrative correction path and is authoritative;
// terminal phases still cannot be set this way.
func (t *Trip) OverridePhase(target TripPhase) error {
	if !target.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid trip phase: %s", target))
	}
	if target.IsTerminal() {
		return domain.NewInvalidStateError(string(t.phase), string(target))
	}
	t.phase = target
	t.updatedAt = time.Now().UTC()
	return nil
}

// SetDriverPosition records the latest reported vehicle coordinate.
func (t *Trip) SetDriverPosition(pos geo.Coordinate) {
	p := pos
	t.driverPosition = &p
	t.updatedAt = time.Now().UTC()
}

// SetRoute replaces the most recent route computation.
func (t *Trip) SetRoute(info routing.RouteInfo) {
	t.lastRoute = &info
	t.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (t *Trip) IncrementVersion() {
	t.version++
	t.updatedAt = time.Now().UTC()
}
