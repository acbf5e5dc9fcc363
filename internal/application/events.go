package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/domain/trip"
)

// Topics and event types carried on the bus.
const (
	TopicTripEvents = "trip.events"

	TripRequested       = "trip.requested"
	TripAssigned        = "trip.assigned"
	TripCancelled       = "trip.cancelled"
	TripLocationUpdated = "trip.location_updated"
	TripPhaseChanged    = "trip.phase_changed"
)

// TripRequestedEvent announces a new booking.
type TripRequestedEvent struct {
	TripID         uuid.UUID `json:"trip_id"`
	RequestNumber  string    `json:"request_number"`
	PatientName    string    `json:"patient_name"`
	AmbulanceType  string    `json:"ambulance_type"`
	OriginLat      float64   `json:"origin_lat"`
	OriginLng      float64   `json:"origin_lng"`
	DestinationLat float64   `json:"destination_lat"`
	DestinationLng float64   `json:"destination_lng"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// TripAssignedEvent announces that a driver accepted a trip.
type TripAssignedEvent struct {
	TripID        uuid.UUID `json:"trip_id"`
	RequestNumber string    `json:"request_number"`
	DriverID      uuid.UUID `json:"driver_id"`
	EtaMinutes    float64   `json:"eta_minutes"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TripCancelledEvent announces a cancellation.
type TripCancelledEvent struct {
	TripID     uuid.UUID `json:"trip_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TripLocationUpdatedEvent carries a live position with the distance and ETA
// for the leg the vehicle is currently driving.
type TripLocationUpdatedEvent struct {
	TripID              uuid.UUID `json:"trip_id"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	DistanceKm          float64   `json:"distance_km"`
	EtaMinutes          float64   `json:"eta_minutes"`
	TrafficDelayMinutes float64   `json:"traffic_delay_minutes"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// TripPhaseChangedEvent announces a phase transition.
type TripPhaseChangedEvent struct {
	TripID     uuid.UUID `json:"trip_id"`
	NewPhase   string    `json:"new_phase"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier pushes engine-computed events to live clients. Delivery is the
// notifier's concern: emissions are fire-and-forget and never fail the
// calling flow.
type Notifier interface {
	EmitTripRequested(ctx context.Context, t *trip.Trip)
	EmitTripAssigned(ctx context.Context, t *trip.Trip, driverID uuid.UUID, etaMinutes float64)
	EmitTripCancelled(ctx context.Context, t *trip.Trip, reason string)
	EmitLocationUpdate(ctx context.Context, tripID uuid.UUID, pos geo.Coordinate, distanceKm, etaMinutes, trafficDelayMinutes float64)
	EmitPhaseChanged(ctx context.Context, tripID uuid.UUID, newPhase trip.TripPhase)
}
