package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/domain/trip"
	"github.com/fastaid/service-dispatch/internal/platform/kafka"
)

const eventSource = "service-dispatch"

// KafkaNotifier publishes trip events to the bus as cloud events. Live
// tracking clients subscribe downstream; publish failures are logged and
// never fail the calling flow.
type KafkaNotifier struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewKafkaNotifier creates a new KafkaNotifier.
func NewKafkaNotifier(producer *kafka.Producer, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, logger: logger}
}

var _ application.Notifier = (*KafkaNotifier)(nil)

// EmitTripRequested publishes a trip.requested event.
func (n *KafkaNotifier) EmitTripRequested(ctx context.Context, t *trip.Trip) {
	evt := application.TripRequestedEvent{
		TripID:        t.ID(),
		RequestNumber: t.RequestNumber(),
		PatientName:   t.PatientName(),
		AmbulanceType: string(t.AmbulanceType()),
		OccurredAt:    time.Now().UTC(),
	}
	if o := t.Origin(); o != nil {
		evt.OriginLat, evt.OriginLng = o.Latitude, o.Longitude
	}
	if d := t.Destination(); d != nil {
		evt.DestinationLat, evt.DestinationLng = d.Latitude, d.Longitude
	}
	n.publish(ctx, application.TripRequested, evt)
}

// EmitTripAssigned publishes a trip.assigned event.
func (n *KafkaNotifier) EmitTripAssigned(ctx context.Context, t *trip.Trip, driverID uuid.UUID, etaMinutes float64) {
	evt := application.TripAssignedEvent{
		TripID:        t.ID(),
		RequestNumber: t.RequestNumber(),
		DriverID:      driverID,
		EtaMinutes:    etaMinutes,
		OccurredAt:    time.Now().UTC(),
	}
	n.publish(ctx, application.TripAssigned, evt)
}

// EmitTripCancelled publishes a trip.cancelled event.
func (n *KafkaNotifier) EmitTripCancelled(ctx context.Context, t *trip.Trip, reason string) {
	evt := application.TripCancelledEvent{
		TripID:     t.ID(),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	n.publish(ctx, application.TripCancelled, evt)
}

// EmitLocationUpdate publishes a trip.location_updated event.
func (n *KafkaNotifier) EmitLocationUpdate(ctx context.Context, tripID uuid.UUID, pos geo.Coordinate, distanceKm, etaMinutes, trafficDelayMinutes float64) {
	evt := application.TripLocationUpdatedEvent{
		TripID:              tripID,
		Latitude:            pos.Latitude,
		Longitude:           pos.Longitude,
		DistanceKm:          distanceKm,
		EtaMinutes:          etaMinutes,
		TrafficDelayMinutes: trafficDelayMinutes,
		OccurredAt:          time.Now().UTC(),
	}
	n.publish(ctx, application.TripLocationUpdated, evt)
}

// EmitPhaseChanged publishes a trip.phase_changed event.
func (n *KafkaNotifier) EmitPhaseChanged(ctx context.Context, tripID uuid.UUID, newPhase trip.TripPhase) {
	evt := application.TripPhaseChangedEvent{
		TripID:     tripID,
		NewPhase:   string(newPhase),
		OccurredAt: time.Now().UTC(),
	}
	n.publish(ctx, application.TripPhaseChanged, evt)
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		n.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := n.producer.PublishEvent(ctx, application.TopicTripEvents, cloudEvent); err != nil {
		n.logger.Error("failed to publish event",
			zap.String("topic", application.TopicTripEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
