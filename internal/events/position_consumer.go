package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/platform/kafka"
)

// TopicDriverPositions carries raw telemetry from vehicle units.
const TopicDriverPositions = "driver.positions"

// DriverPositionReported is the inbound telemetry event type.
const DriverPositionReported = "driver.position_reported"

// DriverPositionEvent is one GPS sample from a vehicle on an active trip.
type DriverPositionEvent struct {
	TripID     uuid.UUID `json:"trip_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ReportedAt time.Time `json:"reported_at"`
}

// PositionEventConsumer feeds bus telemetry into the location service, as an
// alternative ingest path to the HTTP endpoint.
type PositionEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.LocationService
	logger   *zap.Logger
}

// NewPositionEventConsumer creates a new PositionEventConsumer.
func NewPositionEventConsumer(
	brokers []string,
	groupID string,
	service *application.LocationService,
	logger *zap.Logger,
) *PositionEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicDriverPositions, logger)
	return &PositionEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming position events. This blocks until the context is cancelled.
func (c *PositionEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PositionEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PositionEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from position topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if cloudEvent.Type != DriverPositionReported {
		c.logger.Debug("ignoring unhandled position event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var evt DriverPositionEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DriverPositionEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	pos := geo.Coordinate{Latitude: evt.Latitude, Longitude: evt.Longitude}
	_, err := c.service.OnDriverPosition(ctx, evt.TripID, pos)
	if err != nil {
		// Positions for unknown or rejected trips are dropped, not retried.
		switch domain.KindOf(err) {
		case domain.KindNotFound, domain.KindValidation:
			c.logger.Warn("dropping position report",
				zap.String("trip_id", evt.TripID.String()),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to process position report",
			zap.String("trip_id", evt.TripID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
