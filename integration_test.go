//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastaid/service-dispatch/internal/application"
	dispatchEvents "github.com/fastaid/service-dispatch/internal/events"
	"github.com/fastaid/service-dispatch/internal/repository"
)

// TestDriverPosition_ArrivalAdvancesPhase verifies that a position report on
// driver.positions within the arrival radius of the pickup point transitions
// the trip from "started" to "patient_received" and publishes the phase
// change on trip.events.
func TestDriverPosition_ArrivalAdvancesPhase(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupDispatchStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	// Seed a trip en route to the patient near KL city centre.
	tripID := uuid.New()
	driverID := uuid.New()
	originLat, originLng := 3.1390, 101.6869
	seedTripInStartedState(t, infra.DB, tripID, driverID, originLat, originLng)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	// Publish a position roughly 50 m from the pickup point.
	evt := dispatchEvents.DriverPositionEvent{
		TripID:     tripID,
		Latitude:   originLat + 0.0004,
		Longitude:  originLng,
		ReportedAt: time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, dispatchEvents.TopicDriverPositions,
		"vehicle-unit", dispatchEvents.DriverPositionReported, evt)

	// Assert: trip transitions to "patient_received".
	model := waitForTripPhase(t, infra.DB, tripID, "patient_received", 15*time.Second)
	require.NotNil(t, model.ReceivedAt, "received_at should be set")
	require.NotNil(t, model.DriverLat)
	assert.InDelta(t, originLat+0.0004, *model.DriverLat, 1e-9)
	assert.NotEmpty(t, model.LastRoute, "route should be stored")

	// Assert: both the location update and the phase change are on the bus.
	located := consumeOneEvent(t, infra.KafkaBrokers, application.TopicTripEvents,
		application.TripLocationUpdated, 15*time.Second)
	var locEvt application.TripLocationUpdatedEvent
	require.NoError(t, located.ParseData(&locEvt))
	assert.Equal(t, tripID, locEvt.TripID)

	changed := consumeOneEvent(t, infra.KafkaBrokers, application.TopicTripEvents,
		application.TripPhaseChanged, 15*time.Second)
	var phaseEvt application.TripPhaseChangedEvent
	require.NoError(t, changed.ParseData(&phaseEvt))
	assert.Equal(t, tripID, phaseEvt.TripID)
	assert.Equal(t, "patient_received", phaseEvt.NewPhase)

	// Assert: the position landed on the history trail.
	var count int64
	require.NoError(t, infra.DB.Model(&repository.TripLocationModel{}).
		Where("trip_id = ?", tripID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "one history row expected")
}

// TestDriverPosition_FarAwayKeepsPhase verifies that a report outside the
// arrival radius refreshes the route but leaves the phase untouched.
func TestDriverPosition_FarAwayKeepsPhase(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupDispatchStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	tripID := uuid.New()
	driverID := uuid.New()
	originLat, originLng := 3.1390, 101.6869
	seedTripInStartedState(t, infra.DB, tripID, driverID, originLat, originLng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second)

	// Roughly 2 km out.
	evt := dispatchEvents.DriverPositionEvent{
		TripID:     tripID,
		Latitude:   originLat + 0.018,
		Longitude:  originLng,
		ReportedAt: time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, dispatchEvents.TopicDriverPositions,
		"vehicle-unit", dispatchEvents.DriverPositionReported, evt)

	// The location update confirms the report was processed.
	located := consumeOneEvent(t, infra.KafkaBrokers, application.TopicTripEvents,
		application.TripLocationUpdated, 15*time.Second)
	var locEvt application.TripLocationUpdatedEvent
	require.NoError(t, located.ParseData(&locEvt))
	assert.Equal(t, tripID, locEvt.TripID)
	assert.Greater(t, locEvt.DistanceKm, 0.1)

	var model repository.TripModel
	require.NoError(t, infra.DB.Where("id = ?", tripID).First(&model).Error)
	assert.Equal(t, "started", model.Phase)
	assert.Nil(t, model.ReceivedAt)
}
