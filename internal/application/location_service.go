package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	driverDomain "github.com/fastaid/service-dispatch/internal/domain/driver"
	"github.com/fastaid/service-dispatch/internal/domain/geo"
	tripDomain "github.com/fastaid/service-dispatch/internal/domain/trip"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/routing"
)

// proximityThresholdKm is the arrival radius. A vehicle strictly inside
// 0.1 km of the current leg's endpoint is considered arrived; exactly on the
// boundary is not.
const proximityThresholdKm = 0.1

// withinArrivalRadius reports whether a vehicle that many kilometers from the
// leg endpoint counts as arrived. The boundary is exclusive.
func withinArrivalRadius(distanceKm float64) bool {
	return distanceKm < proximityThresholdKm
}

// Leg markers reported back with each position update.
const (
	LegToPatient  = "to_patient"
	LegToHospital = "to_hospital"
	LegPending    = "pending"
	LegCompleted  = "completed"
)

// LocationUpdateResult is the outcome of one position report.
type LocationUpdateResult struct {
	TripID              uuid.UUID          `json:"trip_id"`
	Leg                 string             `json:"leg"`
	Phase               string             `json:"phase"`
	PhaseChanged        bool               `json:"phase_changed"`
	DistanceKm          float64            `json:"distance_km"`
	EtaMinutes          float64            `json:"eta_minutes"`
	TrafficDelayMinutes float64            `json:"traffic_delay_minutes"`
	Route               *routing.RouteInfo `json:"route,omitempty"`
}

// LocationService processes driver position reports: it refreshes the trip's
// route and ETA, fires arrival transitions, and records the position trail.
// Updates for the same trip are serialized; different trips proceed
// concurrently.
type LocationService struct {
	trips      tripDomain.TripRepository
	drivers    driverDomain.DriverRepository
	aggregator *routing.Aggregator
	notifier   Notifier
	logger     *zap.Logger
	locks      *keyedLock
}

// NewLocationService creates a new LocationService.
func NewLocationService(
	trips tripDomain.TripRepository,
	drivers driverDomain.DriverRepository,
	aggregator *routing.Aggregator,
	notifier Notifier,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		trips:      trips,
		drivers:    drivers,
		aggregator: aggregator,
		notifier:   notifier,
		logger:     logger,
		locks:      newKeyedLock(),
	}
}

// OnDriverPosition ingests one position report for a trip.
func (s *LocationService) OnDriverPosition(ctx context.Context, tripID uuid.UUID, pos geo.Coordinate) (*LocationUpdateResult, error) {
	if !pos.Valid() {
		return nil, domain.NewValidationError("position coordinate is out of range")
	}

	release := s.locks.Lock(tripID)
	defer release()

	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	switch t.Phase() {
	case tripDomain.PhaseStarted, tripDomain.PhasePatientReceived:
		return s.processActive(ctx, t, pos)
	case tripDomain.PhasePatientReached, tripDomain.PhaseCancelled:
		// Reports after the trip closed carry no work.
		return &LocationUpdateResult{
			TripID: t.ID(),
			Leg:    LegCompleted,
			Phase:  string(t.Phase()),
		}, nil
	default:
		return s.recordIdle(ctx, t, pos)
	}
}

// processActive handles a report while the vehicle is driving a leg: route
// refresh, arrival detection, persistence, and event emission.
func (s *LocationService) processActive(ctx context.Context, t *tripDomain.Trip, pos geo.Coordinate) (*LocationUpdateResult, error) {
	if t.Origin() == nil || t.Destination() == nil {
		return nil, domain.NewValidationError("trip has no pickup or destination coordinate")
	}

	info := s.aggregator.ComputeTripRoute(ctx, pos, *t.Origin(), *t.Destination())
	t.SetDriverPosition(pos)
	t.SetRoute(info)

	result := &LocationUpdateResult{
		TripID: t.ID(),
		Route:  t.LastRoute(),
	}

	var changed bool
	if t.Phase() == tripDomain.PhaseStarted {
		leg := info.LegToPatient
		result.Leg = LegToPatient
		result.DistanceKm = leg.DistanceKm
		result.EtaMinutes = leg.DurationMinutes
		result.TrafficDelayMinutes = leg.TrafficDelayMinutes

		if withinArrivalRadius(geo.DistanceKm(pos, *t.Origin())) {
			changed, _ = t.AdvanceTo(tripDomain.PhasePatientReceived)
		}
	} else {
		leg := info.LegToDestination
		result.Leg = LegToHospital
		result.DistanceKm = leg.DistanceKm
		result.EtaMinutes = leg.DurationMinutes
		result.TrafficDelayMinutes = leg.TrafficDelayMinutes

		if withinArrivalRadius(geo.DistanceKm(pos, *t.Destination())) {
			changed, _ = t.AdvanceTo(tripDomain.PhasePatientReached)
		}
	}
	result.PhaseChanged = changed
	result.Phase = string(t.Phase())

	t.IncrementVersion()
	if err := s.trips.Update(ctx, t); err != nil {
		return s.handleUpdateConflict(ctx, t, err)
	}

	s.appendHistory(ctx, t, pos)

	s.notifier.EmitLocationUpdate(ctx, t.ID(), pos, result.DistanceKm, result.EtaMinutes, result.TrafficDelayMinutes)
	if changed {
		s.notifier.EmitPhaseChanged(ctx, t.ID(), t.Phase())
		if t.Phase() == tripDomain.PhasePatientReached {
			s.releaseDriver(ctx, t)
		}
	}

	return result, nil
}

// recordIdle stores the position for a trip that is accepted but not yet
// driving a leg. No route is computed and no transition can fire.
func (s *LocationService) recordIdle(ctx context.Context, t *tripDomain.Trip, pos geo.Coordinate) (*LocationUpdateResult, error) {
	t.SetDriverPosition(pos)
	t.IncrementVersion()
	if err := s.trips.Update(ctx, t); err != nil {
		return s.handleUpdateConflict(ctx, t, err)
	}

	s.appendHistory(ctx, t, pos)

	return &LocationUpdateResult{
		TripID: t.ID(),
		Leg:    LegPending,
		Phase:  string(t.Phase()),
	}, nil
}

// handleUpdateConflict resolves a lost optimistic-lock race. A cancellation
// that landed first wins: the in-flight result is discarded and the report
// answered as if it arrived after close. Any other conflict surfaces.
func (s *LocationService) handleUpdateConflict(ctx context.Context, t *tripDomain.Trip, updateErr error) (*LocationUpdateResult, error) {
	if domain.KindOf(updateErr) != domain.KindConflict {
		return nil, updateErr
	}

	current, err := s.trips.FindByID(ctx, t.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to reload trip after conflict: %w", err)
	}
	if current.Phase().IsTerminal() {
		s.logger.Info("discarding position update for closed trip",
			zap.String("trip_id", t.ID().String()),
			zap.String("phase", string(current.Phase())),
		)
		return &LocationUpdateResult{
			TripID: current.ID(),
			Leg:    LegCompleted,
			Phase:  string(current.Phase()),
		}, nil
	}
	return nil, updateErr
}

func (s *LocationService) appendHistory(ctx context.Context, t *tripDomain.Trip, pos geo.Coordinate) {
	record := tripDomain.LocationRecord{
		TripID:     t.ID(),
		Coordinate: pos,
		Phase:      t.Phase(),
		RecordedAt: time.Now().UTC(),
	}
	if err := s.trips.AppendLocationHistory(ctx, record); err != nil {
		s.logger.Warn("failed to append location history",
			zap.String("trip_id", t.ID().String()),
			zap.Error(err),
		)
	}
}

func (s *LocationService) releaseDriver(ctx context.Context, t *tripDomain.Trip) {
	if t.AssignedDriverID() == nil {
		return
	}
	d, err := s.drivers.FindByID(ctx, *t.AssignedDriverID())
	if err != nil {
		s.logger.Warn("failed to load driver for release",
			zap.String("driver_id", t.AssignedDriverID().String()),
			zap.Error(err),
		)
		return
	}
	d.MarkAvailable()
	if err := s.drivers.Update(ctx, d); err != nil {
		s.logger.Warn("failed to release driver",
			zap.String("driver_id", d.ID().String()),
			zap.Error(err),
		)
	}
}
