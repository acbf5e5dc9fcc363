package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	driverDomain "github.com/fastaid/service-dispatch/internal/domain/driver"
	tripDomain "github.com/fastaid/service-dispatch/internal/domain/trip"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/routing"
)

// OpenTripDTO is one entry in a driver's nearest-first work queue.
type OpenTripDTO struct {
	Trip       TripDTO `json:"trip"`
	DistanceKm float64 `json:"distance_km"`
}

// DispatchService ranks open trips for drivers and handles acceptance.
type DispatchService struct {
	trips      tripDomain.TripRepository
	drivers    driverDomain.DriverRepository
	aggregator *routing.Aggregator
	notifier   Notifier
	logger     *zap.Logger
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	trips tripDomain.TripRepository,
	drivers driverDomain.DriverRepository,
	aggregator *routing.Aggregator,
	notifier Notifier,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		trips:      trips,
		drivers:    drivers,
		aggregator: aggregator,
		notifier:   notifier,
		logger:     logger,
	}
}

// OpenTripsFor returns all open trips ordered nearest first relative to the
// driver's last known position. Trips without a pickup pin sort last.
func (s *DispatchService) OpenTripsFor(ctx context.Context, driverID uuid.UUID) ([]OpenTripDTO, error) {
	d, err := s.drivers.FindByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if d.Position() == nil {
		return nil, domain.NewValidationError("driver has no known position; log in with a location first")
	}

	open, err := s.trips.ListOpen(ctx, tripDomain.OpenPhases())
	if err != nil {
		return nil, fmt.Errorf("failed to list open trips: %w", err)
	}

	candidates := tripDomain.RankByDistance(*d.Position(), open)

	dtos := make([]OpenTripDTO, len(candidates))
	for i, c := range candidates {
		dtos[i] = OpenTripDTO{
			Trip:       toTripDTO(c.Trip),
			DistanceKm: c.DistanceKm,
		}
	}
	return dtos, nil
}

// AcceptTrip assigns the driver to a requested trip and starts the run to the
// patient in one step. The first full route is computed on acceptance so the
// caller gets an ETA immediately.
func (s *DispatchService) AcceptTrip(ctx context.Context, tripID, driverID uuid.UUID) (*TripDTO, error) {
	d, err := s.drivers.FindByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if d.Position() == nil {
		return nil, domain.NewValidationError("driver has no known position; log in with a location first")
	}

	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := t.Assign(driverID, *d.Position()); err != nil {
		return nil, err
	}
	if err := t.Start(); err != nil {
		return nil, err
	}

	var etaMinutes float64
	if t.Origin() != nil && t.Destination() != nil {
		info := s.aggregator.ComputeTripRoute(ctx, *d.Position(), *t.Origin(), *t.Destination())
		t.SetRoute(info)
		etaMinutes = info.LegToPatient.DurationMinutes
	}

	t.IncrementVersion()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	d.MarkBusy()
	if err := s.drivers.Update(ctx, d); err != nil {
		s.logger.Warn("failed to mark driver busy",
			zap.String("driver_id", d.ID().String()),
			zap.Error(err),
		)
	}

	s.notifier.EmitTripAssigned(ctx, t, driverID, etaMinutes)

	result := toTripDTO(t)
	return &result, nil
}
