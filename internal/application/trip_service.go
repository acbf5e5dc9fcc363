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
	"github.com/fastaid/service-dispatch/internal/geocode"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/routing"
)

// CreateTripRequest holds the data needed to book an ambulance.
type CreateTripRequest struct {
	PatientName        string   `json:"patient_name" binding:"required"`
	Contact            string   `json:"contact" binding:"required"`
	AmbulanceType      string   `json:"ambulance_type" binding:"required"`
	PickupAddress      string   `json:"pickup_address"`
	PickupLat          *float64 `json:"pickup_lat"`
	PickupLng          *float64 `json:"pickup_lng"`
	DestinationAddress string   `json:"destination_address"`
	DestinationLat     float64  `json:"destination_lat" binding:"required"`
	DestinationLng     float64  `json:"destination_lng" binding:"required"`
}

// TripDTO is the response representation of a trip.
type TripDTO struct {
	ID                 uuid.UUID          `json:"id"`
	RequestNumber      string             `json:"request_number"`
	PatientName        string             `json:"patient_name"`
	Contact            string             `json:"contact"`
	AmbulanceType      string             `json:"ambulance_type"`
	PickupAddress      string             `json:"pickup_address,omitempty"`
	DestinationAddress string             `json:"destination_address,omitempty"`
	Origin             *geo.Coordinate    `json:"origin,omitempty"`
	Destination        *geo.Coordinate    `json:"destination,omitempty"`
	DriverPosition     *geo.Coordinate    `json:"driver_position,omitempty"`
	Phase              string             `json:"phase"`
	DriverID           *uuid.UUID         `json:"driver_id,omitempty"`
	Route              *routing.RouteInfo `json:"route,omitempty"`
	RequestedAt        time.Time          `json:"requested_at"`
	AssignedAt         *time.Time         `json:"assigned_at,omitempty"`
	ReceivedAt         *time.Time         `json:"received_at,omitempty"`
	ReachedAt          *time.Time         `json:"reached_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelNote         string             `json:"cancel_note,omitempty"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// LocationRecordDTO is one historical position sample.
type LocationRecordDTO struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Phase      string    `json:"phase"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TripService is the application service orchestrating trip use cases.
type TripService struct {
	trips    tripDomain.TripRepository
	drivers  driverDomain.DriverRepository
	geocoder geocode.Geocoder
	notifier Notifier
	logger   *zap.Logger
}

// NewTripService creates a new TripService.
func NewTripService(
	trips tripDomain.TripRepository,
	drivers driverDomain.DriverRepository,
	geocoder geocode.Geocoder,
	notifier Notifier,
	logger *zap.Logger,
) *TripService {
	return &TripService{
		trips:    trips,
		drivers:  drivers,
		geocoder: geocoder,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateTrip books a new ambulance trip. The pickup point comes from the
// request's pin when present, otherwise the pickup address is geocoded.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*TripDTO, error) {
	origin, err := s.resolvePickup(ctx, req)
	if err != nil {
		return nil, err
	}

	destination := geo.Coordinate{Latitude: req.DestinationLat, Longitude: req.DestinationLng}

	t, err := tripDomain.NewTrip(
		req.PatientName,
		req.Contact,
		tripDomain.AmbulanceType(req.AmbulanceType),
		req.PickupAddress,
		req.DestinationAddress,
		origin,
		destination,
	)
	if err != nil {
		return nil, err
	}

	if err := s.trips.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save trip: %w", err)
	}

	s.notifier.EmitTripRequested(ctx, t)

	result := toTripDTO(t)
	return &result, nil
}

// GetTrip retrieves a single trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID uuid.UUID) (*TripDTO, error) {
	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	result := toTripDTO(t)
	return &result, nil
}

// TrackTrip retrieves a trip by its request number for the public tracking
// page.
func (s *TripService) TrackTrip(ctx context.Context, requestNumber string) (*TripDTO, error) {
	t, err := s.trips.FindByNumber(ctx, requestNumber)
	if err != nil {
		return nil, err
	}
	result := toTripDTO(t)
	return &result, nil
}

// GetLocationHistory returns the most recent recorded positions for a trip,
// newest first.
func (s *TripService) GetLocationHistory(ctx context.Context, tripID uuid.UUID, limit int) ([]LocationRecordDTO, error) {
	if _, err := s.trips.FindByID(ctx, tripID); err != nil {
		return nil, err
	}

	records, err := s.trips.LocationHistory(ctx, tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load location history: %w", err)
	}

	dtos := make([]LocationRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = LocationRecordDTO{
			Latitude:   r.Coordinate.Latitude,
			Longitude:  r.Coordinate.Longitude,
			Phase:      string(r.Phase),
			RecordedAt: r.RecordedAt,
		}
	}
	return dtos, nil
}

// AdvancePhase moves a trip forward on an explicit driver command. Commands
// at or behind the current phase are acknowledged without effect.
func (s *TripService) AdvancePhase(ctx context.Context, tripID uuid.UUID, target string) (*TripDTO, error) {
	phase, err := tripDomain.ParseTripPhase(target)
	if err != nil {
		return nil, err
	}

	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	changed, err := t.AdvanceTo(phase)
	if err != nil {
		return nil, err
	}

	if changed {
		t.IncrementVersion()
		if err := s.trips.Update(ctx, t); err != nil {
			return nil, err
		}
		s.notifier.EmitPhaseChanged(ctx, t.ID(), t.Phase())
		if t.Phase() == tripDomain.PhasePatientReached {
			s.releaseDriver(ctx, t)
		}
	}

	result := toTripDTO(t)
	return &result, nil
}

// CancelTrip cancels a trip that is not yet in a terminal phase.
func (s *TripService) CancelTrip(ctx context.Context, tripID uuid.UUID, reason string) (*TripDTO, error) {
	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := t.Cancel(reason); err != nil {
		return nil, err
	}

	t.IncrementVersion()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.notifier.EmitTripCancelled(ctx, t, reason)
	s.releaseDriver(ctx, t)

	result := toTripDTO(t)
	return &result, nil
}

// OverridePhase sets a trip's phase directly, bypassing transition and
// proximity rules. Dispatcher correction path; the written phase is
// authoritative for all later updates.
func (s *TripService) OverridePhase(ctx context.Context, tripID uuid.UUID, target string) (*TripDTO, error) {
	phase, err := tripDomain.ParseTripPhase(target)
	if err != nil {
		return nil, err
	}

	t, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := t.OverridePhase(phase); err != nil {
		return nil, err
	}

	t.IncrementVersion()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("trip phase overridden",
		zap.String("trip_id", t.ID().String()),
		zap.String("phase", string(phase)),
	)
	s.notifier.EmitPhaseChanged(ctx, t.ID(), t.Phase())

	result := toTripDTO(t)
	return &result, nil
}

// --- Admin methods ---

// TripStatsDTO holds trip statistics for the admin dashboard.
type TripStatsDTO struct {
	TotalTrips int64            `json:"total_trips"`
	ByPhase    map[string]int64 `json:"by_phase"`
}

// ListAllTrips returns a paginated list of all trips (admin).
func (s *TripService) ListAllTrips(ctx context.Context, page, limit int) ([]TripDTO, int64, error) {
	trips, total, err := s.trips.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	dtos := make([]TripDTO, len(trips))
	for i, t := range trips {
		dtos[i] = toTripDTO(t)
	}
	return dtos, total, nil
}

// GetTripStats returns aggregate trip statistics (admin).
func (s *TripService) GetTripStats(ctx context.Context) (*TripStatsDTO, error) {
	counts, err := s.trips.CountByPhase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &TripStatsDTO{
		TotalTrips: total,
		ByPhase:    counts,
	}, nil
}

// --- Helpers ---

func (s *TripService) resolvePickup(ctx context.Context, req CreateTripRequest) (geo.Coordinate, error) {
	if req.PickupLat != nil && req.PickupLng != nil {
		return geo.Coordinate{Latitude: *req.PickupLat, Longitude: *req.PickupLng}, nil
	}
	if req.PickupAddress == "" {
		return geo.Coordinate{}, domain.NewValidationError("pickup pin or pickup address is required")
	}
	coord, err := s.geocoder.Geocode(ctx, req.PickupAddress)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return coord, nil
}

// releaseDriver frees the assigned driver after the trip leaves active duty.
// Best effort: a driver row that cannot be updated does not fail the trip
// transition.
func (s *TripService) releaseDriver(ctx context.Context, t *tripDomain.Trip) {
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

func toTripDTO(t *tripDomain.Trip) TripDTO {
	return TripDTO{
		ID:                 t.ID(),
		RequestNumber:      t.RequestNumber(),
		PatientName:        t.PatientName(),
		Contact:            t.Contact(),
		AmbulanceType:      string(t.AmbulanceType()),
		PickupAddress:      t.PickupAddress(),
		DestinationAddress: t.DestinationAddress(),
		Origin:             t.Origin(),
		Destination:        t.Destination(),
		DriverPosition:     t.DriverPosition(),
		Phase:              string(t.Phase()),
		DriverID:           t.AssignedDriverID(),
		Route:              t.LastRoute(),
		RequestedAt:        t.RequestedAt(),
		AssignedAt:         t.AssignedAt(),
		ReceivedAt:         t.ReceivedAt(),
		ReachedAt:          t.ReachedAt(),
		CancelledAt:        t.CancelledAt(),
		CancelNote:         t.CancelNote(),
		Version:            t.Version(),
		CreatedAt:          t.CreatedAt(),
		UpdatedAt:          t.UpdatedAt(),
	}
}
