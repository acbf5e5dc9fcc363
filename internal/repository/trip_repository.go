package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	tripDomain "github.com/fastaid/service-dispatch/internal/domain/trip"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
	"github.com/fastaid/service-dispatch/internal/routing"
)

// TripModel is the GORM model for the trips table.
type TripModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RequestNumber      string          `gorm:"uniqueIndex;not null;size:20"`
	PatientName        string          `gorm:"not null;size:200"`
	Contact            string          `gorm:"not null;size:30"`
	AmbulanceType      string          `gorm:"not null;size:20"`
	PickupAddress      string          `gorm:"size:500"`
	DestinationAddress string          `gorm:"size:500"`
	OriginLat          *float64        `gorm:""`
	OriginLng          *float64        `gorm:""`
	DestinationLat     *float64        `gorm:""`
	DestinationLng     *float64        `gorm:""`
	DriverLat          *float64        `gorm:""`
	DriverLng          *float64        `gorm:""`
	Phase              string          `gorm:"not null;size:30;index"`
	DriverID           *uuid.UUID      `gorm:"type:uuid;index"`
	LastRoute          json.RawMessage `gorm:"type:jsonb"`
	RequestedAt        time.Time       `gorm:"not null"`
	AssignedAt         *time.Time      `gorm:""`
	ReceivedAt         *time.Time      `gorm:""`
	ReachedAt          *time.Time      `gorm:""`
	CancelledAt        *time.Time      `gorm:""`
	CancelNote         string          `gorm:"size:500"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TripModel) TableName() string {
	return "trips"
}

// TripLocationModel is the GORM model for the trip_locations history table.
type TripLocationModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	TripID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Phase      string    `gorm:"not null;size:30"`
	RecordedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (TripLocationModel) TableName() string {
	return "trip_locations"
}

// GormTripRepository is the GORM-based implementation of TripRepository.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a new GormTripRepository.
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// FindByID retrieves a trip by its unique identifier.
func (r *GormTripRepository) FindByID(ctx context.Context, id uuid.UUID) (*tripDomain.Trip, error) {
	var model TripModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Trip", id.String())
		}
		return nil, fmt.Errorf("failed to find trip by ID: %w", err)
	}
	return toDomainTrip(&model)
}

// FindByNumber retrieves a trip by its request number.
func (r *GormTripRepository) FindByNumber(ctx context.Context, number string) (*tripDomain.Trip, error) {
	var model TripModel
	if err := r.db.WithContext(ctx).Where("request_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Trip", number)
		}
		return nil, fmt.Errorf("failed to find trip by number: %w", err)
	}
	return toDomainTrip(&model)
}

// ListOpen retrieves all trips in the given phases, most recent first.
func (r *GormTripRepository) ListOpen(ctx context.Context, phases []tripDomain.TripPhase) ([]*tripDomain.Trip, error) {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}

	var models []TripModel
	if err := r.db.WithContext(ctx).
		Where("phase IN ?", names).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list open trips: %w", err)
	}

	trips := make([]*tripDomain.Trip, len(models))
	for i, m := range models {
		t, err := toDomainTrip(&m)
		if err != nil {
			return nil, err
		}
		trips[i] = t
	}
	return trips, nil
}

// ListAll retrieves all trips with pagination (admin).
func (r *GormTripRepository) ListAll(ctx context.Context, page, limit int) ([]*tripDomain.Trip, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&TripModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	var models []TripModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	trips := make([]*tripDomain.Trip, len(models))
	for i, m := range models {
		t, err := toDomainTrip(&m)
		if err != nil {
			return nil, 0, err
		}
		trips[i] = t
	}

	return trips, total, nil
}

// CountByPhase returns trip counts grouped by phase (admin).
func (r *GormTripRepository) CountByPhase(ctx context.Context) (map[string]int64, error) {
	type phaseCount struct {
		Phase string
		Count int64
	}
	var results []phaseCount
	if err := r.db.WithContext(ctx).Model(&TripModel{}).
		Select("phase, count(*) as count").
		Group("phase").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by phase: %w", err)
	}

	counts := make(map[string]int64)
	for _, pc := range results {
		counts[pc.Phase] = pc.Count
	}
	return counts, nil
}

// Save persists a new trip.
func (r *GormTripRepository) Save(ctx context.Context, t *tripDomain.Trip) error {
	model, err := toTripModel(t)
	if err != nil {
		return fmt.Errorf("failed to convert trip to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

// Update persists changes to an existing trip with optimistic locking.
func (r *GormTripRepository) Update(ctx context.Context, t *tripDomain.Trip) error {
	model, err := toTripModel(t)
	if err != nil {
		return fmt.Errorf("failed to convert trip to model: %w", err)
	}

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := t.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&TripModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"phase":        model.Phase,
			"driver_id":    model.DriverID,
			"origin_lat":   model.OriginLat,
			"origin_lng":   model.OriginLng,
			"driver_lat":   model.DriverLat,
			"driver_lng":   model.DriverLng,
			"last_route":   model.LastRoute,
			"assigned_at":  model.AssignedAt,
			"received_at":  model.ReceivedAt,
			"reached_at":   model.ReachedAt,
			"cancelled_at": model.CancelledAt,
			"cancel_note":  model.CancelNote,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update trip: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("trip was modified by another transaction")
	}

	return nil
}

// AppendLocationHistory records one position sample on the trip's trail.
func (r *GormTripRepository) AppendLocationHistory(ctx context.Context, record tripDomain.LocationRecord) error {
	model := TripLocationModel{
		TripID:     record.TripID,
		Latitude:   record.Coordinate.Latitude,
		Longitude:  record.Coordinate.Longitude,
		Phase:      string(record.Phase),
		RecordedAt: record.RecordedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to append location history: %w", err)
	}
	return nil
}

// LocationHistory retrieves the most recent position samples, newest first.
func (r *GormTripRepository) LocationHistory(ctx context.Context, tripID uuid.UUID, limit int) ([]tripDomain.LocationRecord, error) {
	var models []TripLocationModel
	if err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load location history: %w", err)
	}

	records := make([]tripDomain.LocationRecord, len(models))
	for i, m := range models {
		phase, err := tripDomain.NormalizePhase(m.Phase)
		if err != nil {
			return nil, err
		}
		records[i] = tripDomain.LocationRecord{
			TripID:     m.TripID,
			Coordinate: geo.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude},
			Phase:      phase,
			RecordedAt: m.RecordedAt,
		}
	}
	return records, nil
}

// --- Conversion Helpers ---

func toTripModel(t *tripDomain.Trip) (*TripModel, error) {
	var lastRouteJSON json.RawMessage
	if t.LastRoute() != nil {
		data, err := json.Marshal(t.LastRoute())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal route: %w", err)
		}
		lastRouteJSON = data
	}

	model := &TripModel{
		ID:                 t.ID(),
		RequestNumber:      t.RequestNumber(),
		PatientName:        t.PatientName(),
		Contact:            t.Contact(),
		AmbulanceType:      string(t.AmbulanceType()),
		PickupAddress:      t.PickupAddress(),
		DestinationAddress: t.DestinationAddress(),
		Phase:              string(t.Phase()),
		DriverID:           t.AssignedDriverID(),
		LastRoute:          lastRouteJSON,
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

	if o := t.Origin(); o != nil {
		model.OriginLat, model.OriginLng = &o.Latitude, &o.Longitude
	}
	if d := t.Destination(); d != nil {
		model.DestinationLat, model.DestinationLng = &d.Latitude, &d.Longitude
	}
	if p := t.DriverPosition(); p != nil {
		model.DriverLat, model.DriverLng = &p.Latitude, &p.Longitude
	}

	return model, nil
}

func toDomainTrip(m *TripModel) (*tripDomain.Trip, error) {
	// Historical rows carry free-text statuses; they are normalized here so
	// nothing above the store ever sees a non-canonical phase.
	phase, err := tripDomain.NormalizePhase(m.Phase)
	if err != nil {
		return nil, err
	}

	var lastRoute *routing.RouteInfo
	if len(m.LastRoute) > 0 {
		var ri routing.RouteInfo
		if err := json.Unmarshal(m.LastRoute, &ri); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route: %w", err)
		}
		lastRoute = &ri
	}

	return tripDomain.ReconstructTrip(
		m.ID,
		m.RequestNumber,
		m.PatientName,
		m.Contact,
		tripDomain.AmbulanceType(m.AmbulanceType),
		m.PickupAddress,
		m.DestinationAddress,
		coordFrom(m.OriginLat, m.OriginLng),
		coordFrom(m.DestinationLat, m.DestinationLng),
		coordFrom(m.DriverLat, m.DriverLng),
		phase,
		m.DriverID,
		lastRoute,
		m.RequestedAt,
		m.AssignedAt,
		m.ReceivedAt,
		m.ReachedAt,
		m.CancelledAt,
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func coordFrom(lat, lng *float64) *geo.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Coordinate{Latitude: *lat, Longitude: *lng}
}
