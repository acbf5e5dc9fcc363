package trip

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

// LocationRecord is one audit entry of a vehicle's reported position.
type LocationRecord struct {
	TripID     uuid.UUID
	Coordinate geo.Coordinate
	Phase      TripPhase
	RecordedAt time.Time
}

// TripRepository defines the persistence contract for trip aggregates.
type TripRepository interface {
	// FindByID retrieves a trip by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Trip, error)

	// FindByNumber retrieves a trip by its human-readable request number.
	FindByNumber(ctx context.Context, number string) (*Trip, error)

	// ListOpen retrieves trips in the given phases, most recent first.
	ListOpen(ctx context.Context, phases []TripPhase) ([]*Trip, error)

	// ListAll retrieves all trips with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Trip, int64, error)

	// CountByPhase returns trip counts grouped by phase (admin).
	CountByPhase(ctx context.Context) (map[string]int64, error)

	// Save persists a new trip.
	Save(ctx context.Context, t *Trip) error

	// Update persists changes to an existing trip with optimistic locking.
	Update(ctx context.Context, t *Trip) error

	// AppendLocationHistory appends one position record for audit/tracking.
	AppendLocationHistory(ctx context.Context, record LocationRecord) error

	// LocationHistory retrieves the most recent position records for a trip.
	LocationHistory(ctx context.Context, tripID uuid.UUID, limit int) ([]LocationRecord, error)
}
