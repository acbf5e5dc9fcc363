package driver

import (
	"context"

	"github.com/google/uuid"
)

// DriverRepository defines the persistence contract for driver aggregates.
type DriverRepository interface {
	// FindByID retrieves a driver by their unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Driver, error)

	// FindByPhone retrieves a driver by phone number, the login identity.
	FindByPhone(ctx context.Context, phone string) (*Driver, error)

	// Save persists a new driver.
	Save(ctx context.Context, d *Driver) error

	// Update persists changes to an existing driver.
	Update(ctx context.Context, d *Driver) error
}
