package driver

import (
	"time"

	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

// Availability is a driver's dispatch status.
type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
	Offline   Availability = "offline"
)

// IsValid returns true if the availability value is recognized.
func (a Availability) IsValid() bool {
	switch a {
	case Available, Busy, Offline:
		return true
	}
	return false
}

// Driver is the aggregate root for an ambulance driver.
type Driver struct {
	id           uuid.UUID
	name         string
	phone        string
	position     *geo.Coordinate
	availability Availability
	lastLoginAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewDriver registers a driver with their pinned login position.
func NewDriver(name, phone string, position geo.Coordinate) (*Driver, error) {
	if name == "" {
		return nil, domain.NewValidationError("driver name is required")
	}
	if phone == "" {
		return nil, domain.NewValidationError("driver phone is required")
	}
	if !position.Valid() {
		return nil, domain.NewValidationError("driver position is missing or out of range")
	}

	now := time.Now().UTC()
	pos := position
	return &Driver{
		id:           uuid.New(),
		name:         name,
		phone:        phone,
		position:     &pos,
		availability: Available,
		lastLoginAt:  &now,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructDriver rebuilds a Driver from persistence data (no validation).
func ReconstructDriver(
	id uuid.UUID,
	name string,
	phone string,
	position *geo.Coordinate,
	availability Availability,
	lastLoginAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *Driver {
	return &Driver{
		id:           id,
		name:         name,
		phone:        phone,
		position:     position,
		availability: availability,
		lastLoginAt:  lastLoginAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the driver's unique identifier.
func (d *Driver) ID() uuid.UUID { return d.id }

// Name returns the driver's name.
func (d *Driver) Name() string { return d.name }

// Phone returns the driver's phone number, the login identity.
func (d *Driver) Phone() string { return d.phone }

// Position returns the last known coordinate, or nil.
func (d *Driver) Position() *geo.Coordinate { return d.position }

// Availability returns the current dispatch status.
func (d *Driver) Availability() Availability { return d.availability }

// LastLoginAt returns the last login time, or nil.
func (d *Driver) LastLoginAt() *time.Time { return d.lastLoginAt }

// CreatedAt returns the creation timestamp.
func (d *Driver) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (d *Driver) UpdatedAt() time.Time { return d.updatedAt }

// Login records a fresh login with a pinned position and makes the driver
// available for dispatch.
func (d *Driver) Login(position geo.Coordinate) error {
	if !position.Valid() {
		return domain.NewValidationError("driver position is missing or out of range")
	}
	now := time.Now().UTC()
	pos := position
	d.position = &pos
	d.availability = Available
	d.lastLoginAt = &now
	d.updatedAt = now
	return nil
}

// SetPosition records the driver's latest coordinate.
func (d *Driver) SetPosition(position geo.Coordinate) {
	pos := position
	d.position = &pos
	d.updatedAt = time.Now().UTC()
}

// MarkBusy flips the driver to busy when they accept a trip.
func (d *Driver) MarkBusy() {
	d.availability = Busy
	d.updatedAt = time.Now().UTC()
}

// MarkAvailable frees the driver after a trip ends.
func (d *Driver) MarkAvailable() {
	d.availability = Available
	d.updatedAt = time.Now().UTC()
}

// MarkOffline removes the driver from dispatch.
func (d *Driver) MarkOffline() {
	d.availability = Offline
	d.updatedAt = time.Now().UTC()
}
