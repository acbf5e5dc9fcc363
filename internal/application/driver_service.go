package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	driverDomain "github.com/fastaid/service-dispatch/internal/domain/driver"
	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

// DriverLoginRequest identifies a driver by phone and pins their current
// location.
type DriverLoginRequest struct {
	Name      string  `json:"name" binding:"required"`
	Phone     string  `json:"phone" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// DriverDTO is the response representation of a driver.
type DriverDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Position     *geo.Coordinate `json:"position,omitempty"`
	Availability string          `json:"availability"`
	LastLoginAt  *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DriverService manages the driver roster and shift lifecycle.
type DriverService struct {
	drivers driverDomain.DriverRepository
	logger  *zap.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(drivers driverDomain.DriverRepository, logger *zap.Logger) *DriverService {
	return &DriverService{drivers: drivers, logger: logger}
}

// Login signs a driver on shift. The phone number is the identity: an
// unknown phone registers a new driver, a known one re-pins the existing
// record and marks it available.
func (s *DriverService) Login(ctx context.Context, req DriverLoginRequest) (*DriverDTO, error) {
	pos := geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !pos.Valid() {
		return nil, domain.NewValidationError("login coordinate is out of range")
	}

	d, err := s.drivers.FindByPhone(ctx, req.Phone)
	switch {
	case err == nil:
		if err := d.Login(pos); err != nil {
			return nil, err
		}
		if err := s.drivers.Update(ctx, d); err != nil {
			return nil, err
		}
	case domain.IsNotFound(err):
		d, err = driverDomain.NewDriver(req.Name, req.Phone, pos)
		if err != nil {
			return nil, err
		}
		if err := s.drivers.Save(ctx, d); err != nil {
			return nil, err
		}
		s.logger.Info("registered new driver", zap.String("driver_id", d.ID().String()))
	default:
		return nil, err
	}

	result := toDriverDTO(d)
	return &result, nil
}

// GoOffline takes a driver off shift.
func (s *DriverService) GoOffline(ctx context.Context, driverID uuid.UUID) (*DriverDTO, error) {
	d, err := s.drivers.FindByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	d.MarkOffline()
	if err := s.drivers.Update(ctx, d); err != nil {
		return nil, err
	}

	result := toDriverDTO(d)
	return &result, nil
}

// GetDriver retrieves a single driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID uuid.UUID) (*DriverDTO, error) {
	d, err := s.drivers.FindByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	result := toDriverDTO(d)
	return &result, nil
}

func toDriverDTO(d *driverDomain.Driver) DriverDTO {
	return DriverDTO{
		ID:           d.ID(),
		Name:         d.Name(),
		Phone:        d.Phone(),
		Position:     d.Position(),
		Availability: string(d.Availability()),
		LastLoginAt:  d.LastLoginAt(),
		CreatedAt:    d.CreatedAt(),
		UpdatedAt:    d.UpdatedAt(),
	}
}
