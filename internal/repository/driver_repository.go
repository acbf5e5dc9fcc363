package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	driverDomain "github.com/fastaid/service-dispatch/internal/domain/driver"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

// DriverModel is the GORM model for the drivers table.
type DriverModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"not null;size:200"`
	Phone        string     `gorm:"uniqueIndex;not null;size:30"`
	Latitude     *float64   `gorm:""`
	Longitude    *float64   `gorm:""`
	Availability string     `gorm:"not null;size:20;index"`
	LastLoginAt  *time.Time `gorm:""`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (DriverModel) TableName() string {
	return "drivers"
}

// GormDriverRepository is the GORM-based implementation of DriverRepository.
type GormDriverRepository struct {
	db *gorm.DB
}

// NewGormDriverRepository creates a new GormDriverRepository.
func NewGormDriverRepository(db *gorm.DB) *GormDriverRepository {
	return &GormDriverRepository{db: db}
}

// FindByID retrieves a driver by their unique identifier.
func (r *GormDriverRepository) FindByID(ctx context.Context, id uuid.UUID) (*driverDomain.Driver, error) {
	var model DriverModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Driver", id.String())
		}
		return nil, fmt.Errorf("failed to find driver by ID: %w", err)
	}
	return toDomainDriver(&model), nil
}

// FindByPhone retrieves a driver by phone number, the login identity.
func (r *GormDriverRepository) FindByPhone(ctx context.Context, phone string) (*driverDomain.Driver, error) {
	var model DriverModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Driver", phone)
		}
		return nil, fmt.Errorf("failed to find driver by phone: %w", err)
	}
	return toDomainDriver(&model), nil
}

// Save persists a new driver.
func (r *GormDriverRepository) Save(ctx context.Context, d *driverDomain.Driver) error {
	model := toDriverModel(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save driver: %w", err)
	}
	return nil
}

// Update persists changes to an existing driver.
func (r *GormDriverRepository) Update(ctx context.Context, d *driverDomain.Driver) error {
	model := toDriverModel(d)
	result := r.db.WithContext(ctx).
		Model(&DriverModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"latitude":      model.Latitude,
			"longitude":     model.Longitude,
			"availability":  model.Availability,
			"last_login_at": model.LastLoginAt,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update driver: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Driver", d.ID().String())
	}
	return nil
}

// --- Conversion Helpers ---

func toDriverModel(d *driverDomain.Driver) *DriverModel {
	model := &DriverModel{
		ID:           d.ID(),
		Name:         d.Name(),
		Phone:        d.Phone(),
		Availability: string(d.Availability()),
		LastLoginAt:  d.LastLoginAt(),
		CreatedAt:    d.CreatedAt(),
		UpdatedAt:    d.UpdatedAt(),
	}
	if p := d.Position(); p != nil {
		model.Latitude, model.Longitude = &p.Latitude, &p.Longitude
	}
	return model
}

func toDomainDriver(m *DriverModel) *driverDomain.Driver {
	return driverDomain.ReconstructDriver(
		m.ID,
		m.Name,
		m.Phone,
		coordFrom(m.Latitude, m.Longitude),
		driverDomain.Availability(m.Availability),
		m.LastLoginAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
