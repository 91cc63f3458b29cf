package ports

import (
	"context"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// PartnerRepository persists customer locations.
type PartnerRepository interface {
	ListWithLocation(ctx context.Context) ([]domain.Partner, error)
	GetByID(ctx context.Context, id int64) (*domain.Partner, error)
	UpdateLocation(ctx context.Context, id int64, lat, lon float64) error
}

// VehicleRepository persists fleet vehicles and their tracking fields.
type VehicleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*domain.Vehicle, error)
	ListUniqueIDs(ctx context.Context) ([]string, error)
	SetUniqueID(ctx context.Context, id int64, uniqueID string) error
	UpdateTracking(ctx context.Context, v *domain.Vehicle) error
	UpdatePosition(ctx context.Context, deviceID string, lat, lon, speed float64) (bool, error)
	AddOdometer(ctx context.Context, r *domain.OdometerReading) error
}
