package workflows

import (
	"context"
	"errors"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

// TrackingSnapshot is a vehicle with its freshly collected tracking fields
// and the odometer reading to log, if any.
type TrackingSnapshot struct {
	Vehicle  domain.Vehicle
	Odometer *domain.OdometerReading
}

// DeviceSyncActivities holds the activity implementations for the device
// sync workflows. Each activity is one step of VehicleSyncService.
type DeviceSyncActivities struct {
	Sync *usecases.VehicleSyncService
}

// LoadVehicle returns the vehicle to sync. An unknown vehicle is not retried.
func (a *DeviceSyncActivities) LoadVehicle(ctx context.Context, vehicleID int64) (domain.Vehicle, error) {
	v, err := a.Sync.LoadVehicle(ctx, vehicleID)
	if err != nil {
		return domain.Vehicle{}, permanent(err)
	}
	return *v, nil
}

// EnsureDevice registers the tracker device when missing and returns the
// vehicle with its unique id and device id set.
func (a *DeviceSyncActivities) EnsureDevice(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if _, err := a.Sync.EnsureDevice(ctx, &v); err != nil {
		return domain.Vehicle{}, permanent(err)
	}
	return v, nil
}

// CollectTracking reads the device and its latest position.
func (a *DeviceSyncActivities) CollectTracking(ctx context.Context, v domain.Vehicle, deviceID int64) (TrackingSnapshot, error) {
	odo, err := a.Sync.CollectTracking(ctx, &v, deviceID)
	if err != nil {
		return TrackingSnapshot{}, err
	}
	return TrackingSnapshot{Vehicle: v, Odometer: odo}, nil
}

// Persist stores the collected tracking fields.
func (a *DeviceSyncActivities) Persist(ctx context.Context, snap TrackingSnapshot) error {
	return a.Sync.Persist(ctx, &snap.Vehicle, snap.Odometer)
}

// UpdateTrackingInfo copies the latest positions onto every bound vehicle.
func (a *DeviceSyncActivities) UpdateTrackingInfo(ctx context.Context) (int, error) {
	n, err := a.Sync.UpdateTrackingInfo(ctx)
	if err != nil {
		return n, err
	}
	slog.InfoContext(ctx, "tracking info updated", "vehicles", n)
	return n, nil
}

// permanent marks errors that a retry cannot fix.
func permanent(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	case errors.Is(err, usecases.ErrUniqueIDExhausted):
		return temporal.NewNonRetryableApplicationError(err.Error(), "UniqueIDExhausted", err)
	default:
		return err
	}
}
