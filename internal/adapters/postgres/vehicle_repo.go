package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

var _ ports.VehicleRepository = (*VehicleRepo)(nil)

// VehicleRepo implements ports.VehicleRepository with pgx.
type VehicleRepo struct {
	db *DB
}

// NewVehicleRepo creates a new VehicleRepo.
func NewVehicleRepo(db *DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

const vehicleColumns = `
	id, name, COALESCE(driver_name, ''),
	COALESCE(traccar_device_id, ''), COALESCE(traccar_unique_id, ''),
	COALESCE(traccar_name, ''), COALESCE(traccar_status, ''), COALESCE(traccar_position_id, ''),
	traccar_latitude, traccar_longitude, traccar_altitude, traccar_speed, traccar_accuracy,
	traccar_distance, traccar_total_distance, updated_at`

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID, &v.Name, &v.DriverName,
		&v.DeviceID, &v.UniqueID,
		&v.DeviceName, &v.Status, &v.PositionID,
		&v.Latitude, &v.Longitude, &v.Altitude, &v.Speed, &v.Accuracy,
		&v.DistanceKm, &v.TotalDistanceKm, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns a vehicle by id.
func (r *VehicleRepo) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return scanVehicle(r.db.Pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
}

// GetByDeviceID returns the vehicle bound to a tracker device.
func (r *VehicleRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Vehicle, error) {
	return scanVehicle(r.db.Pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE traccar_device_id = $1 LIMIT 1`, deviceID))
}

// ListUniqueIDs returns every tracker unique id in use.
func (r *VehicleRepo) ListUniqueIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT traccar_unique_id FROM vehicles
		WHERE traccar_unique_id IS NOT NULL AND traccar_unique_id <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetUniqueID stores the tracker unique id of a vehicle.
func (r *VehicleRepo) SetUniqueID(ctx context.Context, id int64, uniqueID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE vehicles SET traccar_unique_id = $2, updated_at = NOW() WHERE id = $1`, id, uniqueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateTracking writes every mirrored tracking field. The unique id is
// never overwritten here.
func (r *VehicleRepo) UpdateTracking(ctx context.Context, v *domain.Vehicle) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE vehicles SET
			traccar_device_id = $2, traccar_name = $3, traccar_status = $4, traccar_position_id = $5,
			traccar_latitude = $6, traccar_longitude = $7, traccar_altitude = $8,
			traccar_speed = $9, traccar_accuracy = $10,
			traccar_distance = $11, traccar_total_distance = $12,
			updated_at = NOW()
		WHERE id = $1
	`, v.ID, v.DeviceID, v.DeviceName, v.Status, v.PositionID,
		v.Latitude, v.Longitude, v.Altitude, v.Speed, v.Accuracy,
		v.DistanceKm, v.TotalDistanceKm)
	if err != nil {
		return fmt.Errorf("update vehicle %d: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdatePosition sets lat/lon/speed on the vehicle bound to deviceID and
// reports whether such a vehicle exists.
func (r *VehicleRepo) UpdatePosition(ctx context.Context, deviceID string, lat, lon, speed float64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE vehicles SET traccar_latitude = $2, traccar_longitude = $3, traccar_speed = $4, updated_at = NOW()
		WHERE id = (SELECT id FROM vehicles WHERE traccar_device_id = $1 ORDER BY id LIMIT 1)
	`, deviceID, lat, lon, speed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddOdometer logs an odometer reading.
func (r *VehicleRepo) AddOdometer(ctx context.Context, o *domain.OdometerReading) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO vehicle_odometers (vehicle_id, value_km, recorded_at)
		VALUES ($1, $2, $3)
	`, o.VehicleID, o.ValueKm, o.Date)
	return err
}
