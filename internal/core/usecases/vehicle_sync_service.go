package usecases

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
)

const (
	uniqueIDMin      = 10000000
	uniqueIDMax      = 99999999
	uniqueIDAttempts = 10
	onlineWindow     = 5 * time.Minute
)

// ErrUniqueIDExhausted is returned when no free tracker id was found.
var ErrUniqueIDExhausted = errors.New("unable to generate a unique tracker id")

// VehicleSyncService mirrors tracking-service devices onto fleet vehicles.
type VehicleSyncService struct {
	vehicles ports.VehicleRepository
	tracking ports.TrackingService

	now     func() time.Time
	randInt func(max int64) (int64, error)
}

// NewVehicleSyncService creates a new VehicleSyncService.
func NewVehicleSyncService(vehicles ports.VehicleRepository, tracking ports.TrackingService) *VehicleSyncService {
	return &VehicleSyncService{
		vehicles: vehicles,
		tracking: tracking,
		now:      time.Now,
		randInt:  cryptoInt,
	}
}

func cryptoInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// GenerateUniqueID returns a random 8-digit id not used by any vehicle.
func (s *VehicleSyncService) GenerateUniqueID(ctx context.Context) (string, error) {
	existing, err := s.vehicles.ListUniqueIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("list unique ids: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}

	for i := 0; i < uniqueIDAttempts; i++ {
		n, err := s.randInt(uniqueIDMax - uniqueIDMin + 1)
		if err != nil {
			return "", fmt.Errorf("random id: %w", err)
		}
		candidate := strconv.FormatInt(uniqueIDMin+n, 10)
		if _, dup := taken[candidate]; !dup {
			return candidate, nil
		}
	}
	return "", ErrUniqueIDExhausted
}

// LoadVehicle returns a vehicle by id.
func (s *VehicleSyncService) LoadVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load vehicle %d: %w", id, err)
	}
	return v, nil
}

// EnsureDevice finds the device registered under the vehicle's unique id
// and registers it when absent. A vehicle without a unique id gets one
// generated and stored first. The vehicle's DeviceID is set on return.
func (s *VehicleSyncService) EnsureDevice(ctx context.Context, v *domain.Vehicle) (*domain.Device, error) {
	if v.UniqueID == "" {
		id, err := s.GenerateUniqueID(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.vehicles.SetUniqueID(ctx, v.ID, id); err != nil {
			return nil, fmt.Errorf("store unique id: %w", err)
		}
		v.UniqueID = id
	}

	devices, err := s.tracking.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for i := range devices {
		if devices[i].UniqueID == v.UniqueID {
			v.DeviceID = strconv.FormatInt(devices[i].ID, 10)
			return &devices[i], nil
		}
	}

	created, err := s.tracking.CreateDevice(ctx, v.Name, v.UniqueID)
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	slog.InfoContext(ctx, "tracker device created", "vehicle_id", v.ID, "device_id", created.ID, "unique_id", v.UniqueID)
	v.DeviceID = strconv.FormatInt(created.ID, 10)
	return created, nil
}

// CollectTracking reads the device details and its latest position into v.
// An odometer reading is returned when the position reports one.
func (s *VehicleSyncService) CollectTracking(ctx context.Context, v *domain.Vehicle, deviceID int64) (*domain.OdometerReading, error) {
	device, err := s.tracking.Device(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", deviceID, err)
	}

	now := s.now()
	v.DeviceID = strconv.FormatInt(device.ID, 10)
	v.DeviceName = device.Name
	v.Status = DeviceStatus(device, now)
	v.PositionID = ""
	v.Latitude, v.Longitude, v.Altitude, v.Speed, v.Accuracy = 0, 0, 0, 0, 0
	v.DistanceKm, v.TotalDistanceKm = 0, 0

	if device.PositionID == 0 {
		return nil, nil
	}
	v.PositionID = strconv.FormatInt(device.PositionID, 10)

	positions, err := s.tracking.DevicePositions(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("positions of device %d: %w", device.ID, err)
	}
	if len(positions) == 0 {
		return nil, nil
	}

	pos := positions[0]
	v.Latitude = pos.Latitude
	v.Longitude = pos.Longitude
	v.Altitude = pos.Altitude
	v.Speed = pos.Speed
	v.Accuracy = pos.Accuracy
	v.DistanceKm = metresToKm(attrFloat(pos.Attributes, "distance"))
	v.TotalDistanceKm = metresToKm(attrFloat(pos.Attributes, "totalDistance"))

	odometer := attrFloat(pos.Attributes, "odometer")
	if odometer == 0 {
		return nil, nil
	}
	return &domain.OdometerReading{VehicleID: v.ID, ValueKm: metresToKm(odometer), Date: now}, nil
}

// Persist stores the mirrored tracking fields and the odometer reading, if any.
func (s *VehicleSyncService) Persist(ctx context.Context, v *domain.Vehicle, odo *domain.OdometerReading) error {
	if err := s.vehicles.UpdateTracking(ctx, v); err != nil {
		return fmt.Errorf("update vehicle %d: %w", v.ID, err)
	}
	if odo != nil {
		if err := s.vehicles.AddOdometer(ctx, odo); err != nil {
			return fmt.Errorf("add odometer for vehicle %d: %w", v.ID, err)
		}
	}
	return nil
}

// SyncDevice runs the full device sync for one vehicle.
func (s *VehicleSyncService) SyncDevice(ctx context.Context, vehicleID int64) (v *domain.Vehicle, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanDeviceSync)
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.DeviceSyncs.WithLabelValues(result).Inc()
		span.End()
	}()

	v, err = s.LoadVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	device, err := s.EnsureDevice(ctx, v)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64(telemetry.AttrDeviceID, device.ID))

	odo, err := s.CollectTracking(ctx, v, device.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(ctx, v, odo); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateTrackingInfo copies every latest position onto the vehicle bound to
// its device and returns how many vehicles were updated.
func (s *VehicleSyncService) UpdateTrackingInfo(ctx context.Context) (int, error) {
	positions, err := s.tracking.LatestPositions(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest positions: %w", err)
	}
	updated := 0
	for i := range positions {
		ok, err := s.ApplyPosition(ctx, &positions[i])
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}

// ApplyPosition updates the vehicle bound to pos.DeviceID. It reports false
// when no vehicle is bound to that device.
func (s *VehicleSyncService) ApplyPosition(ctx context.Context, pos *domain.Position) (bool, error) {
	deviceID := strconv.FormatInt(pos.DeviceID, 10)
	ok, err := s.vehicles.UpdatePosition(ctx, deviceID, pos.Latitude, pos.Longitude, pos.Speed)
	if err != nil {
		return false, fmt.Errorf("update position of device %s: %w", deviceID, err)
	}
	return ok, nil
}

// DeviceStatus is "online" when the device reported within the last five
// minutes, "last seen N mins ago" otherwise, and "offline" without a report.
func DeviceStatus(d *domain.Device, now time.Time) string {
	if d.LastUpdate == nil || d.LastUpdate.IsZero() {
		return "offline"
	}
	delta := now.Sub(*d.LastUpdate)
	if delta < onlineWindow {
		return "online"
	}
	return fmt.Sprintf("last seen %d mins ago", int(delta/time.Minute))
}

func metresToKm(m float64) float64 {
	return math.Round(m/1000*100) / 100
}

func attrFloat(attrs map[string]any, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
