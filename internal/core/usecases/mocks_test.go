package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

// --- Mock PartnerRepository ---

type mockPartnerRepo struct {
	listFn   func(ctx context.Context) ([]domain.Partner, error)
	getFn    func(ctx context.Context, id int64) (*domain.Partner, error)
	updateFn func(ctx context.Context, id int64, lat, lon float64) error

	mu        sync.Mutex
	listCalls int
}

func (m *mockPartnerRepo) ListWithLocation(ctx context.Context) ([]domain.Partner, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPartnerRepo) GetByID(ctx context.Context, id int64) (*domain.Partner, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPartnerRepo) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, lat, lon)
	}
	return nil
}

func (m *mockPartnerRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock TrackingService ---

type mockTracking struct {
	latestFn    func(ctx context.Context) ([]domain.Position, error)
	positionsFn func(ctx context.Context, deviceID int64) ([]domain.Position, error)
	reportFn    func(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error)
	devicesFn   func(ctx context.Context) ([]domain.Device, error)
	deviceFn    func(ctx context.Context, id int64) (*domain.Device, error)
	createFn    func(ctx context.Context, name, uniqueID string) (*domain.Device, error)
}

func (m *mockTracking) LatestPositions(ctx context.Context) ([]domain.Position, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return nil, nil
}

func (m *mockTracking) DevicePositions(ctx context.Context, deviceID int64) ([]domain.Position, error) {
	if m.positionsFn != nil {
		return m.positionsFn(ctx, deviceID)
	}
	return nil, nil
}

func (m *mockTracking) RouteReport(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, deviceID, from, to)
	}
	return nil, domain.ErrNoData
}

func (m *mockTracking) Devices(ctx context.Context) ([]domain.Device, error) {
	if m.devicesFn != nil {
		return m.devicesFn(ctx)
	}
	return nil, nil
}

func (m *mockTracking) Device(ctx context.Context, id int64) (*domain.Device, error) {
	if m.deviceFn != nil {
		return m.deviceFn(ctx, id)
	}
	return &domain.Device{ID: id}, nil
}

func (m *mockTracking) CreateDevice(ctx context.Context, name, uniqueID string) (*domain.Device, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, uniqueID)
	}
	return &domain.Device{ID: 1, Name: name, UniqueID: uniqueID}, nil
}

// --- Mock VehicleRepository ---

type mockVehicleRepo struct {
	getFn      func(ctx context.Context, id int64) (*domain.Vehicle, error)
	uniqueIDs  []string
	positionFn func(ctx context.Context, deviceID string, lat, lon, speed float64) (bool, error)

	setUniqueID string
	updated     *domain.Vehicle
	odometers   []domain.OdometerReading
}

func (m *mockVehicleRepo) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockVehicleRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Vehicle, error) {
	return nil, domain.ErrNotFound
}

func (m *mockVehicleRepo) ListUniqueIDs(ctx context.Context) ([]string, error) {
	return m.uniqueIDs, nil
}

func (m *mockVehicleRepo) SetUniqueID(ctx context.Context, id int64, uniqueID string) error {
	m.setUniqueID = uniqueID
	return nil
}

func (m *mockVehicleRepo) UpdateTracking(ctx context.Context, v *domain.Vehicle) error {
	cp := *v
	m.updated = &cp
	return nil
}

func (m *mockVehicleRepo) UpdatePosition(ctx context.Context, deviceID string, lat, lon, speed float64) (bool, error) {
	if m.positionFn != nil {
		return m.positionFn(ctx, deviceID, lat, lon, speed)
	}
	return false, nil
}

func (m *mockVehicleRepo) AddOdometer(ctx context.Context, r *domain.OdometerReading) error {
	m.odometers = append(m.odometers, *r)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	positions []domain.Position
	failFor   int64
}

func (m *mockPublisher) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *mockPublisher) PublishPosition(ctx context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != 0 && pos.DeviceID == m.failFor {
		return errors.New("broker unavailable")
	}
	m.positions = append(m.positions, *pos)
	return nil
}

func (m *mockPublisher) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

// --- Helpers ---

func ptr(f float64) *float64 { return &f }

// testSettings returns default settings with refresh intervals long enough
// that only the synchronous first cycle and explicit triggers run.
func testSettings() usecases.ViewSettings {
	s := usecases.DefaultViewSettings()
	s.ClientRefresh = time.Hour
	s.TrackingRefresh = time.Hour
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
