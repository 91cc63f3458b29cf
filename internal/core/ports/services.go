package ports

import (
	"context"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// TrackingService is the external vehicle-tracking REST API.
type TrackingService interface {
	LatestPositions(ctx context.Context) ([]domain.Position, error)
	DevicePositions(ctx context.Context, deviceID int64) ([]domain.Position, error)
	RouteReport(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error)
	Devices(ctx context.Context) ([]domain.Device, error)
	Device(ctx context.Context, id int64) (*domain.Device, error)
	CreateDevice(ctx context.Context, name, uniqueID string) (*domain.Device, error)
}

// EventPublisher publishes view and tracking events to a message broker.
type EventPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
	PublishPosition(ctx context.Context, pos *domain.Position) error
}

// EventSubscriber subscribes to tracking events from a message broker.
type EventSubscriber interface {
	SubscribePositions(ctx context.Context, handler func(ctx context.Context, pos *domain.Position) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
