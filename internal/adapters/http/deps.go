package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trackmap/internal/core/usecases"
)

// Pinger is a backend whose reachability is reported by /v1/ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncStarter starts a device sync in the background and returns its run id.
type SyncStarter interface {
	StartDeviceSync(ctx context.Context, vehicleID int64) (string, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Views    *usecases.ViewService
	Partners *usecases.PartnerService
	Sync     *usecases.VehicleSyncService
	Workflow SyncStarter
	NATS     *nats.Conn
	DB       Pinger
	Cache    Pinger
	Version  string
}
