package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
)

// PositionPoller fetches the latest positions of every device and fans
// them out as position events.
type PositionPoller struct {
	tracking  ports.TrackingService
	publisher ports.EventPublisher
}

// NewPositionPoller creates a new PositionPoller.
func NewPositionPoller(tracking ports.TrackingService, publisher ports.EventPublisher) *PositionPoller {
	return &PositionPoller{tracking: tracking, publisher: publisher}
}

// Poll publishes one event per position and returns the number published.
// A failed publish is logged and skipped.
func (p *PositionPoller) Poll(ctx context.Context) (int, error) {
	positions, err := p.tracking.LatestPositions(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest positions: %w", err)
	}

	published := 0
	for i := range positions {
		if err := p.publisher.PublishPosition(ctx, &positions[i]); err != nil {
			slog.WarnContext(ctx, "publish position failed", "device_id", positions[i].DeviceID, "error", err)
			continue
		}
		published++
	}
	metrics.PositionsPublished.Add(float64(published))
	return published, nil
}
