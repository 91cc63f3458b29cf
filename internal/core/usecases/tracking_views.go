package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

// LiveTrackingView follows one device and accumulates its path for as long
// as the view lives.
type LiveTrackingView struct {
	*baseView
	tracking   ports.TrackingService
	deviceID   string
	device     int64
	interval   time.Duration
	followZoom int
	path       domain.TrackedPath
}

// NewLiveTrackingView builds a live_tracking view.
func NewLiveTrackingView(id string, p LiveTrackingParams, settings ViewSettings, tracking ports.TrackingService, publisher ports.EventPublisher) *LiveTrackingView {
	initial := domain.Viewport{Center: domain.GeoPoint{}, Zoom: 2}
	return &LiveTrackingView{
		baseView:   newBaseView(id, KindLiveTracking, p.Container, initial, settings.Scene, publisher),
		tracking:   tracking,
		deviceID:   p.DeviceID,
		device:     deviceNumber(p.DeviceID),
		interval:   settings.TrackingRefresh,
		followZoom: settings.FollowZoom,
	}
}

// Start fetches the first position and schedules the polling.
func (v *LiveTrackingView) Start(ctx context.Context) error {
	return v.start(ctx, v.interval, v.refresh)
}

// PathLen returns the number of points tracked so far.
func (v *LiveTrackingView) PathLen() int {
	return v.path.Len()
}

func (v *LiveTrackingView) refresh(ctx context.Context) error {
	positions, err := v.tracking.DevicePositions(ctx, v.device)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.reportFetchError(err)
		return err
	}

	var latest *domain.Position
	for i := range positions {
		if positions[i].DeviceID == v.device {
			latest = &positions[i]
			break
		}
	}
	if latest == nil {
		v.logger.Warn("no position for device", "device_id", v.deviceID)
		return nil
	}

	status := "Position tracked"
	if v.path.Len() > 0 {
		status = "Position updated"
	}
	popup := fmt.Sprintf("Device ID: %s<br>%s", v.deviceID, status)
	v.renderer.DrawTrack(v.scene, &v.path, latest.Point(), v.followZoom, popup)
	return nil
}

// TrackHistoryView draws the route a device travelled over a time range.
type TrackHistoryView struct {
	*baseView
	tracking ports.TrackingService
	device   int64
	from, to time.Time
}

// NewTrackHistoryView builds a track_history view. p must already be resolved.
func NewTrackHistoryView(id string, p TrackHistoryParams, settings ViewSettings, tracking ports.TrackingService, publisher ports.EventPublisher) *TrackHistoryView {
	initial := domain.Viewport{Center: domain.GeoPoint{}, Zoom: 2}
	return &TrackHistoryView{
		baseView: newBaseView(id, KindTrackHistory, p.Container, initial, settings.Scene, publisher),
		tracking: tracking,
		device:   deviceNumber(p.DeviceID),
		from:     p.from,
		to:       p.to,
	}
}

// Start loads and draws the history once.
func (v *TrackHistoryView) Start(ctx context.Context) error {
	return v.start(ctx, 0, v.load)
}

// Range returns the requested time range.
func (v *TrackHistoryView) Range() (from, to time.Time) {
	return v.from, v.to
}

func (v *TrackHistoryView) load(ctx context.Context) error {
	positions, err := v.tracking.RouteReport(ctx, v.device, v.from, v.to)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.reportFetchError(err)
		return err
	}
	v.renderer.DrawHistory(v.scene, positions)
	return nil
}

// RoutePlanView shows a planned route with its stops.
type RoutePlanView struct {
	*baseView
	route  domain.Route
	origin domain.GeoPoint
}

// NewRoutePlanView builds a route_plan view from decoded parameters.
func NewRoutePlanView(id, container string, route domain.Route, origin domain.GeoPoint, settings ViewSettings, publisher ports.EventPublisher) *RoutePlanView {
	initial := domain.Viewport{Center: origin, Zoom: settings.RouteZoom}
	return &RoutePlanView{
		baseView: newBaseView(id, KindRoutePlan, container, initial, settings.Scene, publisher),
		route:    route,
		origin:   origin,
	}
}

// Start draws the route once.
func (v *RoutePlanView) Start(ctx context.Context) error {
	return v.start(ctx, 0, func(ctx context.Context) error {
		placed := v.renderer.DrawRoute(v.scene, v.route, v.origin)
		v.logger.Debug("route rendered", "points", len(v.route.Coordinates), "stops", placed)
		return nil
	})
}
