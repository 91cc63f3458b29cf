package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

const defaultContainer = "map"

// View is a running map component with an explicit lifecycle.
type View interface {
	ID() string
	Kind() string
	Start(ctx context.Context) error
	Stop()
	Trigger() bool
	Snapshot() domain.Snapshot
}

// Editable views accept a user-placed position and persist it on Save.
type Editable interface {
	Move(lat, lon float64) error
	Save(ctx context.Context) error
}

// ViewSettings holds per-kind defaults shared by all views.
type ViewSettings struct {
	Scene           SceneOptions
	ClientRefresh   time.Duration
	TrackingRefresh time.Duration
	ClientCenter    domain.GeoPoint
	ClientZoom      int
	PositionCenter  domain.GeoPoint
	PositionZoom    int
	FollowZoom      int
	RouteZoom       int
}

// DefaultViewSettings returns the stock intervals and viewports.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		Scene: SceneOptions{
			TileLayer: domain.TileLayer{
				URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
				MaxZoom:     19,
				Attribution: "© OpenStreetMap contributors",
			},
			Width:  800,
			Height: 600,
		},
		ClientRefresh:   10 * time.Second,
		TrackingRefresh: 5 * time.Second,
		ClientCenter:    domain.GeoPoint{Lat: 36.85, Lon: 10.17},
		ClientZoom:      10,
		PositionCenter:  domain.GeoPoint{Lat: 36.8065, Lon: 10.1815},
		PositionZoom:    13,
		FollowZoom:      20, // clamped to the tile layer max zoom
		RouteZoom:       10,
	}
}

// baseView carries what every view kind shares: the scene, the loop, the
// renderer and snapshot publishing.
type baseView struct {
	id        string
	kind      string
	container string
	initial   domain.Viewport
	scene     *Scene
	loop      *RefreshLoop
	renderer  Renderer
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func newBaseView(id, kind, container string, initial domain.Viewport, opts SceneOptions, publisher ports.EventPublisher) *baseView {
	if container == "" {
		container = defaultContainer
	}
	return &baseView{
		id:        id,
		kind:      kind,
		container: container,
		initial:   initial,
		scene:     NewScene(id, kind, opts),
		publisher: publisher,
		logger:    slog.Default().With("view_id", id, "kind", kind),
	}
}

func (b *baseView) ID() string                { return b.id }
func (b *baseView) Kind() string              { return b.kind }
func (b *baseView) Snapshot() domain.Snapshot { return b.scene.Snapshot() }

// Trigger requests an extra refresh cycle.
func (b *baseView) Trigger() bool {
	if b.loop == nil {
		return false
	}
	return b.loop.Trigger()
}

// Stop ends the refresh loop.
func (b *baseView) Stop() {
	if b.loop != nil {
		b.loop.Stop()
	}
}

// start initialises the scene and starts the loop with the given cycle.
func (b *baseView) start(ctx context.Context, interval time.Duration, cycle CycleFunc) error {
	if err := b.scene.Init(b.container, b.initial); err != nil {
		return err
	}
	b.loop = NewRefreshLoop(b.id, b.kind, interval, func(ctx context.Context) error {
		err := cycle(ctx)
		if ctx.Err() == nil {
			b.publish(ctx)
		}
		return err
	})
	return b.loop.Start(ctx)
}

func (b *baseView) publish(ctx context.Context) {
	if b.publisher == nil {
		return
	}
	snap := b.scene.Snapshot()
	if err := b.publisher.PublishSnapshot(ctx, &snap); err != nil {
		b.logger.Debug("publish snapshot failed", "error", err)
	}
}

func (b *baseView) notify(level domain.NotificationLevel, code, msg string) {
	b.scene.Notify(domain.Notification{Level: level, Code: code, Message: msg})
}

// reportFetchError turns a data source failure into a user notification.
// An empty result is reported as information, not as an error.
func (b *baseView) reportFetchError(err error) {
	var statusErr *domain.UpstreamStatusError
	var decodeErr *domain.DecodeError
	switch {
	case errors.Is(err, domain.ErrNoData):
		b.notify(domain.LevelInfo, domain.CodeNoData, "No data found for this period.")
		b.logger.Info("no data for range")
		return
	case errors.As(err, &statusErr):
		b.notify(domain.LevelError, domain.CodeUpstreamStatus, "Tracking service error: "+statusErr.Status)
	case errors.As(err, &decodeErr):
		b.notify(domain.LevelError, domain.CodeDecodeError, "Invalid response from tracking service (not JSON).")
	default:
		b.notify(domain.LevelError, domain.CodeFetchFailed, "Could not load data: "+err.Error())
	}
	b.logger.Error("fetch failed", "error", err)
}
