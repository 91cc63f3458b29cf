package usecases

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

// ClientMapView shows every located client and reloads them periodically.
type ClientMapView struct {
	*baseView
	partners *PartnerService
	interval time.Duration
}

// NewClientMapView builds a client_map view.
func NewClientMapView(id string, p ClientMapParams, settings ViewSettings, partners *PartnerService, publisher ports.EventPublisher) *ClientMapView {
	initial := domain.Viewport{Center: settings.ClientCenter, Zoom: settings.ClientZoom}
	return &ClientMapView{
		baseView: newBaseView(id, KindClientMap, p.Container, initial, settings.Scene, publisher),
		partners: partners,
		interval: settings.ClientRefresh,
	}
}

// Start draws the clients and schedules reloads.
func (v *ClientMapView) Start(ctx context.Context) error {
	return v.start(ctx, v.interval, v.refresh)
}

func (v *ClientMapView) refresh(ctx context.Context) error {
	partners, err := v.partners.ListWithLocation(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.reportFetchError(err)
		return err
	}

	entities := make([]domain.Entity, len(partners))
	for i, p := range partners {
		entities[i] = p.Entity()
	}
	drawn := v.renderer.ReplaceMarkers(v.scene, LayerClients, entities)
	v.logger.Debug("clients rendered", "fetched", len(partners), "drawn", drawn)
	return nil
}

// ClientPositionView edits the location of one client. The marker is moved
// by drag or click and persisted on Save.
type ClientPositionView struct {
	*baseView
	partners  *PartnerService
	partnerID int64

	mu       sync.Mutex
	position domain.GeoPoint
}

// NewClientPositionView builds a client_position view.
func NewClientPositionView(id string, p ClientPositionParams, settings ViewSettings, partners *PartnerService, publisher ports.EventPublisher) *ClientPositionView {
	pos := settings.PositionCenter
	if p.Latitude != nil && *p.Latitude != 0 {
		pos.Lat = *p.Latitude
	}
	if p.Longitude != nil && *p.Longitude != 0 {
		pos.Lon = *p.Longitude
	}
	initial := domain.Viewport{Center: pos, Zoom: settings.PositionZoom}
	return &ClientPositionView{
		baseView:  newBaseView(id, KindClientPosition, p.Container, initial, settings.Scene, publisher),
		partners:  partners,
		partnerID: p.PartnerID,
		position:  pos,
	}
}

// Start draws the draggable marker once.
func (v *ClientPositionView) Start(ctx context.Context) error {
	return v.start(ctx, 0, func(ctx context.Context) error {
		v.drawMarker()
		return nil
	})
}

// Position returns the currently placed coordinate.
func (v *ClientPositionView) Position() domain.GeoPoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// Move places the marker at a new coordinate.
func (v *ClientPositionView) Move(lat, lon float64) error {
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return &domain.ParamError{Kind: v.kind, Fields: []string{"latitude/longitude (coordinates)"}}
	}
	v.mu.Lock()
	v.position = p
	v.mu.Unlock()

	v.drawMarker()
	v.publish(context.Background())
	return nil
}

// Save persists the placed coordinate on the client record.
func (v *ClientPositionView) Save(ctx context.Context) error {
	p := v.Position()
	if err := v.partners.UpdateLocation(ctx, v.partnerID, p.Lat, p.Lon); err != nil {
		return fmt.Errorf("save partner %d location: %w", v.partnerID, err)
	}
	v.notify(domain.LevelInfo, domain.CodeSaved, "Location saved.")
	v.logger.Info("partner location saved", "partner_id", v.partnerID, "lat", p.Lat, "lon", p.Lon)
	v.publish(ctx)
	return nil
}

func (v *ClientPositionView) drawMarker() {
	v.scene.AddOverlay(domain.Overlay{
		ID:        LayerPosition + ":" + strconv.FormatInt(v.partnerID, 10),
		Layer:     LayerPosition,
		Kind:      domain.OverlayMarker,
		Points:    []domain.GeoPoint{v.Position()},
		Draggable: true,
	})
}
