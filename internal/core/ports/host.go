package ports

import "github.com/samirrijal/trackmap/internal/core/domain"

// MapHost owns a viewport, a tile base layer and an overlay set.
type MapHost interface {
	Init(container string, vp domain.Viewport) error
	SetView(center domain.GeoPoint, zoom int)
	AddOverlay(o domain.Overlay)
	RemoveOverlay(id string) bool
	Overlays(layer string) []domain.Overlay
	FitToBounds(ids []string) bool
	Notify(n domain.Notification)
	Snapshot() domain.Snapshot
}
