package usecases

import (
	"math"
	"sync"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

const (
	tileSize         = 256
	maxNotifications = 20
	fitPaddingPx     = 20
)

// SceneOptions configures a Scene.
type SceneOptions struct {
	TileLayer domain.TileLayer
	Width     int // container width in pixels, used by FitToBounds
	Height    int
}

// Scene is the in-memory map host of a view. A single refresh loop writes
// to it while HTTP and WebSocket readers take snapshots.
type Scene struct {
	mu          sync.RWMutex
	viewID      string
	kind        string
	opts        SceneOptions
	container   string
	initialized bool
	viewport    domain.Viewport
	overlays    map[string]domain.Overlay
	order       []string
	notes       []domain.Notification
	revision    uint64
	updatedAt   time.Time
	now         func() time.Time
}

// NewScene creates an uninitialised scene.
func NewScene(viewID, kind string, opts SceneOptions) *Scene {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.TileLayer.MaxZoom <= 0 {
		opts.TileLayer.MaxZoom = 19
	}
	return &Scene{
		viewID:   viewID,
		kind:     kind,
		opts:     opts,
		overlays: make(map[string]domain.Overlay),
		now:      time.Now,
	}
}

// Init binds the scene to a container and an initial viewport. Calling it
// again after a successful Init does nothing.
func (s *Scene) Init(container string, vp domain.Viewport) error {
	if container == "" {
		return domain.ErrNoContainer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	s.container = container
	s.viewport = domain.Viewport{Center: vp.Center, Zoom: s.clampZoom(vp.Zoom)}
	s.initialized = true
	s.touch()
	return nil
}

// SetView moves the viewport.
func (s *Scene) SetView(center domain.GeoPoint, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = domain.Viewport{Center: center, Zoom: s.clampZoom(zoom)}
	s.touch()
}

// AddOverlay adds an overlay, replacing any overlay with the same id in place.
func (s *Scene) AddOverlay(o domain.Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.overlays[o.ID]; !exists {
		s.order = append(s.order, o.ID)
	}
	s.overlays[o.ID] = o
	s.touch()
}

// RemoveOverlay removes an overlay and reports whether it existed.
func (s *Scene) RemoveOverlay(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.overlays[id]; !exists {
		return false
	}
	delete(s.overlays, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.touch()
	return true
}

// Overlays returns the overlays of a layer in insertion order. An empty
// layer name returns every overlay.
func (s *Scene) Overlays(layer string) []domain.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Overlay
	for _, id := range s.order {
		o := s.overlays[id]
		if layer == "" || o.Layer == layer {
			out = append(out, o)
		}
	}
	return out
}

// FitToBounds centres the viewport on the named overlays and picks the
// largest zoom at which they fit the container. It returns false when none
// of the ids resolve to a point.
func (s *Scene) FitToBounds(ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var points []domain.GeoPoint
	for _, id := range ids {
		if o, ok := s.overlays[id]; ok {
			points = append(points, o.Points...)
		}
	}
	b, ok := domain.BoundsOf(points)
	if !ok {
		return false
	}
	s.viewport = domain.Viewport{
		Center: b.Center(),
		Zoom:   fitZoom(b, s.opts.Width-2*fitPaddingPx, s.opts.Height-2*fitPaddingPx, s.opts.TileLayer.MaxZoom),
	}
	s.touch()
	return true
}

// Notify records a user-visible notification, keeping the most recent ones.
func (s *Scene) Notify(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Time.IsZero() {
		n.Time = s.now()
	}
	s.notes = append(s.notes, n)
	if len(s.notes) > maxNotifications {
		s.notes = s.notes[len(s.notes)-maxNotifications:]
	}
	s.touch()
}

// Snapshot returns a deep copy of the current state.
func (s *Scene) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overlays := make([]domain.Overlay, 0, len(s.order))
	for _, id := range s.order {
		o := s.overlays[id]
		o.Points = append([]domain.GeoPoint(nil), o.Points...)
		overlays = append(overlays, o)
	}
	return domain.Snapshot{
		ViewID:        s.viewID,
		Kind:          s.kind,
		Container:     s.container,
		Revision:      s.revision,
		Viewport:      s.viewport,
		TileLayer:     s.opts.TileLayer,
		Overlays:      overlays,
		Notifications: append([]domain.Notification(nil), s.notes...),
		UpdatedAt:     s.updatedAt,
	}
}

// touch must be called with mu held.
func (s *Scene) touch() {
	s.revision++
	s.updatedAt = s.now()
}

func (s *Scene) clampZoom(z int) int {
	if z < 0 {
		return 0
	}
	if z > s.opts.TileLayer.MaxZoom {
		return s.opts.TileLayer.MaxZoom
	}
	return z
}

// fitZoom returns the largest zoom in [0, maxZoom] at which b spans at most
// width x height pixels in Web Mercator. Bounds crossing the antimeridian
// are not unwrapped, so they fit at a whole-world zoom.
func fitZoom(b domain.Bounds, width, height, maxZoom int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	x1, y1 := project(domain.GeoPoint{Lat: b.MaxLat, Lon: b.MinLon})
	x2, y2 := project(domain.GeoPoint{Lat: b.MinLat, Lon: b.MaxLon})
	dx, dy := math.Abs(x2-x1), math.Abs(y2-y1)

	for z := maxZoom; z > 0; z-- {
		scale := float64(tileSize) * math.Exp2(float64(z))
		if dx*scale <= float64(width) && dy*scale <= float64(height) {
			return z
		}
	}
	return 0
}

// project maps a point to normalised Web Mercator coordinates in [0,1].
func project(p domain.GeoPoint) (x, y float64) {
	lat := math.Max(math.Min(p.Lat, 85.05112878), -85.05112878)
	sin := math.Sin(lat * math.Pi / 180)
	x = (p.Lon + 180) / 360
	y = 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return x, y
}
