package usecases_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

func TestRenderer_ReplaceMarkers(t *testing.T) {
	s := newScene(t)
	r := usecases.Renderer{}

	entities := []domain.Entity{
		{ID: "partner-1", Label: "Alpha", Latitude: ptr(36.8), Longitude: ptr(10.1), Metadata: map[string]string{"street": "Rue 1"}},
		{ID: "partner-2", Label: "NoLon", Latitude: ptr(36.9)},
		{ID: "partner-3", Label: "Gamma", Latitude: ptr(36.7), Longitude: ptr(10.3)},
	}
	if n := r.ReplaceMarkers(s, usecases.LayerClients, entities); n != 2 {
		t.Fatalf("expected 2 markers, got %d", n)
	}

	// An unrelated overlay survives the replacement.
	s.AddOverlay(marker("route:line", usecases.LayerRoute, 1, 1))

	if n := r.ReplaceMarkers(s, usecases.LayerClients, entities[2:]); n != 1 {
		t.Fatalf("expected 1 marker, got %d", n)
	}
	clients := s.Overlays(usecases.LayerClients)
	if len(clients) != 1 || clients[0].ID != "clients:partner-3" {
		t.Errorf("expected only partner-3, got %+v", clients)
	}
	if len(s.Overlays(usecases.LayerRoute)) != 1 {
		t.Error("other layers must be left alone")
	}
}

func TestRenderer_DrawRoute(t *testing.T) {
	s := newScene(t)
	coords := []domain.GeoPoint{{Lat: 36.80, Lon: 10.10}, {Lat: 36.81, Lon: 10.11}, {Lat: 36.82, Lon: 10.12}, {Lat: 36.83, Lon: 10.13}}
	route := domain.Route{
		Coordinates: coords,
		Steps: []domain.RouteStep{
			{Name: "Client A", WayPoints: [2]int{0, 3}, Distance: 1234, Duration: 125},
			{Name: "Broken", WayPoints: [2]int{3, 9}},
		},
	}

	placed := usecases.Renderer{}.DrawRoute(s, route, domain.GeoPoint{Lat: 36.79, Lon: 10.09})
	if placed != 1 {
		t.Fatalf("expected 1 step marker, got %d", placed)
	}

	overlays := s.Overlays(usecases.LayerRoute)
	if len(overlays) != 3 {
		t.Fatalf("expected line, origin and one step, got %d", len(overlays))
	}
	if overlays[0].Kind != domain.OverlayPolyline || len(overlays[0].Points) != 4 {
		t.Errorf("unexpected polyline %+v", overlays[0])
	}
	step := overlays[2]
	if step.ID != "route:step:0" || step.Points[0] != coords[3] {
		t.Errorf("step marker must sit on coordinate 3, got %+v", step)
	}
	if step.Popup != "<b>Client A</b><br>Distance: 1.2 km<br>Duration: 2.1 min" {
		t.Errorf("unexpected popup %q", step.Popup)
	}
	if z := s.Snapshot().Viewport.Zoom; z <= 10 {
		t.Errorf("expected viewport fitted to the route, got zoom %d", z)
	}

	// Redrawing replaces instead of accumulating.
	usecases.Renderer{}.DrawRoute(s, route, domain.GeoPoint{Lat: 36.79, Lon: 10.09})
	if n := len(s.Overlays(usecases.LayerRoute)); n != 3 {
		t.Errorf("expected 3 overlays after redraw, got %d", n)
	}
}

func TestRenderer_DrawTrackAccumulates(t *testing.T) {
	s := newScene(t)
	var path domain.TrackedPath
	r := usecases.Renderer{}

	points := []domain.GeoPoint{{Lat: 36.80, Lon: 10.1}, {Lat: 36.81, Lon: 10.1}, {Lat: 36.82, Lon: 10.1}}
	for _, p := range points {
		r.DrawTrack(s, &path, p, 18, "Device ID: 7")
	}

	if path.Len() != 3 {
		t.Fatalf("expected 3 path points, got %d", path.Len())
	}
	overlays := s.Overlays(usecases.LayerTrack)
	if len(overlays) != 2 {
		t.Fatalf("expected path and marker, got %d overlays", len(overlays))
	}
	if len(overlays[0].Points) != 3 {
		t.Errorf("expected polyline of 3 points, got %d", len(overlays[0].Points))
	}
	vp := s.Snapshot().Viewport
	if vp.Zoom != 18 || vp.Center != points[2] {
		t.Errorf("expected view to follow the last point, got %+v", vp)
	}
}

func TestRenderer_DrawHistory(t *testing.T) {
	s := newScene(t)
	positions := []domain.Position{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 0.5},
		{Latitude: 0, Longitude: 1},
	}
	usecases.Renderer{}.DrawHistory(s, positions)

	overlays := s.Overlays(usecases.LayerHistory)
	if len(overlays) != 3 {
		t.Fatalf("expected line, start and end, got %d", len(overlays))
	}
	if overlays[1].Popup != "Start" || !overlays[1].OpenPopup {
		t.Errorf("unexpected start marker %+v", overlays[1])
	}
	if overlays[2].Popup != "End<br>Distance: 111.2 km" {
		t.Errorf("unexpected end popup %q", overlays[2].Popup)
	}

	usecases.Renderer{}.DrawHistory(s, nil)
	if n := len(s.Overlays(usecases.LayerHistory)); n != 0 {
		t.Errorf("empty history must clear the layer, got %d", n)
	}
}

func TestEntityPopup_Escapes(t *testing.T) {
	got := usecases.EntityPopup(domain.Entity{Label: "<Acme & Co>", Metadata: map[string]string{"street": "Main"}})
	if got != "<b>&lt;Acme &amp; Co&gt;</b><br>Main" {
		t.Errorf("unexpected popup %q", got)
	}
	if got := usecases.EntityPopup(domain.Entity{Label: "Bare"}); got != "<b>Bare</b><br>" {
		t.Errorf("unexpected popup %q", got)
	}
}

func TestStepPopup_DefaultName(t *testing.T) {
	got := usecases.StepPopup(domain.RouteStep{Distance: 500, Duration: 30}, 1)
	if !strings.HasPrefix(got, "<b>Stop 2</b>") || !strings.Contains(got, "Distance: 0.5 km<br>Duration: 0.5 min") {
		t.Errorf("unexpected popup %q", got)
	}
}
