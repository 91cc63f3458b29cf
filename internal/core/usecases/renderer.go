package usecases

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

var _ ports.MapHost = (*Scene)(nil)

// Overlay layers drawn by the renderer.
const (
	LayerClients  = "clients"
	LayerPosition = "position"
	LayerTrack    = "track"
	LayerHistory  = "history"
	LayerRoute    = "route"
)

const routeColor = "blue"

// Renderer turns entities and routes into overlays on a map host.
type Renderer struct{}

// ClearLayer removes every overlay of a layer and returns how many were removed.
func (Renderer) ClearLayer(host ports.MapHost, layer string) int {
	removed := 0
	for _, o := range host.Overlays(layer) {
		if host.RemoveOverlay(o.ID) {
			removed++
		}
	}
	return removed
}

// ReplaceMarkers swaps the markers of a layer for one marker per entity that
// has a position. Entities without both coordinates are skipped.
func (r Renderer) ReplaceMarkers(host ports.MapHost, layer string, entities []domain.Entity) int {
	r.ClearLayer(host, layer)

	drawn := 0
	for _, e := range entities {
		pos, ok := e.Position()
		if !ok {
			continue
		}
		host.AddOverlay(domain.Overlay{
			ID:     layer + ":" + e.ID,
			Layer:  layer,
			Kind:   domain.OverlayMarker,
			Points: []domain.GeoPoint{pos},
			Popup:  EntityPopup(e),
		})
		drawn++
	}
	return drawn
}

// DrawRoute replaces the route layer with the route polyline, an origin
// marker and one marker per step at the step's end waypoint.
func (r Renderer) DrawRoute(host ports.MapHost, route domain.Route, origin domain.GeoPoint) int {
	r.ClearLayer(host, LayerRoute)

	lineID := LayerRoute + ":line"
	host.AddOverlay(domain.Overlay{
		ID:     lineID,
		Layer:  LayerRoute,
		Kind:   domain.OverlayPolyline,
		Points: route.Coordinates,
		Color:  routeColor,
	})
	host.AddOverlay(domain.Overlay{
		ID:     LayerRoute + ":origin",
		Layer:  LayerRoute,
		Kind:   domain.OverlayMarker,
		Points: []domain.GeoPoint{origin},
		Popup:  "Start",
	})

	placed := 0
	for i, step := range route.Steps {
		idx := step.WayPoints[1]
		if idx < 0 || idx >= len(route.Coordinates) {
			continue
		}
		host.AddOverlay(domain.Overlay{
			ID:     fmt.Sprintf("%s:step:%d", LayerRoute, i),
			Layer:  LayerRoute,
			Kind:   domain.OverlayMarker,
			Points: []domain.GeoPoint{route.Coordinates[idx]},
			Popup:  StepPopup(step, i),
		})
		placed++
	}

	if len(route.Coordinates) > 0 {
		host.FitToBounds([]string{lineID})
	}
	return placed
}

// DrawTrack appends p to the tracked path, then redraws the path polyline
// and moves the live marker. The path is never reset here.
func (Renderer) DrawTrack(host ports.MapHost, path *domain.TrackedPath, p domain.GeoPoint, zoom int, popup string) {
	path.Append(p)
	host.SetView(p, zoom)

	host.AddOverlay(domain.Overlay{
		ID:     LayerTrack + ":path",
		Layer:  LayerTrack,
		Kind:   domain.OverlayPolyline,
		Points: path.Points(),
		Color:  routeColor,
	})
	host.AddOverlay(domain.Overlay{
		ID:        LayerTrack + ":marker",
		Layer:     LayerTrack,
		Kind:      domain.OverlayMarker,
		Points:    []domain.GeoPoint{p},
		Popup:     popup,
		OpenPopup: true,
		Icon:      "pulse",
	})
}

// DrawHistory replaces the history layer with the travelled polyline and
// start/end markers, then fits the viewport to it.
func (r Renderer) DrawHistory(host ports.MapHost, positions []domain.Position) {
	r.ClearLayer(host, LayerHistory)
	if len(positions) == 0 {
		return
	}

	coords := make([]domain.GeoPoint, len(positions))
	for i, p := range positions {
		coords[i] = p.Point()
	}

	lineID := LayerHistory + ":line"
	host.AddOverlay(domain.Overlay{
		ID:     lineID,
		Layer:  LayerHistory,
		Kind:   domain.OverlayPolyline,
		Points: coords,
		Color:  routeColor,
	})
	host.FitToBounds([]string{lineID})

	host.AddOverlay(domain.Overlay{
		ID:        LayerHistory + ":start",
		Layer:     LayerHistory,
		Kind:      domain.OverlayMarker,
		Points:    []domain.GeoPoint{coords[0]},
		Popup:     "Start",
		OpenPopup: true,
	})
	host.AddOverlay(domain.Overlay{
		ID:     LayerHistory + ":end",
		Layer:  LayerHistory,
		Kind:   domain.OverlayMarker,
		Points: []domain.GeoPoint{coords[len(coords)-1]},
		Popup:  "End<br>Distance: " + strconv.FormatFloat(domain.PathLength(coords)/1000, 'f', 1, 64) + " km",
	})
}

// EntityPopup renders "<b>label</b><br>street".
func EntityPopup(e domain.Entity) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(e.Label))
	b.WriteString("</b><br>")
	b.WriteString(html.EscapeString(e.Metadata["street"]))
	return b.String()
}

// StepPopup renders the name, distance in km and duration in minutes of a
// route step, both rounded to one decimal.
func StepPopup(step domain.RouteStep, index int) string {
	name := step.Name
	if name == "" {
		name = "Stop " + strconv.Itoa(index+1)
	}
	return fmt.Sprintf("<b>%s</b><br>Distance: %s km<br>Duration: %s min",
		html.EscapeString(name),
		strconv.FormatFloat(step.Distance/1000, 'f', 1, 64),
		strconv.FormatFloat(step.Duration/60, 'f', 1, 64),
	)
}
