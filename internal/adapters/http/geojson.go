package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// snapshotGeoJSON renders a snapshot as a FeatureCollection: markers become
// Points, polylines become LineStrings. The viewport and revision travel as
// foreign members.
func snapshotGeoJSON(snap domain.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var all orb.MultiPoint

	for _, o := range snap.Overlays {
		if len(o.Points) == 0 {
			continue
		}
		var geom orb.Geometry
		switch o.Kind {
		case domain.OverlayMarker:
			p := toOrbPoint(o.Points[0])
			geom = p
			all = append(all, p)
		default:
			ls := make(orb.LineString, len(o.Points))
			for i, pt := range o.Points {
				ls[i] = toOrbPoint(pt)
			}
			geom = ls
			all = append(all, ls...)
		}

		f := geojson.NewFeature(geom)
		f.ID = o.ID
		f.Properties["layer"] = o.Layer
		f.Properties["kind"] = string(o.Kind)
		if o.Popup != "" {
			f.Properties["popup"] = o.Popup
		}
		if o.Color != "" {
			f.Properties["color"] = o.Color
		}
		if o.Icon != "" {
			f.Properties["icon"] = o.Icon
		}
		if o.Draggable {
			f.Properties["draggable"] = true
		}
		fc.Append(f)
	}

	if len(all) > 0 {
		fc.BBox = geojson.NewBBox(all.Bound())
	}
	fc.ExtraMembers = geojson.Properties{
		"view_id":  snap.ViewID,
		"kind":     snap.Kind,
		"revision": snap.Revision,
		"viewport": snap.Viewport,
	}
	return fc
}

func toOrbPoint(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
