package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

func TestResolvePeriod(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, loc)

	tests := []struct {
		period   string
		from, to time.Time
	}{
		{usecases.PeriodToday, time.Date(2026, 10, 18, 0, 0, 0, 0, loc), now},
		{usecases.PeriodYesterday, time.Date(2026, 10, 17, 0, 0, 0, 0, loc), time.Date(2026, 10, 17, 23, 59, 59, 999999000, loc)},
		{usecases.PeriodLast7Days, time.Date(2026, 10, 11, 15, 30, 0, 0, loc), now},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to := usecases.ResolvePeriod(tt.period, now)
			if !from.Equal(tt.from) || !to.Equal(tt.to) {
				t.Errorf("got %v - %v, want %v - %v", from, to, tt.from, tt.to)
			}
		})
	}
}

func TestDecodePolyline(t *testing.T) {
	points, err := usecases.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.GeoPoint{{Lat: 38.5, Lon: -120.2}, {Lat: 40.7, Lon: -120.95}, {Lat: 43.252, Lon: -126.453}}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i := range want {
		if diff(points[i].Lat, want[i].Lat) > 1e-9 || diff(points[i].Lon, want[i].Lon) > 1e-9 {
			t.Errorf("point %d: got %+v, want %+v", i, points[i], want[i])
		}
	}

	if _, err := usecases.DecodePolyline("_p~iF~ps|U_"); err == nil {
		t.Error("expected error for truncated polyline")
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestRoutePlan_GeoJSONFeatureSteps(t *testing.T) {
	svc := newViewService(t, nil)

	raw := `{"origin":[10.10,36.80],"route_geometry":{"type":"Feature",
		"geometry":{"type":"LineString","coordinates":[[10.10,36.80],[10.11,36.81],[10.12,36.82]]},
		"properties":{"segments":[{"steps":[{"name":"Depot","way_points":[0,1],"distance":800,"duration":90},
		{"name":"Client B","way_points":[1,2],"distance":2500,"duration":240}]}]}}}`
	v, err := svc.Open(context.Background(), usecases.KindRoutePlan, []byte(raw))
	if err != nil {
		t.Fatal(err)
	}

	overlays := v.Snapshot().Overlays
	if len(overlays) != 4 {
		t.Fatalf("expected line, origin and 2 steps, got %d", len(overlays))
	}
	last := overlays[3]
	if last.Points[0] != (domain.GeoPoint{Lat: 36.82, Lon: 10.12}) {
		t.Errorf("unexpected step position %+v", last.Points[0])
	}
	if last.Popup != "<b>Client B</b><br>Distance: 2.5 km<br>Duration: 4.0 min" {
		t.Errorf("unexpected popup %q", last.Popup)
	}
}

func TestRoutePlan_ExplicitStepsOverrideFeature(t *testing.T) {
	svc := newViewService(t, nil)

	raw := `{"origin":[10.10,36.80],
		"route_geometry":{"type":"FeatureCollection","features":[{"type":"Feature",
			"geometry":{"type":"LineString","coordinates":[[10.10,36.80],[10.11,36.81]]},
			"properties":{"segments":[{"steps":[{"way_points":[0,1]},{"way_points":[0,1]}]}]}}]},
		"steps":[{"name":"Only","way_points":[0,1],"distance":100,"duration":60}]}`
	v, err := svc.Open(context.Background(), usecases.KindRoutePlan, []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(v.Snapshot().Overlays); n != 3 {
		t.Errorf("expected explicit steps to win, got %d overlays", n)
	}
}
