package geospatial

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	// Tunis to Sousse, roughly 114 km.
	d := Haversine(36.8065, 10.1815, 35.8256, 10.6360)
	if d < 113000 || d > 117000 {
		t.Errorf("unexpected distance %f", d)
	}
	if Haversine(1, 2, 1, 2) != 0 {
		t.Error("expected zero distance for identical points")
	}
}

func TestPathLength(t *testing.T) {
	lats := []float64{0, 0, 0}
	lons := []float64{0, 1, 2}
	want := 2 * Haversine(0, 0, 0, 1)
	if got := PathLength(lats, lons); math.Abs(got-want) > 1e-6 {
		t.Errorf("PathLength = %f, want %f", got, want)
	}
	if PathLength([]float64{1}, []float64{1}) != 0 {
		t.Error("single point path must have zero length")
	}
	if PathLength(lats, lons[:2]) != Haversine(0, 0, 0, 1) {
		t.Error("mismatched slices must use the shorter length")
	}
}
