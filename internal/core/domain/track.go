package domain

import "sync"

// TrackedPath is an append-only coordinate sequence accumulated across
// refresh cycles. It only grows; a new view starts a new path.
type TrackedPath struct {
	mu     sync.RWMutex
	points []GeoPoint
}

// Append adds a point to the end of the path.
func (t *TrackedPath) Append(p GeoPoint) {
	t.mu.Lock()
	t.points = append(t.points, p)
	t.mu.Unlock()
}

// Len returns the number of points.
func (t *TrackedPath) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

// Points returns a copy of the path.
func (t *TrackedPath) Points() []GeoPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]GeoPoint, len(t.points))
	copy(out, t.points)
	return out
}
