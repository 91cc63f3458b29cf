package telemetry

// Span and attribute names used for instrumentation.
const (
	// Spans
	SpanRefreshCycle = "view.refresh_cycle"
	SpanTrackingGET  = "tracking.request"
	SpanDeviceSync   = "vehicle.device_sync"

	// Attributes
	AttrViewID   = "view.id"
	AttrViewKind = "view.kind"
	AttrDeviceID = "tracking.device_id"
	AttrHTTPPath = "http.path"
)
