package domain

import (
	"strconv"
	"time"
)

// OverlayKind enumerates what an overlay draws.
type OverlayKind string

const (
	OverlayMarker   OverlayKind = "marker"
	OverlayPolyline OverlayKind = "polyline"
)

// Overlay is a marker or polyline drawn atop the tile layer.
type Overlay struct {
	ID        string      `json:"id"`
	Layer     string      `json:"layer"`
	Kind      OverlayKind `json:"kind"`
	Points    []GeoPoint  `json:"points"`
	Popup     string      `json:"popup,omitempty"`
	OpenPopup bool        `json:"open_popup,omitempty"`
	Color     string      `json:"color,omitempty"`
	Icon      string      `json:"icon,omitempty"`
	Draggable bool        `json:"draggable,omitempty"`
}

// NotificationLevel is the severity shown to the user.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification codes.
const (
	CodeUpstreamStatus = "upstream_status"
	CodeDecodeError    = "decode_error"
	CodeNoData         = "no_data"
	CodeFetchFailed    = "fetch_failed"
	CodeSaved          = "saved"
)

// Notification is a user-visible message raised by a view.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Time    time.Time         `json:"time"`
}

// Snapshot is the complete drawable state of a view at one revision.
type Snapshot struct {
	ViewID        string         `json:"view_id"`
	Kind          string         `json:"kind"`
	Container     string         `json:"container"`
	Revision      uint64         `json:"revision"`
	Viewport      Viewport       `json:"viewport"`
	TileLayer     TileLayer      `json:"tile_layer"`
	Overlays      []Overlay      `json:"overlays"`
	Notifications []Notification `json:"notifications,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PartnerEntityID is the entity id used for a partner record.
func PartnerEntityID(id int64) string {
	return "partner-" + strconv.FormatInt(id, 10)
}
