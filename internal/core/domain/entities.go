package domain

import (
	"time"
)

// Entity is a positioned thing drawn as a marker (client, vehicle, stop).
// Latitude and Longitude are nil when the source has no coordinate.
type Entity struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Position returns the entity location. ok is false unless both
// coordinates are present and form a valid point.
func (e Entity) Position() (GeoPoint, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return GeoPoint{}, false
	}
	p := GeoPoint{Lat: *e.Latitude, Lon: *e.Longitude}
	return p, p.Valid()
}

// Partner is a customer record of the host application.
type Partner struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Street    string   `json:"street,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Entity converts the partner into a renderable entity.
func (p Partner) Entity() Entity {
	e := Entity{
		ID:        PartnerEntityID(p.ID),
		Label:     p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
	if p.Street != "" {
		e.Metadata = map[string]string{"street": p.Street}
	}
	return e
}

// RouteStep is one routing segment. WayPoints holds the [start, end]
// indexes into the owning route's coordinates.
type RouteStep struct {
	Name      string  `json:"name,omitempty"`
	WayPoints [2]int  `json:"way_points"`
	Distance  float64 `json:"distance"` // metres
	Duration  float64 `json:"duration"` // seconds
}

// Route is an ordered polyline with optional step annotations.
type Route struct {
	Coordinates []GeoPoint  `json:"coordinates"`
	Steps       []RouteStep `json:"steps,omitempty"`
}

// Position is a fix reported by the tracking service.
type Position struct {
	ID         int64          `json:"id"`
	DeviceID   int64          `json:"deviceId"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Altitude   float64        `json:"altitude"`
	Speed      float64        `json:"speed"` // knots
	Course     float64        `json:"course"`
	Accuracy   float64        `json:"accuracy"`
	FixTime    time.Time      `json:"fixTime"`
	ServerTime time.Time      `json:"serverTime,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Point returns the position as a GeoPoint.
func (p Position) Point() GeoPoint {
	return GeoPoint{Lat: p.Latitude, Lon: p.Longitude}
}

// Device is a tracker registered with the tracking service.
type Device struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	UniqueID   string     `json:"uniqueId"`
	Status     string     `json:"status,omitempty"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
	PositionID int64      `json:"positionId,omitempty"`
}

// Vehicle is a fleet vehicle with its mirrored tracking fields.
type Vehicle struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DriverName      string    `json:"driver_name,omitempty"`
	DeviceID        string    `json:"traccar_device_id,omitempty"`
	UniqueID        string    `json:"traccar_unique_id,omitempty"`
	DeviceName      string    `json:"traccar_name,omitempty"`
	Status          string    `json:"traccar_status,omitempty"`
	PositionID      string    `json:"traccar_position_id,omitempty"`
	Latitude        float64   `json:"traccar_latitude"`
	Longitude       float64   `json:"traccar_longitude"`
	Altitude        float64   `json:"traccar_altitude"`
	Speed           float64   `json:"traccar_speed"`
	Accuracy        float64   `json:"traccar_accuracy"`
	DistanceKm      float64   `json:"traccar_distance"`
	TotalDistanceKm float64   `json:"traccar_total_distance"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// OdometerReading is a logged odometer value for a vehicle.
type OdometerReading struct {
	VehicleID int64     `json:"vehicle_id"`
	ValueKm   float64   `json:"value"`
	Date      time.Time `json:"date"`
}
