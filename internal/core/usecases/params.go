package usecases

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

// View kinds.
const (
	KindClientMap      = "client_map"
	KindClientPosition = "client_position"
	KindLiveTracking   = "live_tracking"
	KindTrackHistory   = "track_history"
	KindRoutePlan      = "route_plan"
)

// History periods.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodLast7Days = "last_7_days"
	PeriodCustom    = "custom"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ClientMapParams configures a client_map view.
type ClientMapParams struct {
	Container string `json:"container"`
}

// ClientPositionParams configures a client_position view. A zero or missing
// coordinate falls back to the configured default.
type ClientPositionParams struct {
	Container string   `json:"container"`
	PartnerID int64    `json:"partner_id" validate:"required,gt=0"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// LiveTrackingParams configures a live_tracking view.
type LiveTrackingParams struct {
	Container string `json:"container"`
	DeviceID  string `json:"device_id" validate:"required,numeric"`
}

// TrackHistoryParams configures a track_history view. Either a preset
// period or an explicit date range must be given.
type TrackHistoryParams struct {
	Container string `json:"container"`
	DeviceID  string `json:"device_id" validate:"required,numeric"`
	Period    string `json:"period" validate:"omitempty,oneof=today yesterday last_7_days custom"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`

	from, to time.Time
}

// RoutePlanParams configures a route_plan view. Origin is (longitude,
// latitude). RouteGeometry is an encoded polyline string or a GeoJSON
// LineString, Feature or FeatureCollection.
type RoutePlanParams struct {
	Container     string             `json:"container"`
	Origin        []float64          `json:"origin" validate:"required,len=2"`
	RouteGeometry json.RawMessage    `json:"route_geometry" validate:"required"`
	Steps         []domain.RouteStep `json:"steps"`
}

// decodeParams unmarshals raw into dst and validates it.
func decodeParams(kind string, raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &domain.ParamError{Kind: kind, Fields: []string{"params: " + err.Error()}}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return &domain.ParamError{Kind: kind, Fields: fields}
		}
		return &domain.ParamError{Kind: kind, Fields: []string{err.Error()}}
	}
	return nil
}

// resolve fills the concrete range from the period or the explicit dates.
func (p *TrackHistoryParams) resolve(now time.Time) error {
	if p.Period != "" && p.Period != PeriodCustom {
		p.from, p.to = ResolvePeriod(p.Period, now)
		return nil
	}

	var fields []string
	from, err := parseDateTime(p.DateFrom)
	if err != nil {
		fields = append(fields, "date_from (datetime)")
	}
	to, err := parseDateTime(p.DateTo)
	if err != nil {
		fields = append(fields, "date_to (datetime)")
	}
	if len(fields) == 0 && !from.Before(to) {
		fields = append(fields, "date_from (before date_to)")
	}
	if len(fields) > 0 {
		return &domain.ParamError{Kind: KindTrackHistory, Fields: fields}
	}
	p.from, p.to = from, to
	return nil
}

// ResolvePeriod returns the [from, to] range of a preset period relative to now.
func ResolvePeriod(period string, now time.Time) (from, to time.Time) {
	startOfDay := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	switch period {
	case PeriodYesterday:
		y := now.AddDate(0, 0, -1)
		from = startOfDay(y)
		return from, from.Add(24*time.Hour - time.Microsecond)
	case PeriodLast7Days:
		return now.AddDate(0, 0, -7), now
	default:
		return startOfDay(now), now
	}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDateTime accepts RFC 3339 and the naive ISO forms the host
// application emits. Naive values are taken as UTC.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty datetime")
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

// originPoint converts the (lon, lat) origin pair.
func (p RoutePlanParams) originPoint() (domain.GeoPoint, error) {
	pt := domain.GeoPoint{Lat: p.Origin[1], Lon: p.Origin[0]}
	if !pt.Valid() {
		return pt, &domain.ParamError{Kind: KindRoutePlan, Fields: []string{"origin (coordinates)"}}
	}
	return pt, nil
}

// route decodes the geometry and attaches the steps. When no steps were
// passed, steps embedded in GeoJSON feature properties are used.
func (p RoutePlanParams) route() (domain.Route, error) {
	raw := bytes.TrimSpace(p.RouteGeometry)
	bad := func(err error) error {
		return &domain.ParamError{Kind: KindRoutePlan, Fields: []string{"route_geometry: " + err.Error()}}
	}

	var route domain.Route
	if len(raw) > 0 && raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return route, bad(err)
		}
		coords, err := DecodePolyline(encoded)
		if err != nil {
			return route, bad(err)
		}
		route.Coordinates = coords
	} else {
		coords, steps, err := decodeGeoJSONRoute(raw)
		if err != nil {
			return route, bad(err)
		}
		route.Coordinates = coords
		route.Steps = steps
	}

	if len(p.Steps) > 0 {
		route.Steps = p.Steps
	}
	if len(route.Coordinates) == 0 {
		return route, bad(errors.New("no coordinates"))
	}
	return route, nil
}

// DecodePolyline decodes a precision-5 encoded polyline into points.
func DecodePolyline(encoded string) ([]domain.GeoPoint, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing polyline data (%d bytes)", len(rest))
	}
	points := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		points[i] = domain.GeoPoint{Lat: c[0], Lon: c[1]}
	}
	return points, nil
}

type featureSegment struct {
	Steps []domain.RouteStep `json:"steps"`
}

func decodeGeoJSONRoute(raw []byte) ([]domain.GeoPoint, []domain.RouteStep, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil, err
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range fc.Features {
			if ls, ok := f.Geometry.(orb.LineString); ok {
				return lineStringPoints(ls), featureSteps(f), nil
			}
		}
		return nil, nil, errors.New("no LineString feature")
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, nil, err
		}
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported geometry %s", f.Geometry.GeoJSONType())
		}
		return lineStringPoints(ls), featureSteps(f), nil
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, nil, err
		}
		ls, ok := g.Geometry().(orb.LineString)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported geometry %s", probe.Type)
		}
		return lineStringPoints(ls), nil, nil
	}
}

func lineStringPoints(ls orb.LineString) []domain.GeoPoint {
	points := make([]domain.GeoPoint, len(ls))
	for i, pt := range ls {
		points[i] = domain.GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()}
	}
	return points
}

// featureSteps reads routing-engine step annotations from
// properties.segments[].steps[].
func featureSteps(f *geojson.Feature) []domain.RouteStep {
	raw, ok := f.Properties["segments"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var segments []featureSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil
	}
	var steps []domain.RouteStep
	for _, seg := range segments {
		steps = append(steps, seg.Steps...)
	}
	return steps
}

// deviceNumber parses a numeric device id already checked by the validator.
func deviceNumber(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}
