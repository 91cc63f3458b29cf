// Package traccar is the HTTP client of the external vehicle-tracking
// service (a Traccar server).
package traccar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
)

const serviceName = "traccar"

var _ ports.TrackingService = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client implements ports.TrackingService against the Traccar REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a new Client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// LatestPositions returns the latest position of every device.
func (c *Client) LatestPositions(ctx context.Context) ([]domain.Position, error) {
	var out []domain.Position
	if err := c.do(ctx, http.MethodGet, "/api/positions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DevicePositions returns the latest position of one device.
func (c *Client) DevicePositions(ctx context.Context, deviceID int64) ([]domain.Position, error) {
	q := url.Values{"deviceId": {strconv.FormatInt(deviceID, 10)}}
	var out []domain.Position
	if err := c.do(ctx, http.MethodGet, "/api/positions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RouteReport returns the positions of a device within [from, to].
// An empty report yields domain.ErrNoData.
func (c *Client) RouteReport(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error) {
	q := url.Values{
		"deviceId": {strconv.FormatInt(deviceID, 10)},
		"from":     {from.UTC().Format(time.RFC3339)},
		"to":       {to.UTC().Format(time.RFC3339)},
	}
	var out []domain.Position
	if err := c.do(ctx, http.MethodGet, "/api/reports/route", q, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNoData
	}
	return out, nil
}

// Devices lists the registered devices.
func (c *Client) Devices(ctx context.Context) ([]domain.Device, error) {
	var out []domain.Device
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Device returns one device.
func (c *Client) Device(ctx context.Context, id int64) (*domain.Device, error) {
	var out domain.Device
	if err := c.do(ctx, http.MethodGet, "/api/devices/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDevice registers a device under uniqueID.
func (c *Client) CreateDevice(ctx context.Context, name, uniqueID string) (*domain.Device, error) {
	payload := map[string]string{"name": name, "uniqueId": uniqueID}
	var out domain.Device
	if err := c.do(ctx, http.MethodPost, "/api/devices", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dst any) (err error) {
	endpoint := method + " " + path
	if strings.HasPrefix(path, "/api/devices/") {
		endpoint = method + " /api/devices/:id"
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanTrackingGET)
	span.SetAttributes(attribute.String(telemetry.AttrHTTPPath, endpoint))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.TrackingRequests.WithLabelValues(endpoint, outcome).Inc()
		metrics.TrackingRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		span.End()
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &domain.UpstreamStatusError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &domain.DecodeError{Service: serviceName, Err: err}
	}
	return nil
}

func outcomeOf(err error) string {
	switch err.(type) {
	case *domain.UpstreamStatusError:
		return "status"
	case *domain.DecodeError:
		return "decode"
	default:
		return "transport"
	}
}
