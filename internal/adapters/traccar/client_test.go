package traccar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Username: "fleet", Password: "secret"})
}

func TestDevicePositions_SendsAuthAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "fleet" || pass != "secret" {
			t.Errorf("expected basic auth fleet/secret, got %q/%q (%v)", user, pass, ok)
		}
		if r.URL.Path != "/api/positions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("deviceId"); got != "7" {
			t.Errorf("expected deviceId=7, got %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":1,"deviceId":7,"latitude":36.8,"longitude":10.1,"speed":12.5}]`))
	})

	positions, err := c.DevicePositions(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].DeviceID != 7 || positions[0].Latitude != 36.8 {
		t.Errorf("unexpected position %+v", positions[0])
	}
}

func TestDo_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.LatestPositions(context.Background())
	var statusErr *domain.UpstreamStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UpstreamStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", statusErr.StatusCode)
	}
	if statusErr.Status != "Internal Server Error" {
		t.Errorf("unexpected status text %q", statusErr.Status)
	}
}

func TestDo_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	})

	_, err := c.Devices(context.Background())
	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestRouteReport_EmptyIsNoData(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/route" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("from") != "2024-05-01T00:00:00Z" || q.Get("to") != "2024-05-02T00:00:00Z" {
			t.Errorf("unexpected range %s..%s", q.Get("from"), q.Get("to"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected JSON accept header, got %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.RouteReport(context.Background(), 3, from, to)
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestCreateDevice_PostsPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/devices" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["name"] != "Truck 1" || body["uniqueId"] != "12345678" {
			t.Errorf("unexpected payload %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"name":"Truck 1","uniqueId":"12345678"}`))
	})

	d, err := c.CreateDevice(context.Background(), "Truck 1", "12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != 42 {
		t.Errorf("expected id 42, got %d", d.ID)
	}
}

func TestDevice_Path(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/devices/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":9,"name":"Van","positionId":100,"lastUpdate":"2024-05-01T10:00:00Z"}`))
	})

	d, err := c.Device(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.PositionID != 100 || d.LastUpdate == nil {
		t.Errorf("unexpected device %+v", d)
	}
}
