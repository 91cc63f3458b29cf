package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/usecases"
)

func newViewService(t *testing.T, tracking *mockTracking) *usecases.ViewService {
	t.Helper()
	if tracking == nil {
		tracking = &mockTracking{}
	}
	partners := usecases.NewPartnerService(&mockPartnerRepo{}, nil)
	svc := usecases.NewViewService(testSettings(), partners, tracking, nil)
	t.Cleanup(svc.CloseAll)
	return svc
}

func TestViewService_OpenEveryKind(t *testing.T) {
	svc := newViewService(t, nil)

	payloads := map[string]string{
		usecases.KindClientMap:      `{}`,
		usecases.KindClientPosition: `{"partner_id":3}`,
		usecases.KindLiveTracking:   `{"device_id":"12"}`,
		usecases.KindTrackHistory:   `{"device_id":"12","period":"today"}`,
		usecases.KindRoutePlan:      `{"origin":[10.1,36.8],"route_geometry":{"type":"LineString","coordinates":[[10.1,36.8],[10.2,36.9]]}}`,
	}
	for kind, raw := range payloads {
		v, err := svc.Open(context.Background(), kind, []byte(raw))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if v.Kind() != kind || v.ID() == "" {
			t.Errorf("%s: unexpected view %s/%s", kind, v.ID(), v.Kind())
		}
		if c := v.Snapshot().Container; c != "map" {
			t.Errorf("%s: expected default container, got %q", kind, c)
		}
	}

	views := svc.List()
	if len(views) != len(payloads) {
		t.Fatalf("expected %d views, got %d", len(payloads), len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i-1].ID() > views[i].ID() {
			t.Error("List must be ordered by id")
		}
	}
}

func TestViewService_InvalidParams(t *testing.T) {
	svc := newViewService(t, nil)

	tests := []struct {
		kind  string
		raw   string
		field string
	}{
		{usecases.KindClientPosition, `{}`, "partner_id (required)"},
		{usecases.KindClientPosition, `{"partner_id":1,"latitude":95}`, "latitude (latitude)"},
		{usecases.KindLiveTracking, `{"device_id":"abc"}`, "device_id (numeric)"},
		{usecases.KindTrackHistory, `{"device_id":"1","period":"forever"}`, "period (oneof)"},
		{usecases.KindTrackHistory, `{"device_id":"1","period":"custom","date_from":"yesterday"}`, "date_from (datetime)"},
		{usecases.KindTrackHistory, `{"device_id":"1","date_from":"2026-03-02","date_to":"2026-03-01"}`, "date_from (before date_to)"},
		{usecases.KindRoutePlan, `{"origin":[10.1],"route_geometry":"abc"}`, "origin (len)"},
		{usecases.KindRoutePlan, `{"origin":[200,36.8],"route_geometry":"_p~iF~ps|U"}`, "origin (coordinates)"},
		{usecases.KindRoutePlan, `{"origin":[10.1,36.8],"route_geometry":{"type":"Point","coordinates":[10.1,36.8]}}`, "route_geometry"},
		{"heatmap", `{}`, "kind (unknown)"},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.field, func(t *testing.T) {
			_, err := svc.Open(context.Background(), tt.kind, []byte(tt.raw))
			var perr *domain.ParamError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParamError, got %v", err)
			}
			found := false
			for _, f := range perr.Fields {
				if strings.HasPrefix(f, tt.field) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field %q in %v", tt.field, perr.Fields)
			}
		})
	}
	if n := len(svc.List()); n != 0 {
		t.Errorf("invalid views must not be registered, got %d", n)
	}
}

func TestViewService_HistoryPeriodUsesClock(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	var gotFrom, gotTo time.Time
	svc := newViewService(t, &mockTracking{
		reportFn: func(ctx context.Context, deviceID int64, from, to time.Time) ([]domain.Position, error) {
			gotFrom, gotTo = from, to
			return nil, domain.ErrNoData
		},
	})
	svc.SetClock(func() time.Time { return now })

	if _, err := svc.Open(context.Background(), usecases.KindTrackHistory, []byte(`{"device_id":"4","period":"yesterday"}`)); err != nil {
		t.Fatal(err)
	}
	wantFrom := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	if !gotFrom.Equal(wantFrom) || gotTo.Day() != 17 || gotTo.Hour() != 23 {
		t.Errorf("unexpected range %v - %v", gotFrom, gotTo)
	}
}

func TestViewService_CloseAndLookup(t *testing.T) {
	svc := newViewService(t, nil)
	v, err := svc.Open(context.Background(), usecases.KindClientMap, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(v.ID()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if queued, err := svc.Trigger(v.ID()); err != nil || !queued {
		t.Errorf("Trigger = %v, %v", queued, err)
	}
	if err := svc.Close(v.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(v.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after close, got %v", err)
	}
	if err := svc.Close(v.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second close, got %v", err)
	}
	if _, err := svc.Trigger("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestViewService_EditableOnly(t *testing.T) {
	svc := newViewService(t, nil)
	v, err := svc.Open(context.Background(), usecases.KindClientMap, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Move(v.ID(), 1, 2); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if err := svc.Save(context.Background(), v.ID()); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	p, err := svc.Open(context.Background(), usecases.KindClientPosition, []byte(`{"partner_id":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Move(p.ID(), 35, 10); err != nil {
		t.Errorf("Move: %v", err)
	}
	if err := svc.Save(context.Background(), p.ID()); err != nil {
		t.Errorf("Save: %v", err)
	}
}

func TestViewService_CloseAllStopsViews(t *testing.T) {
	svc := newViewService(t, nil)
	for i := 0; i < 3; i++ {
		if _, err := svc.Open(context.Background(), usecases.KindClientMap, nil); err != nil {
			t.Fatal(err)
		}
	}
	svc.CloseAll()
	if n := len(svc.List()); n != 0 {
		t.Errorf("expected no views after CloseAll, got %d", n)
	}
}

func TestViewService_OpenCancelledContext(t *testing.T) {
	svc := newViewService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Open(ctx, usecases.KindClientMap, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
