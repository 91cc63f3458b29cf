package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
)

// ViewService keeps the running views in memory, keyed by id.
type ViewService struct {
	settings  ViewSettings
	partners  *PartnerService
	tracking  ports.TrackingService
	publisher ports.EventPublisher

	baseCtx context.Context
	cancel  context.CancelFunc

	mu    sync.RWMutex
	views map[string]View

	newID func() string
	now   func() time.Time
}

// NewViewService creates a new ViewService. Views started by it outlive the
// request that opened them and end on Close or CloseAll.
func NewViewService(settings ViewSettings, partners *PartnerService, tracking ports.TrackingService, publisher ports.EventPublisher) *ViewService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ViewService{
		settings:  settings,
		partners:  partners,
		tracking:  tracking,
		publisher: publisher,
		baseCtx:   ctx,
		cancel:    cancel,
		views:     make(map[string]View),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Open validates params for kind, starts the view and registers it.
func (s *ViewService) Open(ctx context.Context, kind string, raw json.RawMessage) (View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view, err := s.build(kind, raw)
	if err != nil {
		var perr *domain.ParamError
		if errors.As(err, &perr) {
			slog.WarnContext(ctx, "invalid view parameters", "kind", kind, "fields", perr.Fields)
		}
		return nil, err
	}

	if err := view.Start(s.baseCtx); err != nil {
		view.Stop()
		return nil, fmt.Errorf("start %s view: %w", kind, err)
	}

	s.mu.Lock()
	s.views[view.ID()] = view
	s.mu.Unlock()
	metrics.ActiveViews.WithLabelValues(kind).Inc()

	slog.InfoContext(ctx, "view opened", "view_id", view.ID(), "kind", kind)
	return view, nil
}

func (s *ViewService) build(kind string, raw json.RawMessage) (View, error) {
	id := s.newID()

	switch kind {
	case KindClientMap:
		var p ClientMapParams
		if err := decodeParams(kind, raw, &p); err != nil {
			return nil, err
		}
		return NewClientMapView(id, p, s.settings, s.partners, s.publisher), nil

	case KindClientPosition:
		var p ClientPositionParams
		if err := decodeParams(kind, raw, &p); err != nil {
			return nil, err
		}
		return NewClientPositionView(id, p, s.settings, s.partners, s.publisher), nil

	case KindLiveTracking:
		var p LiveTrackingParams
		if err := decodeParams(kind, raw, &p); err != nil {
			return nil, err
		}
		return NewLiveTrackingView(id, p, s.settings, s.tracking, s.publisher), nil

	case KindTrackHistory:
		var p TrackHistoryParams
		if err := decodeParams(kind, raw, &p); err != nil {
			return nil, err
		}
		if err := p.resolve(s.now()); err != nil {
			return nil, err
		}
		return NewTrackHistoryView(id, p, s.settings, s.tracking, s.publisher), nil

	case KindRoutePlan:
		var p RoutePlanParams
		if err := decodeParams(kind, raw, &p); err != nil {
			return nil, err
		}
		origin, err := p.originPoint()
		if err != nil {
			return nil, err
		}
		route, err := p.route()
		if err != nil {
			return nil, err
		}
		return NewRoutePlanView(id, p.Container, route, origin, s.settings, s.publisher), nil

	default:
		return nil, &domain.ParamError{Kind: kind, Fields: []string{"kind (unknown)"}}
	}
}

// Get returns a running view.
func (s *ViewService) Get(id string) (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

// List returns the running views ordered by id.
func (s *ViewService) List() []View {
	s.mu.RLock()
	out := make([]View, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close stops a view and forgets it.
func (s *ViewService) Close(id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	v.Stop()
	metrics.ActiveViews.WithLabelValues(v.Kind()).Dec()
	return nil
}

// CloseAll stops every view. Used on shutdown.
func (s *ViewService) CloseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]View)
	s.mu.Unlock()

	for _, v := range views {
		v.Stop()
		metrics.ActiveViews.WithLabelValues(v.Kind()).Dec()
	}
	s.cancel()
}

// Trigger requests a manual refresh. It reports false when a refresh was
// already pending.
func (s *ViewService) Trigger(id string) (bool, error) {
	v, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return v.Trigger(), nil
}

// Move places the marker of an editable view.
func (s *ViewService) Move(id string, lat, lon float64) error {
	e, err := s.editable(id)
	if err != nil {
		return err
	}
	return e.Move(lat, lon)
}

// Save persists the marker of an editable view.
func (s *ViewService) Save(ctx context.Context, id string) error {
	e, err := s.editable(id)
	if err != nil {
		return err
	}
	return e.Save(ctx)
}

func (s *ViewService) editable(id string) (Editable, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	e, ok := v.(Editable)
	if !ok {
		return nil, domain.ErrUnsupported
	}
	return e, nil
}
