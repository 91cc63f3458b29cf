package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
)

const (
	partnersCacheKey = "partners:located"
	partnersCacheTTL = 5 // seconds, shorter than the client map refresh
)

// PartnerService handles client location reads and edits.
type PartnerService struct {
	partners ports.PartnerRepository
	cache    ports.CacheService
}

// NewPartnerService creates a new PartnerService. cache may be nil.
func NewPartnerService(partners ports.PartnerRepository, cache ports.CacheService) *PartnerService {
	return &PartnerService{partners: partners, cache: cache}
}

// ListWithLocation returns every partner that has both coordinates set.
func (s *PartnerService) ListWithLocation(ctx context.Context) ([]domain.Partner, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, partnersCacheKey); err == nil {
			var partners []domain.Partner
			if err := json.Unmarshal(data, &partners); err == nil {
				metrics.CacheHits.WithLabelValues("partners_located").Inc()
				return partners, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("partners_located").Inc()
	}

	partners, err := s.partners.ListWithLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(partners); err == nil {
			_ = s.cache.Set(ctx, partnersCacheKey, data, partnersCacheTTL)
		}
	}

	return partners, nil
}

// GetByID returns a single partner.
func (s *PartnerService) GetByID(ctx context.Context, id int64) (*domain.Partner, error) {
	return s.partners.GetByID(ctx, id)
}

// UpdateLocation stores a new coordinate on a partner and drops the
// cached list. Returns *domain.ParamError for a bad id or coordinate and
// domain.ErrNotFound for an unknown partner.
func (s *PartnerService) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	var fields []string
	if id <= 0 {
		fields = append(fields, "partner_id (gt=0)")
	}
	if !(domain.GeoPoint{Lat: lat, Lon: lon}).Valid() {
		fields = append(fields, "latitude/longitude (coordinates)")
	}
	if len(fields) > 0 {
		return &domain.ParamError{Kind: "partner", Fields: fields}
	}

	if err := s.partners.UpdateLocation(ctx, id, lat, lon); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, partnersCacheKey)
	}
	return nil
}
