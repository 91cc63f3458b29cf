package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

var _ ports.PartnerRepository = (*PartnerRepo)(nil)

// PartnerRepo implements ports.PartnerRepository with pgx.
type PartnerRepo struct {
	db *DB
}

// NewPartnerRepo creates a new PartnerRepo.
func NewPartnerRepo(db *DB) *PartnerRepo {
	return &PartnerRepo{db: db}
}

// ListWithLocation returns partners whose latitude and longitude are both set.
func (r *PartnerRepo) ListWithLocation(ctx context.Context) ([]domain.Partner, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(street, ''), latitude, longitude
		FROM partners
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []domain.Partner
	for rows.Next() {
		var p domain.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Street, &p.Latitude, &p.Longitude); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// GetByID returns a partner by id.
func (r *PartnerRepo) GetByID(ctx context.Context, id int64) (*domain.Partner, error) {
	var p domain.Partner
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(street, ''), latitude, longitude
		FROM partners WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Street, &p.Latitude, &p.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateLocation sets the coordinates of a partner.
func (r *PartnerRepo) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE partners SET latitude = $2, longitude = $3, updated_at = NOW()
		WHERE id = $1
	`, id, lat, lon)
	if err != nil {
		return fmt.Errorf("update partner %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
