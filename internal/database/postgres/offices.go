package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/geo-attendance/internal/database"
)

// OfficeRepository stores the single active office location
type OfficeRepository struct {
	pool *Pool
}

// NewOfficeRepository creates a new PostgreSQL office repository
func NewOfficeRepository(pool *Pool) *OfficeRepository {
	return &OfficeRepository{pool: pool}
}

// GetOffice returns the active office, or nil if none is configured
func (r *OfficeRepository) GetOffice(ctx context.Context) (*database.StoredOffice, error) {
	query := `
		SELECT id, name, latitude, longitude, radius_meters, created_at
		FROM office_location
		WHERE singleton
	`

	var o database.StoredOffice
	err := r.pool.QueryRow(ctx, query).Scan(
		&o.ID,
		&o.Name,
		&o.Latitude,
		&o.Longitude,
		&o.RadiusMeters,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get office: %w", err)
	}
	return &o, nil
}

// ReplaceOffice replaces the active office. The singleton key makes this a single upsert.
func (r *OfficeRepository) ReplaceOffice(ctx context.Context, office *database.StoredOffice) error {
	query := `
		INSERT INTO office_location (singleton, id, name, latitude, longitude, radius_meters, created_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (singleton) DO UPDATE SET
			id = EXCLUDED.id,
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters,
			created_at = EXCLUDED.created_at
	`

	_, err := r.pool.Exec(ctx, query,
		office.ID, office.Name, office.Latitude, office.Longitude, office.RadiusMeters, office.CreatedAt)
	if err != nil {
		return fmt.Errorf("replace office: %w", err)
	}
	return nil
}
