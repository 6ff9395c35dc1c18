package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/obralink/vales/pkg/database"
)

// Tariff is the hourly/daily rate pair for a site and equipment capacity.
// Rates are snapshotted onto rental details at creation; catalog edits never
// reach an existing voucher.
type Tariff struct {
	SiteID   string
	Capacity string
	Hourly   float64
	Daily    float64
}

// TariffRepository reads the site tariff catalog.
type TariffRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTariffRepository creates a new tariff repository
func NewTariffRepository(db *database.DB, logger *zap.Logger) *TariffRepository {
	return &TariffRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the tariff for a site and capacity, falling back to the site's
// default row (empty capacity) when no exact match exists. Nil when the site
// has no tariffs at all.
func (r *TariffRepository) Get(ctx context.Context, siteID, capacity string) (*Tariff, error) {
	query := `
		SELECT site_id, capacity, hourly_tariff, daily_tariff
		FROM site_tariffs
		WHERE site_id = ? AND capacity IN (?, '')
		ORDER BY capacity DESC
		LIMIT 1
	`

	var t Tariff
	err := r.db.QueryRowContext(ctx, query, siteID, capacity).Scan(
		&t.SiteID, &t.Capacity, &t.Hourly, &t.Daily,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get site tariff",
			zap.String("site_id", siteID),
			zap.String("capacity", capacity),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get site tariff: %w", err)
	}
	return &t, nil
}

// Upsert writes a tariff row, replacing an existing site/capacity pair
func (r *TariffRepository) Upsert(ctx context.Context, t *Tariff) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO site_tariffs (site_id, capacity, hourly_tariff, daily_tariff)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (site_id, capacity) DO UPDATE SET
			hourly_tariff = excluded.hourly_tariff,
			daily_tariff = excluded.daily_tariff
	`, t.SiteID, t.Capacity, t.Hourly, t.Daily)
	if err != nil {
		return fmt.Errorf("failed to upsert site tariff: %w", err)
	}
	return nil
}
