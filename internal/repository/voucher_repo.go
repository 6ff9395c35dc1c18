package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/rental"
	"github.com/obralink/vales/pkg/database"
)

// VoucherRepository handles voucher and detail persistence.
type VoucherRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *database.DB, logger *zap.Logger) *VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a voucher and its detail record in one transaction. A
// voucher is never persisted without its detail; if either insert fails,
// neither is applied.
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail) error {
	if (rd == nil) == (md == nil) {
		return fmt.Errorf("create voucher %s: exactly one detail record is required", v.Folio)
	}

	return r.db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vouchers (
				id, folio, site_id, voucher_type, state,
				operator_name, vehicle_plate, notes, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Folio, v.SiteID, string(v.Type), v.State,
			v.OperatorName, v.VehiclePlate, v.Notes, v.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to insert voucher", zap.String("folio", v.Folio), zap.Error(err))
			return fmt.Errorf("failed to insert voucher: %w", err)
		}

		if rd != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO rental_details (
					id, voucher_id, start_time, end_time, hours, days,
					trip_count, hourly_tariff, daily_tariff, capacity, material, union_ref
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, rd.ID, v.ID, rd.StartTime, rd.EndTime, rd.Hours, rd.Days,
				rd.TripCount, rd.HourlyTariff, rd.DailyTariff, rd.Capacity, rd.Material, rd.UnionRef)
			if err != nil {
				return fmt.Errorf("failed to insert rental detail: %w", err)
			}
			rd.VoucherID = v.ID
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO material_details (id, voucher_id, volume, capacity, distance, weight)
			VALUES (?, ?, ?, ?, ?, ?)
		`, md.ID, v.ID, md.Volume, md.Capacity, md.Distance, md.Weight)
		if err != nil {
			return fmt.Errorf("failed to insert material detail: %w", err)
		}
		md.VoucherID = v.ID
		return nil
	})
}

// GetByID retrieves a voucher by its record id, nil when absent
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*entity.Voucher, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByFolio retrieves a voucher by folio, nil when absent
func (r *VoucherRepository) GetByFolio(ctx context.Context, folio string) (*entity.Voucher, error) {
	return r.getOne(ctx, "folio = ?", folio)
}

func (r *VoucherRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Voucher, error) {
	query := fmt.Sprintf(`
		SELECT id, folio, site_id, voucher_type, state,
			operator_name, vehicle_plate, notes, created_at
		FROM vouchers
		WHERE %s
	`, where)

	var v entity.Voucher
	var voucherType string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&v.ID, &v.Folio, &v.SiteID, &voucherType, &v.State,
		&v.OperatorName, &v.VehiclePlate, &v.Notes, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher", zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	v.Type = entity.VoucherType(voucherType)
	return &v, nil
}

// GetRentalDetail retrieves the rental detail of a voucher, nil when absent
func (r *VoucherRepository) GetRentalDetail(ctx context.Context, voucherID int64) (*entity.RentalDetail, error) {
	query := `
		SELECT id, voucher_id, start_time, end_time, hours, days,
			trip_count, hourly_tariff, daily_tariff, capacity, material, union_ref
		FROM rental_details
		WHERE voucher_id = ?
	`

	var d entity.RentalDetail
	var startTime, endTime sql.NullTime
	err := r.db.QueryRowContext(ctx, query, voucherID).Scan(
		&d.ID, &d.VoucherID, &startTime, &endTime, &d.Hours, &d.Days,
		&d.TripCount, &d.HourlyTariff, &d.DailyTariff, &d.Capacity, &d.Material, &d.UnionRef,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rental detail: %w", err)
	}

	if startTime.Valid {
		d.StartTime = &startTime.Time
	}
	if endTime.Valid {
		d.EndTime = &endTime.Time
	}
	return &d, nil
}

// GetMaterialDetail retrieves the material detail of a voucher, nil when absent
func (r *VoucherRepository) GetMaterialDetail(ctx context.Context, voucherID int64) (*entity.MaterialDetail, error) {
	query := `
		SELECT id, voucher_id, volume, capacity, distance, weight
		FROM material_details
		WHERE voucher_id = ?
	`

	var d entity.MaterialDetail
	var weight sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, voucherID).Scan(
		&d.ID, &d.VoucherID, &d.Volume, &d.Capacity, &d.Distance, &weight,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material detail: %w", err)
	}

	if weight.Valid {
		d.Weight = &weight.Float64
	}
	return &d, nil
}

// CloseRental writes the closure quantities and the state advance as one
// logical operation: if either update fails, neither is applied.
func (r *VoucherRepository) CloseRental(ctx context.Context, voucherID int64, c rental.Closure, newState string) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE rental_details
			SET end_time = ?, hours = ?, days = ?
			WHERE voucher_id = ?
		`, c.EndTime, c.Hours, c.Days, voucherID)
		if err != nil {
			return fmt.Errorf("failed to update rental detail: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("no rental detail for voucher %d", voucherID)
		}

		_, err = tx.ExecContext(ctx, `UPDATE vouchers SET state = ? WHERE id = ?`, newState, voucherID)
		if err != nil {
			return fmt.Errorf("failed to update voucher state: %w", err)
		}
		return nil
	})
}

// UpdateState advances only the voucher state
func (r *VoucherRepository) UpdateState(ctx context.Context, voucherID int64, state string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE vouchers SET state = ? WHERE id = ?`, state, voucherID)
	if err != nil {
		r.logger.Error("Failed to update voucher state",
			zap.Int64("voucher_id", voucherID),
			zap.String("state", state),
			zap.Error(err))
		return fmt.Errorf("failed to update voucher state: %w", err)
	}
	return nil
}

// UpdateMaterialWeight records a weight that arrived after issuance
func (r *VoucherRepository) UpdateMaterialWeight(ctx context.Context, voucherID int64, weight float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE material_details SET weight = ? WHERE voucher_id = ?`, weight, voucherID)
	if err != nil {
		return fmt.Errorf("failed to update material weight: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no material detail for voucher %d", voucherID)
	}
	return nil
}

// MaxFolio returns the highest folio for the exact prefix, "" when none exists.
// Implements folio.Lookup.
func (r *VoucherRepository) MaxFolio(ctx context.Context, prefix string) (string, error) {
	query := `
		SELECT folio
		FROM vouchers
		WHERE folio LIKE ? ESCAPE '\'
		ORDER BY folio DESC
		LIMIT 1
	`

	var folio string
	err := r.db.QueryRowContext(ctx, query, escapeLike(prefix)+"%").Scan(&folio)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query max folio: %w", err)
	}
	return folio, nil
}

// FolioExists reports whether the exact folio is taken. Implements folio.Lookup.
func (r *VoucherRepository) FolioExists(ctx context.Context, folio string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM vouchers WHERE folio = ?`, folio).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check folio existence: %w", err)
	}
	return true, nil
}

// ListBySite returns the vouchers of a site ordered by folio
func (r *VoucherRepository) ListBySite(ctx context.Context, siteID string) ([]*entity.Voucher, error) {
	query := `
		SELECT id, folio, site_id, voucher_type, state,
			operator_name, vehicle_plate, notes, created_at
		FROM vouchers
		WHERE site_id = ?
		ORDER BY folio
	`

	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*entity.Voucher
	for rows.Next() {
		var v entity.Voucher
		var voucherType string
		if err := rows.Scan(
			&v.ID, &v.Folio, &v.SiteID, &voucherType, &v.State,
			&v.OperatorName, &v.VehiclePlate, &v.Notes, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		v.Type = entity.VoucherType(voucherType)
		vouchers = append(vouchers, &v)
	}
	return vouchers, rows.Err()
}

// escapeLike escapes LIKE wildcards in a literal prefix
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
