// Package export produces the site ledger workbook handed to the
// administration office.
package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/rental"
)

const ledgerSheet = "Vales"

// LedgerStore is the data surface the exporter reads from.
type LedgerStore interface {
	ListBySite(ctx context.Context, siteID string) ([]*entity.Voucher, error)
	GetRentalDetail(ctx context.Context, voucherID int64) (*entity.RentalDetail, error)
	GetMaterialDetail(ctx context.Context, voucherID int64) (*entity.MaterialDetail, error)
}

// LedgerExporter renders a site's vouchers into an XLSX ledger.
type LedgerExporter struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewLedgerExporter creates a ledger exporter
func NewLedgerExporter(store LedgerStore, logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{
		store:  store,
		logger: logger,
	}
}

// Export builds the ledger workbook for one site. Vouchers come out ordered
// by folio; the subtotal column uses the same formula as the printed copy.
func (e *LedgerExporter) Export(ctx context.Context, siteID string) ([]byte, error) {
	vouchers, err := e.store.ListBySite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list site vouchers: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", ledgerSheet)
	if err := e.writeHeader(f); err != nil {
		return nil, err
	}

	for i, v := range vouchers {
		row := i + 2
		if err := e.writeRow(ctx, f, row, v); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Ledger exported",
		zap.String("site_id", siteID),
		zap.Int("vouchers", len(vouchers)))
	return buf.Bytes(), nil
}

func (e *LedgerExporter) writeHeader(f *excelize.File) error {
	headers := []string{
		"Folio", "Tipo", "Estado", "Operador", "Placas",
		"Fecha", "Horas", "Días", "Peso (ton)", "Subtotal",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ledgerSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	return f.SetCellStyle(ledgerSheet, "A1", "J1", style)
}

func (e *LedgerExporter) writeRow(ctx context.Context, f *excelize.File, row int, v *entity.Voucher) error {
	values := []interface{}{
		v.Folio,
		string(v.Type),
		v.State,
		v.OperatorName,
		v.VehiclePlate,
		v.CreatedAt.Format("2006-01-02"),
		"", "", "", "",
	}

	switch v.Type {
	case entity.VoucherTypeRental:
		detail, err := e.store.GetRentalDetail(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("failed to load rental detail: %w", err)
		}
		if detail != nil && detail.Closed() {
			values[6] = detail.Hours
			values[7] = detail.Days
			values[9] = rental.Subtotal(detail)
		}
	case entity.VoucherTypeMaterial:
		detail, err := e.store.GetMaterialDetail(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("failed to load material detail: %w", err)
		}
		if detail != nil {
			if detail.Weight != nil {
				values[8] = *detail.Weight
			} else {
				values[8] = "PENDIENTE"
			}
		}
	}

	for i, val := range values {
		if val == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ledgerSheet, cell, val); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	return nil
}

// Filename returns the download name of a site's ledger workbook
func Filename(siteID string) string {
	return fmt.Sprintf("vales_%s.xlsx", siteID)
}
