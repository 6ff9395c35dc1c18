package issuance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/domain/workflow"
	"github.com/obralink/vales/internal/repository"
)

// FolioSource assigns the next folio for a prefix
type FolioSource interface {
	NextFolio(ctx context.Context, prefix string) string
}

// IDSource mints opaque record ids
type IDSource interface {
	NextID() int64
}

// TariffCatalog resolves the rate pair snapshotted onto new rentals
type TariffCatalog interface {
	Get(ctx context.Context, siteID, capacity string) (*repository.Tariff, error)
}

// CreationStore persists a voucher with its detail atomically
type CreationStore interface {
	Create(ctx context.Context, v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail) error
}

// NewVoucherInput carries the capture fields of a new vale.
type NewVoucherInput struct {
	Type         entity.VoucherType
	SiteID       string
	FolioPrefix  string
	OperatorName string
	VehiclePlate string
	Notes        string

	// Rental fields
	StartTime *time.Time
	TripCount int
	Capacity  string
	Material  string
	UnionRef  string

	// Material fields
	Volume   float64
	Distance float64
}

// Registrar creates vouchers: assigns the folio, snapshots the tariff and
// writes the voucher with its detail in one transaction.
type Registrar struct {
	folios  FolioSource
	ids     IDSource
	tariffs TariffCatalog
	store   CreationStore
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistrar creates a voucher registrar
func NewRegistrar(folios FolioSource, ids IDSource, tariffs TariffCatalog, store CreationStore, logger *zap.Logger) *Registrar {
	return &Registrar{
		folios:  folios,
		ids:     ids,
		tariffs: tariffs,
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

// Register creates the voucher in DRAFT state and returns it hydrated.
func (r *Registrar) Register(ctx context.Context, in NewVoucherInput) (*entity.Voucher, error) {
	if !in.Type.IsValid() {
		return nil, fmt.Errorf("unknown voucher type %q", in.Type)
	}

	voucher := &entity.Voucher{
		ID:           r.ids.NextID(),
		Folio:        r.folios.NextFolio(ctx, in.FolioPrefix),
		SiteID:       in.SiteID,
		Type:         in.Type,
		State:        workflow.StateDraft.String(),
		OperatorName: in.OperatorName,
		VehiclePlate: in.VehiclePlate,
		Notes:        in.Notes,
		CreatedAt:    r.now().UTC(),
	}

	var rentalDetail *entity.RentalDetail
	var materialDetail *entity.MaterialDetail
	switch in.Type {
	case entity.VoucherTypeRental:
		tariff, err := r.tariffs.Get(ctx, in.SiteID, in.Capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		if tariff == nil {
			return nil, fmt.Errorf("no tariff configured for site %s", in.SiteID)
		}

		tripCount := in.TripCount
		if tripCount < 1 {
			tripCount = 1
		}
		rentalDetail = &entity.RentalDetail{
			ID:           r.ids.NextID(),
			StartTime:    in.StartTime,
			TripCount:    tripCount,
			HourlyTariff: tariff.Hourly,
			DailyTariff:  tariff.Daily,
			Capacity:     in.Capacity,
			Material:     in.Material,
			UnionRef:     in.UnionRef,
		}
	case entity.VoucherTypeMaterial:
		materialDetail = &entity.MaterialDetail{
			ID:       r.ids.NextID(),
			Volume:   in.Volume,
			Capacity: in.Capacity,
			Distance: in.Distance,
		}
	}

	if err := r.store.Create(ctx, voucher, rentalDetail, materialDetail); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	r.logger.Info("Voucher registered",
		zap.String("folio", voucher.Folio),
		zap.String("type", string(voucher.Type)),
		zap.String("site_id", voucher.SiteID))
	return voucher, nil
}
