package issuance

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/repository"
)

type stubFolioSource struct{ next string }

func (s stubFolioSource) NextFolio(ctx context.Context, prefix string) string { return s.next }

type stubIDSource struct{ id int64 }

func (s *stubIDSource) NextID() int64 {
	s.id++
	return s.id
}

type stubTariffCatalog struct {
	tariff *repository.Tariff
	err    error
}

func (s stubTariffCatalog) Get(ctx context.Context, siteID, capacity string) (*repository.Tariff, error) {
	return s.tariff, s.err
}

type captureStore struct {
	voucher  *entity.Voucher
	rental   *entity.RentalDetail
	material *entity.MaterialDetail
	err      error
}

func (s *captureStore) Create(ctx context.Context, v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail) error {
	s.voucher, s.rental, s.material = v, rd, md
	return s.err
}

func TestRegister_RentalSnapshotsTariff(t *testing.T) {
	store := &captureStore{}
	r := NewRegistrar(
		stubFolioSource{next: "CD-140-00042"},
		&stubIDSource{},
		stubTariffCatalog{tariff: &repository.Tariff{SiteID: "OBRA-140", Hourly: 350, Daily: 2800}},
		store,
		zap.NewNop(),
	)

	start := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	v, err := r.Register(context.Background(), NewVoucherInput{
		Type:        entity.VoucherTypeRental,
		SiteID:      "OBRA-140",
		FolioPrefix: "CD-140-",
		StartTime:   &start,
		Capacity:    "14m3",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if v.Folio != "CD-140-00042" {
		t.Errorf("Folio = %q", v.Folio)
	}
	if v.State != "DRAFT" {
		t.Errorf("State = %q, want DRAFT", v.State)
	}
	if store.rental == nil || store.material != nil {
		t.Fatal("rental voucher must persist exactly a rental detail")
	}
	if store.rental.HourlyTariff != 350 || store.rental.DailyTariff != 2800 {
		t.Errorf("tariff snapshot = %v/%v, want 350/2800", store.rental.HourlyTariff, store.rental.DailyTariff)
	}
	if store.rental.TripCount != 1 {
		t.Errorf("TripCount = %d, want default 1", store.rental.TripCount)
	}
}

func TestRegister_RentalWithoutTariffRejected(t *testing.T) {
	r := NewRegistrar(
		stubFolioSource{next: "CD-140-00001"},
		&stubIDSource{},
		stubTariffCatalog{},
		&captureStore{},
		zap.NewNop(),
	)

	_, err := r.Register(context.Background(), NewVoucherInput{
		Type:   entity.VoucherTypeRental,
		SiteID: "OBRA-999",
	})
	if err == nil {
		t.Fatal("Register() must fail when the site has no tariff")
	}
}

func TestRegister_Material(t *testing.T) {
	store := &captureStore{}
	r := NewRegistrar(stubFolioSource{next: "CD-140-00002"}, &stubIDSource{}, stubTariffCatalog{}, store, zap.NewNop())

	_, err := r.Register(context.Background(), NewVoucherInput{
		Type:     entity.VoucherTypeMaterial,
		SiteID:   "OBRA-140",
		Volume:   7,
		Distance: 12.5,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if store.material == nil || store.rental != nil {
		t.Fatal("material voucher must persist exactly a material detail")
	}
	if store.material.Weight != nil {
		t.Error("weight must start unset")
	}
}

func TestRegister_PersistFailure(t *testing.T) {
	store := &captureStore{err: errors.New("locked")}
	r := NewRegistrar(stubFolioSource{next: "CD-140-00003"}, &stubIDSource{}, stubTariffCatalog{}, store, zap.NewNop())

	_, err := r.Register(context.Background(), NewVoucherInput{
		Type:   entity.VoucherTypeMaterial,
		SiteID: "OBRA-140",
	})
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Errorf("Register() error = %v, want ErrPersistenceFailed", err)
	}
}

func TestRegister_UnknownType(t *testing.T) {
	r := NewRegistrar(stubFolioSource{}, &stubIDSource{}, stubTariffCatalog{}, &captureStore{}, zap.NewNop())
	if _, err := r.Register(context.Background(), NewVoucherInput{Type: "fuel"}); err == nil {
		t.Error("Register() must reject unknown voucher types")
	}
}
