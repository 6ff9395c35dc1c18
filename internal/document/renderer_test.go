package document

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/rental"
)

func testQRPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testRentalVoucher() (*entity.Voucher, *entity.RentalDetail) {
	start := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 12, 10, 30, 0, 0, time.UTC)
	v := &entity.Voucher{
		ID:           1,
		Folio:        "CD-140-00001",
		SiteID:       "Cumbres del Sol",
		Type:         entity.VoucherTypeRental,
		State:        "COMPLETED",
		OperatorName: "J. Hernández",
		VehiclePlate: "XY-1234-Z",
		CreatedAt:    time.Date(2024, 3, 12, 7, 45, 0, 0, time.UTC),
	}
	rd := &entity.RentalDetail{
		VoucherID:    1,
		StartTime:    &start,
		EndTime:      &end,
		Hours:        2.5,
		TripCount:    3,
		HourlyTariff: 350,
		DailyTariff:  2800,
		Capacity:     "7 m3",
		Material:     "Grava",
	}
	return v, rd
}

func TestRender_Deterministic(t *testing.T) {
	r := NewRenderer("Constructora del Centro", zap.NewNop())
	v, rd := testRentalVoucher()
	qr := testQRPNG(t)

	a, err := r.Render(v, rd, nil, entity.CopyGreen, qr)
	require.NoError(t, err)
	b, err := r.Render(v, rd, nil, entity.CopyGreen, qr)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a.Content, b.Content),
		"same inputs must produce byte-identical documents")
	assert.NotEmpty(t, a.Content)
}

func TestRender_RequiresVerificationImage(t *testing.T) {
	r := NewRenderer("Constructora del Centro", zap.NewNop())
	v, rd := testRentalVoucher()

	_, err := r.Render(v, rd, nil, entity.CopyGreen, nil)
	assert.Error(t, err)
}

func TestRender_CopiesDiffer(t *testing.T) {
	r := NewRenderer("Constructora del Centro", zap.NewNop())
	v, rd := testRentalVoucher()
	qr := testQRPNG(t)

	green, err := r.Render(v, rd, nil, entity.CopyGreen, qr)
	require.NoError(t, err)
	pink, err := r.Render(v, rd, nil, entity.CopyPink, qr)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(green.Content, pink.Content),
		"different copies must carry different tint and label")
}

func TestFilename(t *testing.T) {
	tests := []struct {
		copyColor entity.CopyColor
		want      string
	}{
		{entity.CopyGreen, "CD-140-00001_BancodeMaterial.pdf"},
		{entity.CopyWhite, "CD-140-00001_Operador.pdf"},
		{entity.CopyColor("magenta"), "CD-140-00001_Operador.pdf"},
	}

	for _, tt := range tests {
		t.Run(string(tt.copyColor), func(t *testing.T) {
			assert.Equal(t, tt.want, Filename("CD-140-00001", tt.copyColor))
		})
	}
}

func TestDetailLines_RentalSubtotalMatchesCalculator(t *testing.T) {
	v, rd := testRentalVoucher()

	lines := detailLines(v, rd, nil)

	want := fmt.Sprintf("$%.2f", rental.Subtotal(rd))
	assert.Equal(t, "$875.00", want)

	var got string
	for _, l := range lines {
		if l.label == "Subtotal:" {
			got = l.value
		}
	}
	assert.Equal(t, want, got, "renderer subtotal must come from rental.Subtotal")
}

func TestDetailLines_DayClosedRental(t *testing.T) {
	v, rd := testRentalVoucher()
	rd.EndTime = nil
	rd.Hours = 0
	rd.Days = 1

	lines := detailLines(v, rd, nil)

	var subtotal, hours string
	for _, l := range lines {
		switch l.label {
		case "Subtotal:":
			subtotal = l.value
		case "Horas:":
			hours = l.value
		}
	}
	assert.Equal(t, "$2800.00", subtotal, "day closure bills the daily tariff exactly once")
	assert.Empty(t, hours, "day closure must not print an hours row")
}

func TestDetailLines_MaterialPendingWeight(t *testing.T) {
	v := &entity.Voucher{Type: entity.VoucherTypeMaterial, Folio: "CD-140-00002"}
	md := &entity.MaterialDetail{Volume: 7, Capacity: "7 m3", Distance: 12.5}

	lines := detailLines(v, nil, md)

	var weight string
	for _, l := range lines {
		if l.label == "Peso:" {
			weight = l.value
		}
	}
	assert.Equal(t, "PENDIENTE", weight)

	w := 6.35
	md.Weight = &w
	lines = detailLines(v, nil, md)
	for _, l := range lines {
		if l.label == "Peso:" {
			weight = l.value
		}
	}
	assert.Equal(t, "6.35 t", weight)
}

func TestInspector_ConfirmFolio(t *testing.T) {
	r := NewRenderer("Constructora del Centro", zap.NewNop())
	v, rd := testRentalVoucher()

	artifact, err := r.Render(v, rd, nil, entity.CopyWhite, testQRPNG(t))
	require.NoError(t, err)

	inspector := NewInspector(zap.NewNop())
	assert.NoError(t, inspector.ConfirmFolio(artifact, v.Folio))
	assert.Error(t, inspector.ConfirmFolio(artifact, "CD-140-09999"))
}
