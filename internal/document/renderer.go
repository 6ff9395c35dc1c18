// Package document renders vale vouchers into narrow receipt-format PDF
// copies keyed by copy color.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/rental"
)

// Receipt page geometry in millimeters (80mm thermal-style stock)
const (
	pageWidth  = 80.0
	pageHeight = 220.0
	marginX    = 5.0
	lineHeight = 4.5
	qrSide     = 32.0
)

// Artifact is one rendered copy of a voucher document.
type Artifact struct {
	Filename string
	Content  []byte
	Copy     entity.CopyColor
}

// Renderer turns a voucher snapshot into a printable document. Rendering is
// a pure function of its inputs: every timestamp on the page comes from
// voucher data, never from the wall clock, so identical inputs produce
// byte-identical output.
type Renderer struct {
	issuerName string
	logger     *zap.Logger
}

// NewRenderer creates a renderer stamping the given issuer name on every copy
func NewRenderer(issuerName string, logger *zap.Logger) *Renderer {
	return &Renderer{
		issuerName: issuerName,
		logger:     logger,
	}
}

// line is one printed row of the receipt
type line struct {
	label string
	value string
	bold  bool
}

// Render produces the copy-colored document for the voucher. qrPNG is the
// verification image; it is required, the renderer never substitutes a blank.
func (r *Renderer) Render(v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail, copyColor entity.CopyColor, qrPNG []byte) (*Artifact, error) {
	if len(qrPNG) == 0 {
		return nil, fmt.Errorf("render %s: verification image is required", v.Folio)
	}

	spec := copyColor.Spec()
	if !copyColor.IsKnown() {
		r.logger.Warn("Unknown copy color, falling back to operator copy",
			zap.String("folio", v.Folio),
			zap.String("copy", string(copyColor)))
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	// Fixed creation date keeps renders reproducible
	pdf.SetCreationDate(v.CreatedAt)
	pdf.SetMargins(marginX, marginX, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Background tint for the copy
	pdf.SetFillColor(spec.R, spec.G, spec.B)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")

	usable := pageWidth - 2*marginX

	// Header
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(usable, lineHeight+1, tr(r.issuerName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(usable, lineHeight, tr(documentTitle(v.Type)), "", 1, "C", false, 0, "")
	r.divider(pdf, usable)

	// Identity block
	r.writeLines(pdf, tr, usable, identityLines(v))
	r.divider(pdf, usable)

	// Type-specific detail block
	r.writeLines(pdf, tr, usable, detailLines(v, rd, md))
	r.divider(pdf, usable)

	// Operator / vehicle block
	r.writeLines(pdf, tr, usable, operatorLines(v))
	r.divider(pdf, usable)

	// Verification image, centered
	pdf.RegisterImageOptionsReader("qr-"+v.Folio, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := (pageWidth - qrSide) / 2
	pdf.ImageOptions("qr-"+v.Folio, qrX, pdf.GetY()+1, qrSide, qrSide, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + qrSide + 2)
	pdf.SetFont("Helvetica", "", 6)
	pdf.CellFormat(usable, 3, tr("Escanee para verificar este vale"), "", 1, "C", false, 0, "")

	// Footer: recipient label and issuance timestamp from voucher data
	r.divider(pdf, usable)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(usable, lineHeight, tr(fmt.Sprintf("Copia: %s", spec.Label)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(usable, lineHeight, tr(fmt.Sprintf("Emitido %s", v.CreatedAt.Format("02/01/2006 15:04"))), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", v.Folio, err)
	}

	return &Artifact{
		Filename: Filename(v.Folio, copyColor),
		Content:  buf.Bytes(),
		Copy:     copyColor,
	}, nil
}

// Filename builds the delivery filename contract: <folio>_<CopyLabel>.pdf
func Filename(folio string, copyColor entity.CopyColor) string {
	label := copyColor.Spec().Label
	label = strings.NewReplacer(" ", "", "/", "-").Replace(label)
	return fmt.Sprintf("%s_%s.pdf", folio, label)
}

func (r *Renderer) divider(pdf *gofpdf.Fpdf, usable float64) {
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(usable, 3, strings.Repeat("-", 40), "", 1, "C", false, 0, "")
}

func (r *Renderer) writeLines(pdf *gofpdf.Fpdf, tr func(string) string, usable float64, lines []line) {
	for _, l := range lines {
		style := ""
		if l.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 8)
		if l.label == "" {
			pdf.CellFormat(usable, lineHeight, tr(l.value), "", 1, "L", false, 0, "")
			continue
		}
		pdf.CellFormat(usable*0.45, lineHeight, tr(l.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.55, lineHeight, tr(l.value), "", 1, "R", false, 0, "")
	}
}

func documentTitle(t entity.VoucherType) string {
	if t == entity.VoucherTypeRental {
		return "VALE DE RENTA"
	}
	return "VALE DE MATERIAL"
}

func identityLines(v *entity.Voucher) []line {
	return []line{
		{label: "Folio:", value: v.Folio, bold: true},
		{label: "Fecha:", value: v.CreatedAt.Format("02/01/2006")},
		{label: "Hora:", value: v.CreatedAt.Format("15:04")},
		{label: "Obra:", value: v.SiteID},
	}
}

// detailLines builds the type-specific block. The rental subtotal comes from
// rental.Subtotal, the same implementation the completion calculator uses.
func detailLines(v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail) []line {
	switch {
	case v.Type == entity.VoucherTypeRental && rd != nil:
		lines := []line{
			{label: "Material:", value: rd.Material},
			{label: "Capacidad:", value: rd.Capacity},
			{label: "Viajes:", value: fmt.Sprintf("%d", rd.TripCount)},
		}
		if rd.StartTime != nil {
			lines = append(lines, line{label: "Inicio:", value: rd.StartTime.Format("15:04")})
		}
		if rd.Days > 0 {
			lines = append(lines,
				line{label: "Renta por día:", value: fmt.Sprintf("%d día", rd.Days)},
				line{label: "Tarifa diaria:", value: money(rd.DailyTariff)},
			)
		} else {
			if rd.EndTime != nil {
				lines = append(lines, line{label: "Término:", value: rd.EndTime.Format("15:04")})
			}
			lines = append(lines,
				line{label: "Horas:", value: fmt.Sprintf("%.2f", rd.Hours)},
				line{label: "Tarifa por hora:", value: money(rd.HourlyTariff)},
			)
		}
		lines = append(lines, line{label: "Subtotal:", value: money(rental.Subtotal(rd)), bold: true})
		if rd.UnionRef != "" {
			lines = append(lines, line{label: "Sindicato:", value: rd.UnionRef})
		}
		return lines

	case v.Type == entity.VoucherTypeMaterial && md != nil:
		weight := "PENDIENTE"
		if md.Weight != nil {
			weight = fmt.Sprintf("%.2f t", *md.Weight)
		}
		return []line{
			{label: "Volumen:", value: fmt.Sprintf("%.2f m3", md.Volume)},
			{label: "Capacidad:", value: md.Capacity},
			{label: "Distancia:", value: fmt.Sprintf("%.1f km", md.Distance)},
			{label: "Peso:", value: weight, bold: md.Weight == nil},
		}
	}

	return []line{{value: "Sin detalle registrado"}}
}

func operatorLines(v *entity.Voucher) []line {
	lines := []line{
		{label: "Operador:", value: v.OperatorName},
		{label: "Placas:", value: v.VehiclePlate},
	}
	if v.Notes != "" {
		lines = append(lines, line{label: "Notas:", value: v.Notes})
	}
	return lines
}

func money(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
