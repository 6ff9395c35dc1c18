package entity

// CopyColor identifies one color-coded rendering of a voucher document.
// Copies are stateless projections of a voucher snapshot, never persisted,
// and can be regenerated at any time.
type CopyColor string

const (
	CopyWhite  CopyColor = "white"
	CopyGreen  CopyColor = "green"
	CopyYellow CopyColor = "yellow"
	CopyPink   CopyColor = "pink"
	CopyBlue   CopyColor = "blue"
	CopyOrange CopyColor = "orange"
)

// CopySpec maps a copy color to its background tint and recipient label.
type CopySpec struct {
	Label string
	R     int
	G     int
	B     int
}

var copySpecs = map[CopyColor]CopySpec{
	CopyWhite:  {Label: "Operador", R: 255, G: 255, B: 255},
	CopyGreen:  {Label: "Banco de Material", R: 214, G: 240, B: 214},
	CopyYellow: {Label: "Residente de Obra", R: 250, G: 244, B: 202},
	CopyPink:   {Label: "Administración 1", R: 249, G: 218, B: 226},
	CopyBlue:   {Label: "Administración 2", R: 214, G: 229, B: 247},
	CopyOrange: {Label: "Administración 3", R: 250, G: 228, B: 206},
}

// Spec returns the rendering spec for the copy color. An unknown color falls
// back to the neutral operator copy instead of failing.
func (c CopyColor) Spec() CopySpec {
	if spec, ok := copySpecs[c]; ok {
		return spec
	}
	return copySpecs[CopyWhite]
}

// IsKnown returns true if the color has an explicit spec
func (c CopyColor) IsKnown() bool {
	_, ok := copySpecs[c]
	return ok
}

// AllCopyColors returns the copy colors in distribution order.
func AllCopyColors() []CopyColor {
	return []CopyColor{CopyWhite, CopyGreen, CopyYellow, CopyPink, CopyBlue, CopyOrange}
}
