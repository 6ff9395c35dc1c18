package entity

import "time"

// VoucherType distinguishes the two kinds of vales handled by the system.
type VoucherType string

const (
	VoucherTypeMaterial VoucherType = "material"
	VoucherTypeRental   VoucherType = "rental"
)

// IsValid returns true if the voucher type is known
func (t VoucherType) IsValid() bool {
	return t == VoucherTypeMaterial || t == VoucherTypeRental
}

// Voucher represents one material-delivery or equipment-rental transaction (a "vale").
// Exactly one detail record exists for it, created in the same transaction.
type Voucher struct {
	ID           int64
	Folio        string
	SiteID       string
	Type         VoucherType
	State        string
	OperatorName string
	VehiclePlate string
	Notes        string
	CreatedAt    time.Time
}

// RentalDetail holds the rental-specific fields of a rental voucher.
// Tariffs are snapshotted at creation time; closure and rendering read the
// snapshot, never the catalog.
type RentalDetail struct {
	ID           int64
	VoucherID    int64
	StartTime    *time.Time
	EndTime      *time.Time
	Hours        float64
	Days         int
	TripCount    int
	HourlyTariff float64
	DailyTariff  float64
	Capacity     string
	Material     string
	UnionRef     string
}

// Closed reports whether the detail is in one of the two valid closed shapes:
// hour closure (end time set, hours > 0, days == 0) or day closure
// (days == 1, hours == 0, end time unset). No other combination counts.
func (d *RentalDetail) Closed() bool {
	if d.EndTime != nil && d.Hours > 0 && d.Days == 0 {
		return true
	}
	if d.EndTime == nil && d.Days == 1 && d.Hours == 0 {
		return true
	}
	return false
}

// InProcess reports whether work has started but the rental is not yet closed.
func (d *RentalDetail) InProcess() bool {
	return d.StartTime != nil && !d.Closed()
}

// MaterialDetail holds the material-specific fields of a material voucher.
// Weight may arrive after issuance; nil is a valid terminal value rendered
// as pending, not an error.
type MaterialDetail struct {
	ID        int64
	VoucherID int64
	Volume    float64
	Capacity  string
	Distance  float64
	Weight    *float64
}
