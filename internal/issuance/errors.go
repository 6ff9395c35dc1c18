package issuance

import "errors"

var (
	// ErrVoucherNotFound is returned when the voucher id resolves to nothing
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrPersistenceFailed wraps a failed detail/state write. The write is the
	// single commit point of the flow, so the whole issuance may be retried.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrIssuanceInFlight is returned when an issuance for the same voucher
	// is already running; duplicate user action must not double-generate.
	ErrIssuanceInFlight = errors.New("issuance already in flight for voucher")
)
