package workflow

import (
	"github.com/obralink/vales/internal/domain/entity"
)

// ValeGuards carries the guard conditions wired into the vale lifecycle.
// CloseAccepted must return true only when the completion calculator accepts
// the pending closure input; the CLOSE transition is blocked otherwise.
type ValeGuards struct {
	CloseAccepted GuardFunc
}

// NewValeMachine builds the lifecycle machine for one vale of the given type,
// positioned at the given state.
//
// Rentals move DRAFT → ISSUED → IN_PROCESS → COMPLETED → VERIFIED → PAID.
// Material vouchers have no work or closure step, so their table stops at
// ISSUED and the rental-only transitions stay unrepresentable. CLOSE is
// permitted straight from ISSUED because IN_PROCESS is inferred from the
// detail record, not stored, and a capture can arrive before the inferred
// state was ever observed.
func NewValeMachine(voucherType entity.VoucherType, initial State, guards ValeGuards) (*Machine, error) {
	b := NewBuilder()

	b.Permit(StateDraft, TriggerIssue, StateIssued)

	if voucherType == entity.VoucherTypeRental {
		b.Permit(StateIssued, TriggerStartWork, StateInProcess)
		b.PermitIf(StateIssued, TriggerClose, StateCompleted, guards.CloseAccepted)
		b.PermitIf(StateInProcess, TriggerClose, StateCompleted, guards.CloseAccepted)

		// Administrative transitions; this engine only reads them.
		b.Permit(StateCompleted, TriggerVerify, StateVerified)
		b.Permit(StateVerified, TriggerPay, StatePaid)
	}

	return b.Build(initial)
}

// EffectiveState derives the externally visible state of a voucher.
// IN_PROCESS is never stored: a rental voucher is in process when its stored
// state is ISSUED and work has started without a closure.
func EffectiveState(stored State, detail *entity.RentalDetail) State {
	if stored == StateIssued && detail != nil && detail.InProcess() {
		return StateInProcess
	}
	return stored
}
