package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obralink/vales/internal/domain/entity"
)

func alwaysAccept(ctx context.Context) bool { return true }
func alwaysReject(ctx context.Context) bool { return false }

func TestNewValeMachine_RentalLifecycle(t *testing.T) {
	m, err := NewValeMachine(entity.VoucherTypeRental, StateDraft, ValeGuards{CloseAccepted: alwaysAccept})
	if err != nil {
		t.Fatalf("NewValeMachine() error = %v", err)
	}

	ctx := context.Background()
	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerIssue, StateIssued},
		{TriggerStartWork, StateInProcess},
		{TriggerClose, StateCompleted},
		{TriggerVerify, StateVerified},
		{TriggerPay, StatePaid},
	}

	for _, step := range steps {
		if err := m.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Fire(%s) error = %v", step.trigger, err)
		}
		if m.State() != step.want {
			t.Fatalf("after %s: state = %v, want %v", step.trigger, m.State(), step.want)
		}
	}

	if !m.State().IsTerminal() {
		t.Error("PAID should be terminal")
	}
}

func TestNewValeMachine_CloseFromIssued(t *testing.T) {
	// A capture can arrive while the stored state is still ISSUED
	m, err := NewValeMachine(entity.VoucherTypeRental, StateIssued, ValeGuards{CloseAccepted: alwaysAccept})
	if err != nil {
		t.Fatalf("NewValeMachine() error = %v", err)
	}

	if err := m.Fire(context.Background(), TriggerClose); err != nil {
		t.Fatalf("Fire(CLOSE) error = %v", err)
	}
	if m.State() != StateCompleted {
		t.Errorf("State() = %v, want %v", m.State(), StateCompleted)
	}
}

func TestNewValeMachine_CloseBlockedByGuard(t *testing.T) {
	m, err := NewValeMachine(entity.VoucherTypeRental, StateInProcess, ValeGuards{CloseAccepted: alwaysReject})
	if err != nil {
		t.Fatalf("NewValeMachine() error = %v", err)
	}

	err = m.Fire(context.Background(), TriggerClose)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire(CLOSE) error = %v, want ErrGuardFailed", err)
	}
	if m.State() != StateInProcess {
		t.Errorf("State() = %v, state must not advance past a failed guard", m.State())
	}
}

func TestNewValeMachine_NoBackwardTransitions(t *testing.T) {
	m, err := NewValeMachine(entity.VoucherTypeRental, StateCompleted, ValeGuards{CloseAccepted: alwaysAccept})
	if err != nil {
		t.Fatalf("NewValeMachine() error = %v", err)
	}

	for _, trigger := range []Trigger{TriggerIssue, TriggerStartWork, TriggerClose} {
		if err := m.Fire(context.Background(), trigger); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Fire(%s) from COMPLETED error = %v, want ErrInvalidTransition", trigger, err)
		}
	}
}

func TestNewValeMachine_MaterialStopsAtIssued(t *testing.T) {
	m, err := NewValeMachine(entity.VoucherTypeMaterial, StateDraft, ValeGuards{CloseAccepted: alwaysAccept})
	if err != nil {
		t.Fatalf("NewValeMachine() error = %v", err)
	}

	ctx := context.Background()
	if err := m.Fire(ctx, TriggerIssue); err != nil {
		t.Fatalf("Fire(ISSUE) error = %v", err)
	}
	if m.State() != StateIssued {
		t.Fatalf("State() = %v, want %v", m.State(), StateIssued)
	}

	// Work and closure do not exist for material vouchers
	for _, trigger := range []Trigger{TriggerStartWork, TriggerClose} {
		if err := m.Fire(ctx, trigger); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Fire(%s) on material voucher error = %v, want ErrInvalidTransition", trigger, err)
		}
	}
}

func TestEffectiveState(t *testing.T) {
	start := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	end := start.Add(150 * time.Minute)

	tests := []struct {
		name   string
		stored State
		detail *entity.RentalDetail
		want   State
	}{
		{
			name:   "material voucher has no detail",
			stored: StateIssued,
			detail: nil,
			want:   StateIssued,
		},
		{
			name:   "rental not started",
			stored: StateIssued,
			detail: &entity.RentalDetail{},
			want:   StateIssued,
		},
		{
			name:   "rental started and open",
			stored: StateIssued,
			detail: &entity.RentalDetail{StartTime: &start},
			want:   StateInProcess,
		},
		{
			name:   "hour-closed rental",
			stored: StateCompleted,
			detail: &entity.RentalDetail{StartTime: &start, EndTime: &end, Hours: 2.5},
			want:   StateCompleted,
		},
		{
			name:   "day-closed rental stored as issued",
			stored: StateIssued,
			detail: &entity.RentalDetail{StartTime: &start, Days: 1},
			want:   StateIssued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveState(tt.stored, tt.detail); got != tt.want {
				t.Errorf("EffectiveState() = %v, want %v", got, tt.want)
			}
		})
	}
}
