// Package rental derives the billing quantities of a rental closure.
// The subtotal formula lives here and nowhere else; the document renderer
// calls Subtotal so the printed amount can never drift from the calculator.
package rental

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/obralink/vales/internal/domain/entity"
)

// ErrInvalidCompletionInput is returned when a closure request cannot be
// accepted. It is user-correctable and surfaced verbatim; callers must not
// retry it.
var ErrInvalidCompletionInput = errors.New("invalid completion input")

// CloseInput carries the capture-time inputs of a rental closure.
// A day closure needs no end time; an hour closure requires one.
type CloseInput struct {
	CloseByDay bool
	EndTime    *time.Time
}

// Closure holds the derived billing quantities of an accepted closure.
// Exactly one of Hours > 0 or Days == 1 holds.
type Closure struct {
	Hours   float64
	Days    int
	EndTime *time.Time
}

// Close validates the capture inputs against the rental detail and derives
// the closure quantities. The detail itself is not mutated; see Apply.
func Close(detail *entity.RentalDetail, in CloseInput) (Closure, error) {
	if detail.TripCount < 1 {
		return Closure{}, fmt.Errorf("%w: trip count must be at least 1, got %d", ErrInvalidCompletionInput, detail.TripCount)
	}
	if detail.Closed() {
		return Closure{}, fmt.Errorf("%w: rental is already closed", ErrInvalidCompletionInput)
	}

	if in.CloseByDay {
		// Day-rate closure never needs an end time, even if one was supplied.
		return Closure{Hours: 0, Days: 1, EndTime: nil}, nil
	}

	if detail.StartTime == nil {
		return Closure{}, fmt.Errorf("%w: rental has no start time", ErrInvalidCompletionInput)
	}
	if in.EndTime == nil {
		return Closure{}, fmt.Errorf("%w: end time is required for an hour closure", ErrInvalidCompletionInput)
	}

	hours := roundHours(in.EndTime.Sub(*detail.StartTime).Hours())
	if hours <= 0 {
		return Closure{}, fmt.Errorf("%w: end time %s is not after start time %s",
			ErrInvalidCompletionInput,
			in.EndTime.Format(time.RFC3339),
			detail.StartTime.Format(time.RFC3339))
	}

	return Closure{Hours: hours, Days: 0, EndTime: in.EndTime}, nil
}

// Accepts reports whether Close would accept the input. Used as the guard of
// the CLOSE transition so the state machine and the calculator cannot disagree.
func Accepts(detail *entity.RentalDetail, in CloseInput) bool {
	_, err := Close(detail, in)
	return err == nil
}

// Applied reports whether the detail already carries the closure the input
// describes: a repeat of a capture that was persisted earlier. Lets a
// re-triggered issuance skip the persist step instead of rejecting the
// request as already closed.
func Applied(detail *entity.RentalDetail, in CloseInput) bool {
	if !detail.Closed() {
		return false
	}
	if in.CloseByDay {
		return detail.Days == 1
	}
	return in.EndTime != nil && detail.EndTime != nil && in.EndTime.Equal(*detail.EndTime)
}

// Apply writes an accepted closure onto the detail. A rental detail is
// mutated exactly once by the completion flow and never thereafter.
func Apply(detail *entity.RentalDetail, c Closure) {
	detail.Hours = c.Hours
	detail.Days = c.Days
	detail.EndTime = c.EndTime
}

// Subtotal computes the billable amount of a rental detail from its tariff
// snapshot. A day-closed detail bills the daily tariff exactly once; an
// hour-closed detail bills hours times the hourly tariff.
func Subtotal(detail *entity.RentalDetail) float64 {
	if detail.Days > 0 {
		return detail.DailyTariff
	}
	return detail.Hours * detail.HourlyTariff
}

// roundHours rounds elapsed fractional hours to 2-decimal precision
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
