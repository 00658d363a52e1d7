// Package schedule derives theoretical installment schedules from a payment plan.
package schedule

import (
	"fmt"
	"iter"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"github.com/shopspring/decimal"
)

// TeachingMonths is the academic-year divisor for monthly plans.
const TeachingMonths = 10

// Schedule is a lazily evaluated installment sequence. Recurring plans are
// unbounded; custom-date plans have exactly one installment. The zero value
// is an undefined schedule.
type Schedule struct {
	defined bool
	bounded bool
	kind    models.FeeFrequencyKind
	start   time.Time
	cadence int
	divisor int64
	total   decimal.Decimal
}

// Compute builds the schedule for a plan. enrollment may be nil; for
// recurring plans that yields an undefined schedule. customDue is only read
// for custom-date plans and a nil value there is also undefined.
func Compute(enrollment *time.Time, freq models.FeeFrequency, customDue *time.Time, totalFees float64) Schedule {
	total := decimal.NewFromFloat(models.NonNegative(totalFees))

	switch freq.Kind {
	case models.FrequencyMonthly:
		if enrollment == nil {
			return Schedule{}
		}
		return Schedule{defined: true, kind: freq.Kind, start: *enrollment, cadence: 1, divisor: TeachingMonths, total: total}
	case models.FrequencyInstallments:
		if enrollment == nil || !freq.Valid() {
			return Schedule{}
		}
		n := freq.Installments
		return Schedule{defined: true, kind: freq.Kind, start: *enrollment, cadence: n, divisor: int64(n), total: total}
	case models.FrequencyCustomDate:
		if customDue == nil {
			return Schedule{}
		}
		return Schedule{defined: true, bounded: true, kind: freq.Kind, start: *customDue, divisor: 1, total: total}
	}
	return Schedule{}
}

// ForStudent is Compute over a student record.
func ForStudent(s models.StudentRecord) Schedule {
	return Compute(s.EnrollmentDate, s.FeeFrequency, s.CustomDueDate, s.TotalFees)
}

// Defined reports whether a schedule could be determined.
func (s Schedule) Defined() bool { return s.defined }

// Bounded reports whether the schedule has a finite number of installments.
func (s Schedule) Bounded() bool { return s.bounded }

// CadenceMonths is the number of months between installments, 0 for
// bounded schedules.
func (s Schedule) CadenceMonths() int { return s.cadence }

// PerInstallment is the amount owed at each due date.
func (s Schedule) PerInstallment() decimal.Decimal {
	if !s.defined {
		return decimal.Zero
	}
	return s.total.DivRound(decimal.NewFromInt(s.divisor), 2)
}

// Expected returns the cumulative amount expected after n installments,
// capped at the total.
func (s Schedule) Expected(n int) decimal.Decimal {
	if !s.defined || n <= 0 {
		return decimal.Zero
	}
	if s.bounded {
		return s.total
	}
	v := s.total.Mul(decimal.NewFromInt(int64(n))).DivRound(decimal.NewFromInt(s.divisor), 2)
	return decimal.Min(v, s.total)
}

// DueDate returns the due date of the i-th installment (1-based).
func (s Schedule) DueDate(i int) time.Time {
	if s.bounded {
		return s.start
	}
	return AddMonths(s.start, i*s.cadence)
}

// At returns the i-th installment (1-based) without materialising earlier
// ones. ok is false when i is out of range or the schedule is undefined.
func (s Schedule) At(i int) (models.Installment, bool) {
	if !s.defined || i < 1 || (s.bounded && i > 1) {
		return models.Installment{}, false
	}
	return models.Installment{
		Sequence:   i,
		Label:      s.label(i),
		DueDate:    s.DueDate(i),
		Amount:     s.PerInstallment(),
		Cumulative: s.Expected(i),
	}, true
}

// All yields installments in order. Recurring schedules never end, so
// callers must stop pulling.
func (s Schedule) All() iter.Seq[models.Installment] {
	return func(yield func(models.Installment) bool) {
		for i := 1; ; i++ {
			inst, ok := s.At(i)
			if !ok || !yield(inst) {
				return
			}
		}
	}
}

// Take materialises at most n installments.
func (s Schedule) Take(n int) []models.Installment {
	out := make([]models.Installment, 0, n)
	if n <= 0 {
		return out
	}
	for inst := range s.All() {
		out = append(out, inst)
		if len(out) == n {
			break
		}
	}
	return out
}

// ElapsedPeriods counts installments that have fallen due by now. A
// recurring installment counts from its due instant onwards; the single
// custom-date installment counts only once now is strictly after it.
func (s Schedule) ElapsedPeriods(now time.Time) int {
	if !s.defined {
		return 0
	}
	if s.bounded {
		if now.After(s.start) {
			return 1
		}
		return 0
	}
	return MonthsBetween(s.start, now) / s.cadence
}

func (s Schedule) label(i int) string {
	switch s.kind {
	case models.FrequencyMonthly:
		return s.DueDate(i).Format("January 2006")
	case models.FrequencyInstallments:
		return fmt.Sprintf("Installment %d", i)
	}
	return "Full balance"
}
