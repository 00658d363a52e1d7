// Package arrears decides whether a student is behind on their fee schedule.
// Every caller (list views, dashboard, scheduled job) goes through Evaluator
// with an explicit clock so results are identical and reproducible.
package arrears

import (
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/schedule"
	"github.com/shopspring/decimal"
)

// Status is the arrears state of one student at one instant
type Status string

const (
	// StatusPaid means nothing is pending.
	StatusPaid Status = "paid"
	// StatusClear means money is pending but none of it is due yet.
	StatusClear Status = "clear"
	// StatusOverdue means payments lag the schedule.
	StatusOverdue Status = "overdue"
	// StatusUndetermined means the record lacks the data to build a schedule.
	StatusUndetermined Status = "undetermined"
)

// Assessment is the full evaluation of one student
type Assessment struct {
	StudentID      string              `json:"student_id"`
	Status         Status              `json:"status"`
	Pending        decimal.Decimal     `json:"pending"`
	ExpectedSoFar  decimal.Decimal     `json:"expected_so_far"`
	ElapsedPeriods int                 `json:"elapsed_periods"`
	Next           *models.Installment `json:"next,omitempty"`
	// Problem is set for undetermined records and describes the data gap.
	Problem error `json:"-"`
}

// Overdue reports whether the student is in arrears. Undetermined records
// are not overdue.
func (a Assessment) Overdue() bool { return a.Status == StatusOverdue }

// Undetermined reports whether the schedule could not be derived.
func (a Assessment) Undetermined() bool { return a.Status == StatusUndetermined }

// maxScan bounds the search for the next unmet installment. Cumulative
// amounts reach the total within TeachingMonths steps for every plan.
const maxScan = schedule.TeachingMonths + 1

// Evaluator is stateless and safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates an arrears evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// PendingAmount is max(0, total - paid) with corrupt inputs coerced.
func (e *Evaluator) PendingAmount(s models.StudentRecord) decimal.Decimal {
	return decimal.NewFromFloat(s.Total()).Sub(decimal.NewFromFloat(s.Paid()))
}

// IsOverdue reports whether the student is behind schedule at now.
func (e *Evaluator) IsOverdue(s models.StudentRecord, now time.Time) bool {
	return e.Evaluate(s, now).Overdue()
}

// NextDueInstallment returns the first installment whose cumulative amount
// exceeds what has been paid, or nil when everything is paid or the
// schedule is undetermined.
func (e *Evaluator) NextDueInstallment(s models.StudentRecord, now time.Time) *models.Installment {
	return e.Evaluate(s, now).Next
}

// Evaluate computes the complete assessment for one student.
func (e *Evaluator) Evaluate(s models.StudentRecord, now time.Time) Assessment {
	a := Assessment{
		StudentID:     s.ID,
		Pending:       e.PendingAmount(s),
		ExpectedSoFar: decimal.Zero,
	}
	if !a.Pending.IsPositive() {
		a.Status = StatusPaid
		return a
	}

	sched := schedule.ForStudent(s)
	if !sched.Defined() {
		a.Status = StatusUndetermined
		a.Problem = undeterminedReason(s)
		return a
	}

	paid := decimal.NewFromFloat(s.Paid())
	a.ElapsedPeriods = sched.ElapsedPeriods(now)
	a.ExpectedSoFar = sched.Expected(a.ElapsedPeriods)
	a.Next = nextUnmet(sched, paid)

	if paid.LessThan(a.ExpectedSoFar) {
		a.Status = StatusOverdue
	} else {
		a.Status = StatusClear
	}
	return a
}

func nextUnmet(sched schedule.Schedule, paid decimal.Decimal) *models.Installment {
	for i := 1; i <= maxScan; i++ {
		inst, ok := sched.At(i)
		if !ok {
			return nil
		}
		if inst.Cumulative.GreaterThan(paid) {
			return &inst
		}
	}
	return nil
}

func undeterminedReason(s models.StudentRecord) error {
	switch {
	case !s.FeeFrequency.Valid():
		return &models.ValidationError{Field: "fee_frequency", Reason: "unsupported plan " + s.FeeFrequency.String()}
	case s.FeeFrequency.Recurring():
		return &models.DataError{StudentID: s.ID, Reason: "enrollment date missing for recurring plan"}
	default:
		return &models.ValidationError{Field: "custom_due_date", Reason: "missing for custom date plan"}
	}
}
