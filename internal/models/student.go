package models

import "time"

// FeeFrequencyKind identifies the shape of a payment plan
type FeeFrequencyKind string

const (
	FrequencyMonthly      FeeFrequencyKind = "monthly"
	FrequencyInstallments FeeFrequencyKind = "installments"
	FrequencyCustomDate   FeeFrequencyKind = "custom_date"
)

// FeeFrequency is a student's payment plan. Installments is only meaningful
// for FrequencyInstallments and must be 2, 3 or 4.
type FeeFrequency struct {
	Kind         FeeFrequencyKind `json:"kind" bson:"kind"`
	Installments int              `json:"installments,omitempty" bson:"installments,omitempty"`
}

// Monthly returns the ten-teaching-month plan.
func Monthly() FeeFrequency { return FeeFrequency{Kind: FrequencyMonthly} }

// Installments returns an n-installment plan.
func Installments(n int) FeeFrequency {
	return FeeFrequency{Kind: FrequencyInstallments, Installments: n}
}

// CustomDate returns a single full-balance plan due at the student's custom date.
func CustomDate() FeeFrequency { return FeeFrequency{Kind: FrequencyCustomDate} }

// Valid reports whether the frequency is one of the supported plan shapes.
func (f FeeFrequency) Valid() bool {
	switch f.Kind {
	case FrequencyMonthly, FrequencyCustomDate:
		return true
	case FrequencyInstallments:
		return f.Installments >= 2 && f.Installments <= 4
	}
	return false
}

// Recurring reports whether the plan repeats on a month cadence.
func (f FeeFrequency) Recurring() bool {
	return f.Kind == FrequencyMonthly || f.Kind == FrequencyInstallments
}

// StudentRecord is the read model supplied by the persistence collaborator
type StudentRecord struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	ClassName          string       `json:"class_name,omitempty"`
	FatherName         string       `json:"father_name,omitempty"`
	MotherName         string       `json:"mother_name,omitempty"`
	ContactNumber      string       `json:"contact_number,omitempty"`
	TotalFees          float64      `json:"total_fees"`
	FeesPaid           float64      `json:"fees_paid"`
	FeeFrequency       FeeFrequency `json:"fee_frequency"`
	EnrollmentDate     *time.Time   `json:"enrollment_date,omitempty"`
	CustomDueDate      *time.Time   `json:"custom_due_date,omitempty"`
	LastReminderSentAt *time.Time   `json:"last_reminder_sent_at,omitempty"`
}

// Total returns the total fee amount with corrupt values coerced to zero.
func (s StudentRecord) Total() float64 {
	return NonNegative(s.TotalFees)
}

// Paid returns the paid amount coerced to [0, Total()].
func (s StudentRecord) Paid() float64 {
	paid := NonNegative(s.FeesPaid)
	if total := s.Total(); paid > total {
		return total
	}
	return paid
}

// GuardianName returns the first guardian name on record.
func (s StudentRecord) GuardianName() string {
	if s.FatherName != "" {
		return s.FatherName
	}
	return s.MotherName
}
