package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchStatus is the result of handling one candidate in a batch
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchSkipped DispatchStatus = "skipped"
	DispatchFailed  DispatchStatus = "failed"
)

// Skip and failure reasons recorded per candidate
const (
	ReasonNoPendingFees    = "no_pending_fees"
	ReasonMissingContact   = "missing_contact"
	ReasonInvalidContact   = "invalid_contact"
	ReasonRecentlyReminded = "recently_reminded"
	ReasonCancelled        = "cancelled"
	ReasonChannelError     = "channel_error"
	ReasonNotDelivered     = "not_delivered"
)

// DispatchResult records what happened to one student in a batch
type DispatchResult struct {
	StudentID  string         `json:"student_id"`
	Status     DispatchStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	MessageID  string         `json:"message_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	RemindedAt *time.Time     `json:"reminded_at,omitempty"`
}

// DispatchOutcome summarises a reminder batch
type DispatchOutcome struct {
	BatchID    uuid.UUID        `json:"batch_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Sent       int              `json:"sent"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Results    []DispatchResult `json:"results"`
}

// Record appends a result and updates the counters.
func (o *DispatchOutcome) Record(r DispatchResult) {
	switch r.Status {
	case DispatchSent:
		o.Sent++
	case DispatchSkipped:
		o.Skipped++
	case DispatchFailed:
		o.Failed++
	}
	o.Results = append(o.Results, r)
}

// SkipReasons counts skipped candidates per reason.
func (o DispatchOutcome) SkipReasons() map[string]int {
	reasons := make(map[string]int)
	for _, r := range o.Results {
		if r.Status == DispatchSkipped {
			reasons[r.Reason]++
		}
	}
	return reasons
}
