// Package dispatch sends fee reminders to guardians in rate-limited batches.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/fee-service/internal/arrears"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/reminder"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Defaults for Options
const (
	DefaultSendDelay         = 1500 * time.Millisecond
	DefaultSuppressionWindow = 24 * time.Hour
	DefaultCountryCode       = "91"
)

// ReminderStore persists the time of the last successful reminder.
type ReminderStore interface {
	MarkReminderSent(ctx context.Context, studentID string, at time.Time) error
}

// Options configures a Dispatcher
type Options struct {
	InstitutionName   string
	CountryCode       string
	SendDelay         time.Duration
	SuppressionWindow time.Duration
	// DryRun skips persisting lastReminderSentAt.
	DryRun bool
}

// Dispatcher processes candidates strictly one at a time and waits
// SendDelay between consecutive sends. It is not safe to run two batches
// against the same students concurrently: both may pass the suppression
// check before either records its send.
type Dispatcher struct {
	evaluator *arrears.Evaluator
	composer  *reminder.Composer
	store     ReminderStore
	log       *logrus.Logger
	opts      Options
	sleep     func(ctx context.Context, d time.Duration) error
	clock     func() time.Time
}

// NewDispatcher creates a dispatcher. Zero option values take the defaults.
func NewDispatcher(store ReminderStore, composer *reminder.Composer, log *logrus.Logger, opts Options) *Dispatcher {
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultCountryCode
	}
	if opts.SendDelay == 0 {
		opts.SendDelay = DefaultSendDelay
	}
	if opts.SuppressionWindow == 0 {
		opts.SuppressionWindow = DefaultSuppressionWindow
	}
	return &Dispatcher{
		evaluator: arrears.NewEvaluator(),
		composer:  composer,
		store:     store,
		log:       log,
		opts:      opts,
		sleep:     sleepContext,
		clock:     time.Now,
	}
}

// Check applies the eligibility rules in order and returns the normalized
// phone number, or the skip reason of the first failing rule.
func (d *Dispatcher) Check(s models.StudentRecord, now time.Time) (phone, reason string) {
	if !d.evaluator.PendingAmount(s).IsPositive() {
		return "", models.ReasonNoPendingFees
	}
	phone, err := NormalizePhone(s.ContactNumber, d.opts.CountryCode)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) && vErr.Reason == "missing" {
			return "", models.ReasonMissingContact
		}
		return "", models.ReasonInvalidContact
	}
	if s.LastReminderSentAt != nil && now.Sub(*s.LastReminderSentAt) <= d.opts.SuppressionWindow {
		return "", models.ReasonRecentlyReminded
	}
	return phone, ""
}

// DispatchOne checks and, if eligible, sends a reminder to one student
// without any rate-limit delay.
func (d *Dispatcher) DispatchOne(ctx context.Context, s models.StudentRecord, ch Channel, now time.Time) models.DispatchResult {
	phone, reason := d.Check(s, now)
	if reason != "" {
		return d.skip(s, reason)
	}
	return d.send(ctx, s, phone, ch, now)
}

// DispatchAll processes candidates in order. A failure for one candidate
// is recorded and the batch continues. When ctx is cancelled, the
// remaining candidates are recorded as skipped and ctx.Err() is returned
// together with the partial outcome.
func (d *Dispatcher) DispatchAll(ctx context.Context, candidates []models.StudentRecord, ch Channel, now time.Time) (models.DispatchOutcome, error) {
	outcome := models.DispatchOutcome{
		BatchID:   uuid.New(),
		StartedAt: now,
		Results:   make([]models.DispatchResult, 0, len(candidates)),
	}
	entry := d.log.WithField("batch_id", outcome.BatchID.String())
	entry.Infof("Starting reminder batch for %d candidates", len(candidates))

	var (
		attempted bool
		stopErr   error
	)
	for i, s := range candidates {
		if err := ctx.Err(); err != nil {
			stopErr = err
			d.cancelRest(&outcome, candidates[i:])
			break
		}

		phone, reason := d.Check(s, now)
		if reason != "" {
			outcome.Record(d.skip(s, reason))
			continue
		}

		if attempted {
			if err := d.sleep(ctx, d.opts.SendDelay); err != nil {
				stopErr = err
				d.cancelRest(&outcome, candidates[i:])
				break
			}
		}
		attempted = true
		outcome.Record(d.send(ctx, s, phone, ch, now))
	}

	outcome.FinishedAt = d.clock()
	entry.WithFields(logrus.Fields{
		"sent":    outcome.Sent,
		"skipped": outcome.Skipped,
		"failed":  outcome.Failed,
	}).Info("Reminder batch finished")

	if stopErr != nil {
		return outcome, fmt.Errorf("reminder batch %s stopped: %w", outcome.BatchID, stopErr)
	}
	return outcome, nil
}

func (d *Dispatcher) send(ctx context.Context, s models.StudentRecord, phone string, ch Channel, now time.Time) models.DispatchResult {
	res := models.DispatchResult{StudentID: s.ID, Phone: phone}
	text := d.composer.Compose(s, d.opts.InstitutionName, now)

	receipt, err := safeSend(ctx, ch, phone, text)
	if err == nil && !receipt.Delivered {
		err = errors.New(receiptError(receipt))
		res.Reason = models.ReasonNotDelivered
	}
	if err != nil {
		chErr := &models.ChannelError{StudentID: s.ID, Err: err}
		res.Status = models.DispatchFailed
		if res.Reason == "" {
			res.Reason = models.ReasonChannelError
		}
		res.Error = chErr.Error()
		d.log.WithFields(logrus.Fields{"student_id": s.ID, "status": res.Status, "reason": res.Reason}).Warn(chErr)
		return res
	}

	res.Status = models.DispatchSent
	res.MessageID = receipt.ID
	if d.opts.DryRun {
		d.log.WithField("student_id", s.ID).Info("Dry run: reminder time not recorded")
		return res
	}
	if err := d.store.MarkReminderSent(ctx, s.ID, now); err != nil {
		res.Error = fmt.Sprintf("failed to record reminder time: %v", err)
		d.log.WithField("student_id", s.ID).Errorf("Reminder sent but not recorded: %v", err)
		return res
	}
	at := now
	res.RemindedAt = &at
	d.log.WithFields(logrus.Fields{"student_id": s.ID, "status": res.Status, "message_id": res.MessageID}).Info("Reminder sent")
	return res
}

func (d *Dispatcher) skip(s models.StudentRecord, reason string) models.DispatchResult {
	d.log.WithFields(logrus.Fields{"student_id": s.ID, "status": models.DispatchSkipped, "reason": reason}).Debug("Reminder skipped")
	return models.DispatchResult{StudentID: s.ID, Status: models.DispatchSkipped, Reason: reason}
}

func (d *Dispatcher) cancelRest(outcome *models.DispatchOutcome, rest []models.StudentRecord) {
	for _, s := range rest {
		outcome.Record(models.DispatchResult{StudentID: s.ID, Status: models.DispatchSkipped, Reason: models.ReasonCancelled})
	}
}

// safeSend turns a panicking adapter into an ordinary channel error so one
// candidate cannot abort the batch.
func safeSend(ctx context.Context, ch Channel, phone, text string) (r Receipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("channel panic: %v", p)
		}
	}()
	return ch.Send(ctx, phone, text)
}

func receiptError(r Receipt) string {
	if r.Error != "" {
		return r.Error
	}
	return "message not delivered"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
