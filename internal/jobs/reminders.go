package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// batchTimeout bounds one scheduled run. At the default send delay this
// covers well over a thousand reminders.
const batchTimeout = 2 * time.Hour

// ReminderSender runs the overdue reminder batch
type ReminderSender interface {
	SendOverdueReminders(ctx context.Context, className string, now time.Time) (models.DispatchOutcome, error)
}

// SummaryMailer reports a finished batch
type SummaryMailer interface {
	SendDispatchSummary(outcome models.DispatchOutcome) error
}

// ReminderJob sends the daily overdue reminders
type ReminderJob struct {
	svc    ReminderSender
	mailer SummaryMailer
	log    *logrus.Logger
	now    func() time.Time
	cron   *cron.Cron
}

// NewReminderJob creates the job. mailer may be nil.
func NewReminderJob(svc ReminderSender, mailer SummaryMailer, log *logrus.Logger) *ReminderJob {
	return &ReminderJob{svc: svc, mailer: mailer, log: log, now: time.Now}
}

// Run executes one batch. The batch stops early if ctx is cancelled.
func (j *ReminderJob) Run(ctx context.Context) (models.DispatchOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	j.log.Info("Running scheduled fee reminders")
	outcome, err := j.svc.SendOverdueReminders(ctx, "", j.now())
	if err != nil && len(outcome.Results) == 0 {
		return outcome, fmt.Errorf("scheduled reminders failed: %w", err)
	}
	if err != nil {
		j.log.Warnf("Scheduled reminders stopped early: %v", err)
	}

	if j.mailer != nil {
		if mailErr := j.mailer.SendDispatchSummary(outcome); mailErr != nil {
			j.log.Errorf("Failed to email reminder summary: %v", mailErr)
		}
	}
	return outcome, err
}

// Start schedules Run on spec (standard five-field cron syntax). Runs do
// not overlap; a tick that fires while a batch is in progress is skipped.
func (j *ReminderJob) Start(ctx context.Context, spec string) error {
	logger := cron.PrintfLogger(j.log)
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.Run(ctx); err != nil {
			j.log.Errorf("Reminder job: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	j.cron = c
	c.Start()
	j.log.Infof("Reminder job scheduled: %s", spec)
	return nil
}

// Stop stops scheduling and waits for a running batch to finish.
func (j *ReminderJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
