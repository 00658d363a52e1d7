package email

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendDispatchSummary emails the outcome of a reminder batch to the administrator
func (s *Sender) SendDispatchSummary(outcome models.DispatchOutcome) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AdminEmail}
	e.Subject = fmt.Sprintf("Fee reminders: %d sent, %d skipped, %d failed", outcome.Sent, outcome.Skipped, outcome.Failed)
	e.Text = []byte(SummaryText(s.cfg.InstitutionName, outcome))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.AdminEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.AdminEmail, e.Subject)
	return nil
}

// SummaryText renders the plain-text body of a batch summary
func SummaryText(institution string, outcome models.DispatchOutcome) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "The fee reminder batch %s started at %s has finished.\n\n",
		outcome.BatchID, outcome.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Sent:    %d\nSkipped: %d\nFailed:  %d\n", outcome.Sent, outcome.Skipped, outcome.Failed)

	if reasons := outcome.SkipReasons(); len(reasons) > 0 {
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nSkipped by reason:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %d\n", k, reasons[k])
		}
	}

	var failed []models.DispatchResult
	for _, r := range outcome.Results {
		if r.Status == models.DispatchFailed {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\nFailures:\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "  %s: %s\n", r.StudentID, r.Error)
		}
	}

	if institution == "" {
		institution = "Fee Service"
	}
	fmt.Fprintf(&b, "\nBest regards,\n%s", institution)
	return b.String()
}
