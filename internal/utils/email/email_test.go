package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutcome() models.DispatchOutcome {
	o := models.DispatchOutcome{
		BatchID:   uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-90a1b2c3d4e5"),
		StartedAt: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
	}
	o.Record(models.DispatchResult{StudentID: "1", Status: models.DispatchSent})
	o.Record(models.DispatchResult{StudentID: "2", Status: models.DispatchSkipped, Reason: models.ReasonMissingContact})
	o.Record(models.DispatchResult{StudentID: "3", Status: models.DispatchSkipped, Reason: models.ReasonRecentlyReminded})
	o.Record(models.DispatchResult{StudentID: "4", Status: models.DispatchFailed, Error: "timeout"})
	return o
}

func TestSummaryText(t *testing.T) {
	text := SummaryText("Sunrise School", sampleOutcome())

	assert.Contains(t, text, "6f1c2d3e-4b5a-4c6d-8e7f-90a1b2c3d4e5")
	assert.Contains(t, text, "Sent:    1\nSkipped: 2\nFailed:  1\n")
	assert.Contains(t, text, "  missing_contact: 1\n  recently_reminded: 1\n")
	assert.Contains(t, text, "  4: timeout\n")
	assert.Contains(t, text, "Best regards,\nSunrise School")
}

func TestSendDispatchSummary(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SenderEmail: "fees@example.com",
		AdminEmail:  "admin@example.com",
	}
	s := NewSender(cfg, log)

	var sent *email.Email
	var gotAddr string
	s.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		sent, gotAddr = e, addr
		return nil
	}
	require.NoError(t, s.SendDispatchSummary(sampleOutcome()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"admin@example.com"}, sent.To)
	assert.Equal(t, "Fee reminders: 1 sent, 2 skipped, 1 failed", sent.Subject)

	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("dial tcp: refused") }
	assert.Error(t, s.SendDispatchSummary(sampleOutcome()))
}
