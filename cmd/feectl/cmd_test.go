package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

func newTestCLI(t *testing.T) (*commandLine, *repository.MemoryStore, *bytes.Buffer) {
	t.Helper()
	store := repository.NewMemoryStore(
		models.StudentRecord{
			ID: "s1", Name: "Aarav", ClassName: "5A", FatherName: "Rakesh", ContactNumber: "9876543210",
			TotalFees: 10000, FeeFrequency: models.Monthly(), EnrollmentDate: daysAgo(45),
		},
		models.StudentRecord{
			ID: "s2", Name: "Chetan", ClassName: "6B", ContactNumber: "9000000000",
			TotalFees: 10000, FeeFrequency: models.Monthly(), EnrollmentDate: daysAgo(20),
		},
	)
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		InstitutionName:           "Sunrise School",
		CountryCode:               "91",
		CurrencySymbol:            "₹",
		Locale:                    "en-IN",
		ReminderSendDelay:         time.Nanosecond,
		ReminderSuppressionWindow: 24 * time.Hour,
	}
	out := &bytes.Buffer{}
	cli := &commandLine{
		svc:         service.NewService(store, log, cfg, nil),
		institution: cfg.InstitutionName,
		out:         out,
		now:         func() time.Time { return now },
	}
	return cli, store, out
}

func execute(cli *commandLine, args ...string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRemindDryRun(t *testing.T) {
	cli, store, out := newTestCLI(t)

	require.NoError(t, execute(cli, "remind", "--dry-run"))
	assert.Contains(t, out.String(), "Sent:    1\n")

	st, err := store.GetStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, st.LastReminderSentAt, "dry run does not record reminders")
}

func TestRemindRecordsSend(t *testing.T) {
	cli, store, out := newTestCLI(t)

	require.NoError(t, execute(cli, "remind", "--class", "5A"))
	assert.Contains(t, out.String(), "Sent:    1\n")

	st, err := store.GetStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, st.LastReminderSentAt)
	assert.True(t, st.LastReminderSentAt.Equal(now))
}

func TestRemindByID(t *testing.T) {
	cli, store, out := newTestCLI(t)

	require.NoError(t, execute(cli, "remind", "--id", "s2"))
	assert.Contains(t, out.String(), "Sent:    1\n")

	st, err := store.GetStudent(context.Background(), "s2")
	require.NoError(t, err)
	require.NotNil(t, st.LastReminderSentAt, "explicit ids are reminded even when not yet overdue")

	assert.Error(t, execute(cli, "remind", "--id", "s1", "--class", "5A"))
}

func TestArrears(t *testing.T) {
	cli, _, out := newTestCLI(t)

	require.NoError(t, execute(cli, "arrears", "s1"))
	var got struct {
		Assessment struct {
			Status string `json:"status"`
		} `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "overdue", got.Assessment.Status)

	assert.ErrorIs(t, execute(cli, "arrears", "missing"), models.ErrNotFound)
	assert.Error(t, execute(cli, "arrears"))
}

func TestDashboard(t *testing.T) {
	cli, _, out := newTestCLI(t)

	require.NoError(t, execute(cli, "dashboard", "--role", "staff"))
	assert.Contains(t, out.String(), "Urgent: contact guardians with overdue fees today.")
	assert.Contains(t, out.String(), "Overdue: 1  Clear: 1  Paid: 0  Undetermined: 0")

	var verr *models.ValidationError
	assert.ErrorAs(t, execute(cli, "dashboard", "--role", "parent"), &verr)
}
