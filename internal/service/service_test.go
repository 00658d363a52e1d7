package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/fee-service/internal/arrears"
	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type recordingChannel struct {
	mu     sync.Mutex
	phones []string
}

func (c *recordingChannel) Send(_ context.Context, phone, _ string) (dispatch.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phones = append(c.phones, phone)
	return dispatch.Receipt{Delivered: true, ID: "id-" + phone}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		InstitutionName:           "Sunrise School",
		CountryCode:               "91",
		CurrencySymbol:            "₹",
		Locale:                    "en-IN",
		ReminderSendDelay:         time.Nanosecond,
		ReminderSuppressionWindow: 24 * time.Hour,
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func at(daysAgo int) *time.Time {
	t := now.AddDate(0, 0, -daysAgo)
	return &t
}

func seedStore() *repository.MemoryStore {
	store := repository.NewMemoryStore(
		models.StudentRecord{
			ID: "overdue-5a", Name: "Aarav", ClassName: "5A", FatherName: "Rakesh", ContactNumber: "9876543210",
			TotalFees: 10000, FeesPaid: 0, FeeFrequency: models.Monthly(), EnrollmentDate: at(45),
		},
		models.StudentRecord{
			ID: "overdue-6b", Name: "Bela", ClassName: "6B", MotherName: "Meera", ContactNumber: "9123456789",
			TotalFees: 8000, FeesPaid: 1000, FeeFrequency: models.CustomDate(), CustomDueDate: at(5),
		},
		models.StudentRecord{
			ID: "clear", Name: "Chetan", ClassName: "5A", ContactNumber: "9000000000",
			TotalFees: 10000, FeesPaid: 0, FeeFrequency: models.Monthly(), EnrollmentDate: at(20),
		},
		models.StudentRecord{
			ID: "paid", Name: "Diya", ClassName: "5A", ContactNumber: "9000000001",
			TotalFees: 6000, FeesPaid: 6000, FeeFrequency: models.Installments(2), EnrollmentDate: at(200),
		},
		models.StudentRecord{
			ID: "unknown", Name: "Esha", ClassName: "6B", ContactNumber: "9000000002",
			TotalFees: 6000, FeesPaid: 0, FeeFrequency: models.Installments(3),
		},
	)
	store.AddPayment(repository.Payment{StudentID: "paid", Amount: 3000, PaidAt: now.AddDate(0, 0, -3)})
	store.AddPayment(repository.Payment{StudentID: "overdue-6b", Amount: 1000, PaidAt: now.AddDate(0, -1, 0)})
	return store
}

func TestDashboard(t *testing.T) {
	svc := NewService(seedStore(), testLogger(), testConfig(), &recordingChannel{})

	d, err := svc.Dashboard(context.Background(), models.RoleAdmin, now)
	require.NoError(t, err)

	assert.Equal(t, 40000.0, d.Stats.TotalFees)
	assert.Equal(t, 7000.0, d.Stats.CollectedFees)
	assert.Equal(t, 2, d.OverdueCount)
	assert.Equal(t, 1, d.ClearCount)
	assert.Equal(t, 1, d.PaidCount)
	assert.Equal(t, 1, d.UndeterminedCount)
	assert.Equal(t, models.RiskDanger, d.Risk.Level)
	assert.True(t, d.Trend.Growing())

	staff, err := svc.Dashboard(context.Background(), models.RoleStaff, now)
	require.NoError(t, err)
	assert.Equal(t, "Urgent: contact guardians with overdue fees today.", staff.Risk.Message)
}

func TestListOverdue(t *testing.T) {
	svc := NewService(seedStore(), testLogger(), testConfig(), nil)

	all, err := svc.ListOverdue(context.Background(), "", now)
	require.NoError(t, err)
	require.Len(t, all, 2)

	fiveA, err := svc.ListOverdue(context.Background(), "5A", now)
	require.NoError(t, err)
	require.Len(t, fiveA, 1)
	assert.Equal(t, "overdue-5a", fiveA[0].Student.ID)
	assert.Equal(t, arrears.StatusOverdue, fiveA[0].Assessment.Status)
}

func TestStudentArrearsUndetermined(t *testing.T) {
	svc := NewService(seedStore(), testLogger(), testConfig(), nil)

	a, err := svc.StudentArrears(context.Background(), "unknown", now)
	require.NoError(t, err)
	assert.True(t, a.Assessment.Undetermined())
	assert.Contains(t, a.Problem, "enrollment date missing")

	_, err = svc.StudentArrears(context.Background(), "nobody", now)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStudentSchedule(t *testing.T) {
	svc := NewService(seedStore(), testLogger(), testConfig(), nil)

	insts, err := svc.StudentSchedule(context.Background(), "overdue-5a", 12)
	require.NoError(t, err)
	assert.Len(t, insts, 12)

	insts, err = svc.StudentSchedule(context.Background(), "unknown", 12)
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestSendOverdueRemindersIsIdempotentWithinWindow(t *testing.T) {
	store := seedStore()
	ch := &recordingChannel{}
	svc := NewService(store, testLogger(), testConfig(), ch)

	outcome, err := svc.SendOverdueReminders(context.Background(), "", now)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Sent)
	assert.ElementsMatch(t, []string{"919876543210", "919123456789"}, ch.phones)

	again, err := svc.SendOverdueReminders(context.Background(), "", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Sent)
	assert.Equal(t, map[string]int{models.ReasonRecentlyReminded: 2}, again.SkipReasons())
	assert.Len(t, ch.phones, 2)

	nextDay, err := svc.SendOverdueReminders(context.Background(), "6B", now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, nextDay.Sent)
}

func TestSendRemindersTo(t *testing.T) {
	store := seedStore()
	ch := &recordingChannel{}
	svc := NewService(store, testLogger(), testConfig(), ch)

	outcome, err := svc.SendRemindersTo(context.Background(), []string{"clear", "paid", "nobody"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Sent, "clear students with pending fees can be reminded explicitly")
	assert.Equal(t, map[string]int{models.ReasonNoPendingFees: 1}, outcome.SkipReasons())
	assert.Equal(t, []string{"919000000000"}, ch.phones)

	s, err := store.GetStudent(context.Background(), "clear")
	require.NoError(t, err)
	require.NotNil(t, s.LastReminderSentAt)

	_, err = svc.SendRemindersTo(context.Background(), []string{"nobody"}, now)
	assert.ErrorIs(t, err, models.ErrNotFound)

	var vErr *models.ValidationError
	_, err = svc.SendRemindersTo(context.Background(), nil, now)
	assert.ErrorAs(t, err, &vErr)
}

func TestSendReminderDryRun(t *testing.T) {
	store := seedStore()
	svc := NewService(store, testLogger(), testConfig(), &recordingChannel{}).DryRun()

	res, err := svc.SendReminder(context.Background(), "overdue-5a", now)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchSent, res.Status)

	s, err := store.GetStudent(context.Background(), "overdue-5a")
	require.NoError(t, err)
	assert.Nil(t, s.LastReminderSentAt)
}

func TestReminderLink(t *testing.T) {
	svc := NewService(seedStore(), testLogger(), testConfig(), nil)

	link, err := svc.ReminderLink(context.Background(), "overdue-5a", now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/919876543210?text="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "Dear Rakesh")
	assert.Contains(t, text, "₹10,000")
	assert.Contains(t, text, "Sunrise School")
}
