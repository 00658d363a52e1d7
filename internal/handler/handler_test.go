package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/Dan9191/fee-service/internal/middleware"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// fakeAuth trusts the X-Role header instead of a token.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := models.Role(r.Header.Get("X-Role"))
		if role == "" {
			role = models.RoleAdmin
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithRole(r.Context(), role)))
	})
}

func setup(t *testing.T) (*mux.Router, *repository.MemoryStore) {
	enrolled := now.AddDate(0, 0, -45)
	store := repository.NewMemoryStore(
		models.StudentRecord{
			ID: "s1", Name: "Aarav", ClassName: "5A", FatherName: "Rakesh", ContactNumber: "9876543210",
			TotalFees: 10000, FeeFrequency: models.Monthly(), EnrollmentDate: &enrolled,
		},
		models.StudentRecord{
			ID: "s2", Name: "Bela", ClassName: "6B", ContactNumber: "12",
			TotalFees: 10000, FeeFrequency: models.Monthly(), EnrollmentDate: &enrolled,
		},
	)

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		CountryCode:               "91",
		Locale:                    "en-IN",
		CurrencySymbol:            "₹",
		ReminderSendDelay:         time.Nanosecond,
		ReminderSuppressionWindow: 24 * time.Hour,
	}
	ch := dispatch.ChannelFunc(func(_ context.Context, phone, _ string) (dispatch.Receipt, error) {
		return dispatch.Receipt{Delivered: true, ID: "wamid." + phone}, nil
	})

	h := NewHandler(service.NewService(store, log, cfg, ch), log)
	h.now = func() time.Time { return now }

	r := mux.NewRouter()
	h.Register(r, fakeAuth)
	return r, store
}

func do(r http.Handler, method, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _ := setup(t)
	rec := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardRoleAware(t *testing.T) {
	r, _ := setup(t)

	rec := do(r, http.MethodGet, "/dashboard", "staff")
	require.Equal(t, http.StatusOK, rec.Code)
	var d service.Dashboard
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	assert.Equal(t, models.RiskDanger, d.Risk.Level)
	assert.Equal(t, "Urgent: contact guardians with overdue fees today.", d.Risk.Message)
	assert.Equal(t, 2, d.OverdueCount)
}

func TestStudentArrears(t *testing.T) {
	r, _ := setup(t)

	rec := do(r, http.MethodGet, "/students/s1/arrears", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Assessment struct {
			Status         string `json:"status"`
			ElapsedPeriods int    `json:"elapsed_periods"`
		} `json:"assessment"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "overdue", body.Assessment.Status)
	assert.Equal(t, 1, body.Assessment.ElapsedPeriods)

	rec = do(r, http.MethodGet, "/students/missing/arrears", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentSchedule(t *testing.T) {
	r, _ := setup(t)

	rec := do(r, http.MethodGet, "/students/s1/schedule?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var insts []models.Installment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&insts))
	assert.Len(t, insts, 3)

	rec = do(r, http.MethodGet, "/students/s1/schedule?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOverdueReminders(t *testing.T) {
	r, store := setup(t)

	rec := do(r, http.MethodPost, "/reminders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome models.DispatchOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.Equal(t, 1, outcome.Sent)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, map[string]int{models.ReasonInvalidContact: 1}, outcome.SkipReasons())

	s, err := store.GetStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, s.LastReminderSentAt)

	rec = do(r, http.MethodPost, "/students/s1/reminders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.DispatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, models.DispatchSkipped, res.Status)
	assert.Equal(t, models.ReasonRecentlyReminded, res.Reason)
}

func TestSendRemindersByID(t *testing.T) {
	r, store := setup(t)

	rec := do(r, http.MethodPost, "/reminders?id=s1&id=s2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome models.DispatchOutcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&outcome))
	assert.Equal(t, 1, outcome.Sent)
	assert.Equal(t, map[string]int{models.ReasonInvalidContact: 1}, outcome.SkipReasons())

	s, err := store.GetStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, s.LastReminderSentAt)

	rec = do(r, http.MethodPost, "/reminders?id=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminderLink(t *testing.T) {
	r, _ := setup(t)

	rec := do(r, http.MethodGet, "/students/s1/reminder-link", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body["link"], "https://wa.me/919876543210?text=")

	rec = do(r, http.MethodGet, "/students/s2/reminder-link", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
