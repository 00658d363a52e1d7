package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/fee-service/internal/middleware"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	defaultScheduleLimit = 12
	maxScheduleLimit     = 120
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
	now func() time.Time
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// Register mounts all routes on r. Everything except /healthz requires auth.
func (h *Handler) Register(r *mux.Router, auth mux.MiddlewareFunc) {
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/").Subrouter()
	api.Use(auth)
	api.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	api.HandleFunc("/students/overdue", h.ListOverdue).Methods("GET")
	api.HandleFunc("/students/{id}/arrears", h.StudentArrears).Methods("GET")
	api.HandleFunc("/students/{id}/schedule", h.StudentSchedule).Methods("GET")
	api.HandleFunc("/students/{id}/reminders", h.SendReminder).Methods("POST")
	api.HandleFunc("/students/{id}/reminder-link", h.ReminderLink).Methods("GET")
	api.HandleFunc("/reminders", h.SendOverdueReminders).Methods("POST")
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dashboard returns aggregate stats and the risk banner for the caller's role
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), middleware.RoleFromContext(r.Context()), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// ListOverdue returns overdue students, optionally filtered by ?class=
func (h *Handler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOverdue(r.Context(), r.URL.Query().Get("class"), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// StudentArrears returns one student's assessment
func (h *Handler) StudentArrears(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.StudentArrears(r.Context(), mux.Vars(r)["id"], h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

// StudentSchedule returns the first ?limit= installments of a student's plan
func (h *Handler) StudentSchedule(w http.ResponseWriter, r *http.Request) {
	limit := defaultScheduleLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxScheduleLimit {
			http.Error(w, "limit must be between 1 and 120", http.StatusBadRequest)
			return
		}
		limit = n
	}
	insts, err := h.svc.StudentSchedule(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, insts)
}

// SendReminder sends a reminder to one student
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SendReminder(r.Context(), mux.Vars(r)["id"], h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// SendOverdueReminders reminds all overdue students, optionally in ?class=.
// With one or more ?id= parameters only those students are reminded.
// The batch runs within the request, so at the default send delay the
// server's WriteTimeout allows roughly 400 sends; larger batches should go
// through the scheduled job or feectl remind.
func (h *Handler) SendOverdueReminders(w http.ResponseWriter, r *http.Request) {
	var (
		outcome models.DispatchOutcome
		err     error
	)
	if ids := r.URL.Query()["id"]; len(ids) > 0 {
		outcome, err = h.svc.SendRemindersTo(r.Context(), ids, h.now())
	} else {
		outcome, err = h.svc.SendOverdueReminders(r.Context(), r.URL.Query().Get("class"), h.now())
	}
	if err != nil && len(outcome.Results) == 0 {
		h.writeError(w, err)
		return
	}
	if err != nil {
		h.log.Warnf("Reminder batch interrupted: %v", err)
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

// ReminderLink returns a wa.me deep link for manual sending
func (h *Handler) ReminderLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.ReminderLink(r.Context(), mux.Vars(r)["id"], h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &vErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Errorf("Request failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
