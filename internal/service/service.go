package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/fee-service/internal/arrears"
	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/Dan9191/fee-service/internal/integrations/whatsapp"
	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/reminder"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/Dan9191/fee-service/internal/risk"
	"github.com/Dan9191/fee-service/internal/schedule"
	"github.com/sirupsen/logrus"
)

// StudentArrears pairs a record with its assessment
type StudentArrears struct {
	Student    models.StudentRecord `json:"student"`
	Assessment arrears.Assessment   `json:"assessment"`
	Problem    string               `json:"problem,omitempty"`
}

// Dashboard is the institution-wide summary
type Dashboard struct {
	Stats             models.AggregateStats     `json:"stats"`
	Trend             models.CollectionTrend    `json:"trend"`
	Risk              models.RiskClassification `json:"risk"`
	OverdueCount      int                       `json:"overdue_count"`
	ClearCount        int                       `json:"clear_count"`
	PaidCount         int                       `json:"paid_count"`
	UndeterminedCount int                       `json:"undetermined_count"`
}

// Service handles business logic
type Service struct {
	repo       repository.Store
	log        *logrus.Logger
	config     *config.Config
	evaluator  *arrears.Evaluator
	classifier *risk.Classifier
	composer   *reminder.Composer
	dispatcher *dispatch.Dispatcher
	channel    dispatch.Channel
}

// NewService initializes a new service. channel is where reminders go;
// pass nil to use the log-only channel.
func NewService(repo repository.Store, log *logrus.Logger, cfg *config.Config, channel dispatch.Channel) *Service {
	composer := reminder.NewComposer(cfg.Locale, cfg.CurrencySymbol)
	if channel == nil {
		channel = dispatch.NewLogChannel(log)
	}
	return &Service{
		repo:       repo,
		log:        log,
		config:     cfg,
		evaluator:  arrears.NewEvaluator(),
		classifier: risk.NewClassifier(),
		composer:   composer,
		dispatcher: dispatch.NewDispatcher(repo, composer, log, dispatcherOptions(cfg, false)),
		channel:    channel,
	}
}

func dispatcherOptions(cfg *config.Config, dryRun bool) dispatch.Options {
	return dispatch.Options{
		InstitutionName:   cfg.InstitutionName,
		CountryCode:       cfg.CountryCode,
		SendDelay:         cfg.ReminderSendDelay,
		SuppressionWindow: cfg.ReminderSuppressionWindow,
		DryRun:            dryRun,
	}
}

// DryRun returns a copy of the service that logs reminders instead of
// sending them and does not record reminder times.
func (s *Service) DryRun() *Service {
	c := *s
	c.channel = dispatch.NewLogChannel(s.log)
	c.dispatcher = dispatch.NewDispatcher(s.repo, s.composer, s.log, dispatcherOptions(s.config, true))
	return &c
}

// StudentArrears evaluates a single student
func (s *Service) StudentArrears(ctx context.Context, id string, now time.Time) (StudentArrears, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return StudentArrears{}, err
	}
	return s.assess(st, now), nil
}

// StudentSchedule returns the first limit installments of a student's plan.
// An undetermined plan yields an empty slice.
func (s *Service) StudentSchedule(ctx context.Context, id string, limit int) ([]models.Installment, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	return schedule.ForStudent(st).Take(limit), nil
}

// ListOverdue returns overdue students, optionally restricted to one class
func (s *Service) ListOverdue(ctx context.Context, className string, now time.Time) ([]StudentArrears, error) {
	students, err := s.repo.ListStudents(ctx, repository.StudentFilter{ClassName: className})
	if err != nil {
		return nil, err
	}
	out := make([]StudentArrears, 0)
	for _, st := range students {
		if a := s.assess(st, now); a.Assessment.Overdue() {
			out = append(out, a)
		}
	}
	return out, nil
}

// Dashboard aggregates all students and classifies collection risk for role
func (s *Service) Dashboard(ctx context.Context, role models.Role, now time.Time) (Dashboard, error) {
	students, err := s.repo.ListStudents(ctx, repository.StudentFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	trend, err := s.repo.CollectionTrend(ctx, now)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Stats: risk.Aggregate(students), Trend: trend}
	for _, st := range students {
		switch s.evaluator.Evaluate(st, now).Status {
		case arrears.StatusOverdue:
			d.OverdueCount++
		case arrears.StatusClear:
			d.ClearCount++
		case arrears.StatusPaid:
			d.PaidCount++
		case arrears.StatusUndetermined:
			d.UndeterminedCount++
		}
	}
	if d.UndeterminedCount > 0 {
		s.log.Warnf("%d students have an undetermined fee schedule", d.UndeterminedCount)
	}
	d.Risk = s.classifier.Classify(d.Stats, trend, role)
	return d, nil
}

// SendReminder sends a reminder to one student
func (s *Service) SendReminder(ctx context.Context, id string, now time.Time) (models.DispatchResult, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return models.DispatchResult{}, err
	}
	return s.dispatcher.DispatchOne(ctx, st, s.channel, now), nil
}

// SendOverdueReminders reminds every overdue student, optionally only
// those in className
func (s *Service) SendOverdueReminders(ctx context.Context, className string, now time.Time) (models.DispatchOutcome, error) {
	overdue, err := s.ListOverdue(ctx, className, now)
	if err != nil {
		return models.DispatchOutcome{}, err
	}
	candidates := make([]models.StudentRecord, 0, len(overdue))
	for _, a := range overdue {
		candidates = append(candidates, a.Student)
	}
	return s.dispatcher.DispatchAll(ctx, candidates, s.channel, now)
}

// SendRemindersTo reminds the given students in order. Students that
// have nothing pending or were reminded recently are skipped, overdue or
// not. ErrNotFound is returned when none of ids exist.
func (s *Service) SendRemindersTo(ctx context.Context, ids []string, now time.Time) (models.DispatchOutcome, error) {
	if len(ids) == 0 {
		return models.DispatchOutcome{}, &models.ValidationError{Field: "id", Reason: "at least one student id is required"}
	}
	students, err := s.repo.ListStudents(ctx, repository.StudentFilter{IDs: ids})
	if err != nil {
		return models.DispatchOutcome{}, err
	}
	if len(students) == 0 {
		return models.DispatchOutcome{}, models.ErrNotFound
	}
	if len(students) < len(ids) {
		s.log.Warnf("%d of %d requested students not found", len(ids)-len(students), len(ids))
	}
	return s.dispatcher.DispatchAll(ctx, students, s.channel, now)
}

// ReminderLink builds the wa.me deep link for manually sending a reminder
func (s *Service) ReminderLink(ctx context.Context, id string, now time.Time) (string, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return "", err
	}
	phone, err := dispatch.NormalizePhone(st.ContactNumber, s.config.CountryCode)
	if err != nil {
		return "", fmt.Errorf("student %s: %w", id, err)
	}
	return whatsapp.DeepLink(phone, s.composer.Compose(st, s.config.InstitutionName, now)), nil
}

func (s *Service) assess(st models.StudentRecord, now time.Time) StudentArrears {
	a := s.evaluator.Evaluate(st, now)
	out := StudentArrears{Student: st, Assessment: a}
	if a.Problem != nil {
		out.Problem = a.Problem.Error()
	}
	return out
}
