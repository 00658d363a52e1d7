package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"github.com/lib/pq"
)

// StudentFilter narrows ListStudents. Empty fields match everything.
type StudentFilter struct {
	ClassName string
	IDs       []string
}

// Store is the persistence collaborator the fee engine reads from
type Store interface {
	ListStudents(ctx context.Context, filter StudentFilter) ([]models.StudentRecord, error)
	GetStudent(ctx context.Context, id string) (models.StudentRecord, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	CollectionTrend(ctx context.Context, now time.Time) (models.CollectionTrend, error)
	Close(ctx context.Context) error
}

// Repository provides Postgres-backed student reads
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `
	id, name, COALESCE(class_name, ''), COALESCE(father_name, ''), COALESCE(mother_name, ''),
	COALESCE(contact_number, ''), total_fees::text, fees_paid::text, COALESCE(fee_frequency, ''),
	enrollment_date, custom_due_date, last_reminder_sent_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (models.StudentRecord, error) {
	var (
		s                       models.StudentRecord
		total, paid             sql.NullString
		frequency               string
		enrolled, due, reminded pq.NullTime
	)
	err := row.Scan(&s.ID, &s.Name, &s.ClassName, &s.FatherName, &s.MotherName,
		&s.ContactNumber, &total, &paid, &frequency, &enrolled, &due, &reminded)
	if err != nil {
		return s, err
	}
	s.TotalFees = models.CoerceAmount(total.String)
	s.FeesPaid = models.CoerceAmount(paid.String)
	s.FeeFrequency = models.ParseFrequency(frequency)
	s.EnrollmentDate = nullTime(enrolled)
	s.CustomDueDate = nullTime(due)
	s.LastReminderSentAt = nullTime(reminded)
	return s, nil
}

func nullTime(t pq.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return models.CoerceDate(t.Time)
}

// ListStudents retrieves students matching the filter
func (r *Repository) ListStudents(ctx context.Context, filter StudentFilter) ([]models.StudentRecord, error) {
	query := `SELECT` + studentColumns + `
		FROM fees.students
		WHERE ($1 = '' OR class_name = $1)
		  AND (cardinality($2::text[]) = 0 OR id = ANY($2::text[]))
		ORDER BY class_name, name`
	ids := filter.IDs
	if ids == nil {
		ids = []string{}
	}
	rows, err := r.db.QueryContext(ctx, query, filter.ClassName, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []models.StudentRecord
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// GetStudent retrieves a student by id
func (r *Repository) GetStudent(ctx context.Context, id string) (models.StudentRecord, error) {
	query := `SELECT` + studentColumns + `
		FROM fees.students
		WHERE id = $1`
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return s, models.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("failed to find student: %w", err)
	}
	return s, nil
}

// MarkReminderSent records the time of a successful reminder
func (r *Repository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE fees.students
		SET last_reminder_sent_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update reminder time: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CollectionTrend sums payments received in the month of now and the month before
func (r *Repository) CollectionTrend(ctx context.Context, now time.Time) (models.CollectionTrend, error) {
	current, last := monthBounds(now)
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE paid_at >= $2), 0)::text,
			COALESCE(SUM(amount) FILTER (WHERE paid_at < $2), 0)::text
		FROM fees.payments
		WHERE paid_at >= $1 AND paid_at < $3`
	var cur, prev string
	err := r.db.QueryRowContext(ctx, query, last, current, current.AddDate(0, 1, 0)).Scan(&cur, &prev)
	if err != nil {
		return models.CollectionTrend{}, fmt.Errorf("failed to sum payments: %w", err)
	}
	return models.CollectionTrend{
		CurrentMonthCollected: models.CoerceAmount(cur),
		LastMonthCollected:    models.CoerceAmount(prev),
	}, nil
}

// Close closes the database handle
func (r *Repository) Close(context.Context) error {
	return r.db.Close()
}

// monthBounds returns the first instant of the month of now and of the
// month before it.
func monthBounds(now time.Time) (current, last time.Time) {
	y, m, _ := now.Date()
	current = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return current, current.AddDate(0, -1, 0)
}
