package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
)

// Payment is a single fee payment held by MemoryStore
type Payment struct {
	StudentID string
	Amount    float64
	PaidAt    time.Time
}

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]models.StudentRecord
	payments []Payment
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with students
func NewMemoryStore(students ...models.StudentRecord) *MemoryStore {
	m := &MemoryStore{students: make(map[string]models.StudentRecord, len(students))}
	for _, s := range students {
		m.students[s.ID] = s
	}
	return m
}

// AddPayment records a payment used by CollectionTrend
func (m *MemoryStore) AddPayment(p Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
}

// ListStudents retrieves students matching the filter ordered by class and name
func (m *MemoryStore) ListStudents(_ context.Context, filter StudentFilter) ([]models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.StudentRecord, 0, len(m.students))
	for _, s := range m.students {
		if filter.ClassName != "" && s.ClassName != filter.ClassName {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, s.ID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetStudent retrieves a student by id
func (m *MemoryStore) GetStudent(_ context.Context, id string) (models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return models.StudentRecord{}, models.ErrNotFound
}

// MarkReminderSent records the time of a successful reminder
func (m *MemoryStore) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return models.ErrNotFound
	}
	s.LastReminderSentAt = &at
	m.students[id] = s
	return nil
}

// CollectionTrend sums payments received in the month of now and the month before
func (m *MemoryStore) CollectionTrend(_ context.Context, now time.Time) (models.CollectionTrend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current, last := monthBounds(now)
	next := current.AddDate(0, 1, 0)
	var trend models.CollectionTrend
	for _, p := range m.payments {
		switch {
		case !p.PaidAt.Before(current) && p.PaidAt.Before(next):
			trend.CurrentMonthCollected += models.NonNegative(p.Amount)
		case !p.PaidAt.Before(last) && p.PaidAt.Before(current):
			trend.LastMonthCollected += models.NonNegative(p.Amount)
		}
	}
	return trend, nil
}

// Close is a no-op
func (m *MemoryStore) Close(context.Context) error { return nil }
