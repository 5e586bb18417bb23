package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of TaskStore, ScheduleStore,
// and PencilStore for tests and single-process use.
type MemoryStore struct {
	mu        sync.RWMutex
	tasks     map[string]Task
	schedules map[string]Schedule
	pencils   map[string]Pencil
	nowFn     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:     make(map[string]Task),
		schedules: make(map[string]Schedule),
		pencils:   make(map[string]Pencil),
		nowFn:     time.Now,
	}
}

func (m *MemoryStore) GetAll(ctx context.Context) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (m *MemoryStore) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.Title == "" {
		return nil, ErrEmptyTitle
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := *t
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.Priority == "" {
		created.Priority = PriorityMedium
	}
	if created.Status == "" {
		created.Status = StatusTodo
	}
	now := m.nowFn()
	created.CreatedAt = now
	created.UpdatedAt = now
	m.tasks[created.ID] = created
	return &created, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, u TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.EstimatedHours != nil {
		t.EstimatedHours = *u.EstimatedHours
	}
	if u.DueDate != nil {
		due := *u.DueDate
		t.DueDate = &due
	}
	if u.DueHasTime != nil {
		t.DueHasTime = *u.DueHasTime
	}
	if u.EnergyLevel != nil {
		t.EnergyLevel = *u.EnergyLevel
	}
	if u.Context != nil {
		t.Context = *u.Context
	}
	if u.Tags != nil {
		t.Tags = append([]string(nil), u.Tags...)
	}
	if u.ProjectID != nil {
		t.ProjectID = *u.ProjectID
	}
	t.UpdatedAt = m.nowFn()
	m.tasks[id] = t
	return nil
}

func (m *MemoryStore) ScheduleWorkSession(ctx context.Context, id string, start, end time.Time, aiSuggested bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	s, e := start, end
	t.WorkSessionStart = &s
	t.WorkSessionEnd = &e
	t.AISuggested = aiSuggested
	t.UpdatedAt = m.nowFn()
	m.tasks[id] = t
	return nil
}

func (m *MemoryStore) ClearWorkSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.WorkSessionStart == nil && t.WorkSessionEnd == nil && !t.AISuggested {
		return nil
	}
	t.WorkSessionStart = nil
	t.WorkSessionEnd = nil
	t.AISuggested = false
	t.UpdatedAt = m.nowFn()
	m.tasks[id] = t
	return nil
}

// ScheduleStore implementation.

func (m *MemoryStore) GetAllSchedules(ctx context.Context) ([]Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *MemoryStore) CreateSchedule(ctx context.Context, s *Schedule) (*Schedule, error) {
	if s.Title == "" {
		return nil, ErrEmptyTitle
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := *s
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = m.nowFn()
	m.schedules[created.ID] = created
	return &created, nil
}

// PencilStore implementation.

func (m *MemoryStore) GetPencil(ctx context.Context, suggestionID string) (*Pencil, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pencils[suggestionID]
	if !ok {
		return nil, ErrPencilNotFound
	}
	return &p, nil
}

func (m *MemoryStore) SetPencil(ctx context.Context, p *Pencil) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *p
	if stored.PinnedAt.IsZero() {
		stored.PinnedAt = m.nowFn()
	}
	m.pencils[stored.SuggestionID] = stored
	return nil
}

func (m *MemoryStore) DeletePencil(ctx context.Context, suggestionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pencils, suggestionID)
	return nil
}

// Views return single-interface adapters so one MemoryStore can serve all
// three store dependencies.

// Tasks returns the TaskStore view.
func (m *MemoryStore) Tasks() TaskStore { return m }

// Schedules returns the ScheduleStore view.
func (m *MemoryStore) Schedules() ScheduleStore { return scheduleView{m} }

// Pencils returns the PencilStore view.
func (m *MemoryStore) Pencils() PencilStore { return pencilView{m} }

type scheduleView struct{ m *MemoryStore }

func (v scheduleView) GetAll(ctx context.Context) ([]Schedule, error) { return v.m.GetAllSchedules(ctx) }
func (v scheduleView) Create(ctx context.Context, s *Schedule) (*Schedule, error) {
	return v.m.CreateSchedule(ctx, s)
}

type pencilView struct{ m *MemoryStore }

func (v pencilView) Get(ctx context.Context, id string) (*Pencil, error) { return v.m.GetPencil(ctx, id) }
func (v pencilView) Set(ctx context.Context, p *Pencil) error            { return v.m.SetPencil(ctx, p) }
func (v pencilView) Delete(ctx context.Context, id string) error         { return v.m.DeletePencil(ctx, id) }
