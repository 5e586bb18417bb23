package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TaskCRUD(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	t.Run("create rejects empty title", func(t *testing.T) {
		_, err := m.Create(ctx, &Task{})
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("create fills defaults", func(t *testing.T) {
		created, err := m.Create(ctx, &Task{Title: "Write report", EstimatedHours: 2})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, PriorityMedium, created.Priority)
		assert.Equal(t, StatusTodo, created.Status)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("get by id", func(t *testing.T) {
		created, err := m.Create(ctx, &Task{Title: "Review PRs"})
		require.NoError(t, err)

		got, err := m.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Review PRs", got.Title)

		_, err = m.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("get all", func(t *testing.T) {
		tasks, err := m.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})
}

func TestMemoryStore_Update(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	created, err := m.Create(ctx, &Task{Title: "Write report", EstimatedHours: 2})
	require.NoError(t, err)

	title := "Write quarterly report"
	prio := PriorityUrgent
	due := time.Date(2025, 6, 5, 17, 0, 0, 0, time.UTC)
	hasTime := true
	energy := EnergyHigh
	taskCtx := ContextBusiness
	require.NoError(t, m.Update(ctx, created.ID, TaskUpdate{
		Title:      &title,
		Priority:   &prio,
		DueDate:    &due,
		DueHasTime: &hasTime,
		EnergyLevel: &energy,
		Context:    &taskCtx,
		Tags:       []string{"work", "q2"},
	}))

	got, err := m.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, PriorityUrgent, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.True(t, got.DueHasTime)
	assert.Equal(t, EnergyHigh, got.EnergyLevel)
	assert.Equal(t, ContextBusiness, got.Context)
	assert.Equal(t, []string{"work", "q2"}, got.Tags)

	// Untouched fields survive a partial update.
	assert.InDelta(t, 2, got.EstimatedHours, 1e-9)
	assert.Equal(t, StatusTodo, got.Status)

	assert.ErrorIs(t, m.Update(ctx, "missing", TaskUpdate{Title: &title}), ErrTaskNotFound)
}

func TestMemoryStore_WorkSession(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	created, err := m.Create(ctx, &Task{Title: "Write report", EstimatedHours: 2})
	require.NoError(t, err)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.ScheduleWorkSession(ctx, created.ID, start, start.Add(2*time.Hour), true))

	got, err := m.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkSessionStart)
	assert.True(t, got.WorkSessionStart.Equal(start))
	assert.True(t, got.AISuggested)

	require.NoError(t, m.ClearWorkSession(ctx, created.ID))
	got, err = m.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WorkSessionStart)
	assert.Nil(t, got.WorkSessionEnd)
	assert.False(t, got.AISuggested)

	// Clearing an already-clear task is a no-op, not an error.
	require.NoError(t, m.ClearWorkSession(ctx, created.ID))

	assert.ErrorIs(t, m.ScheduleWorkSession(ctx, "missing", start, start.Add(time.Hour), false), ErrTaskNotFound)
	assert.ErrorIs(t, m.ClearWorkSession(ctx, "missing"), ErrTaskNotFound)
}

func TestMemoryStore_Schedules(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, err := m.CreateSchedule(ctx, &Schedule{})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	created, err := m.CreateSchedule(ctx, &Schedule{
		Title:     "Dentist",
		StartDate: time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC),
		EventType: "appointment",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	all, err := m.GetAllSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Dentist", all[0].Title)
	assert.Equal(t, "appointment", all[0].EventType)
}

func TestMemoryStore_Pencils(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, err := m.GetPencil(ctx, "sg-1")
	assert.ErrorIs(t, err, ErrPencilNotFound)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	p := &Pencil{SuggestionID: "sg-1", TaskID: "task-1", Start: start, End: start.Add(time.Hour)}
	require.NoError(t, m.SetPencil(ctx, p))

	got, err := m.GetPencil(ctx, "sg-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.False(t, got.PinnedAt.IsZero(), "pinned timestamp is filled in")

	// Set is an upsert.
	p.TaskID = "task-2"
	require.NoError(t, m.SetPencil(ctx, p))
	got, err = m.GetPencil(ctx, "sg-1")
	require.NoError(t, err)
	assert.Equal(t, "task-2", got.TaskID)

	require.NoError(t, m.DeletePencil(ctx, "sg-1"))
	_, err = m.GetPencil(ctx, "sg-1")
	assert.ErrorIs(t, err, ErrPencilNotFound)

	// Deleting a missing pin is a no-op.
	require.NoError(t, m.DeletePencil(ctx, "sg-1"))
}

func TestMemoryStore_Views(t *testing.T) {
	m := NewMemoryStore()
	assert.NotNil(t, m.Tasks())
	assert.NotNil(t, m.Schedules())
	assert.NotNil(t, m.Pencils())

	// The views are live, not snapshots.
	ctx := context.Background()
	_, err := m.Tasks().Create(ctx, &Task{Title: "Via view"})
	require.NoError(t, err)
	tasks, err := m.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
