package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "plannerd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_TaskRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	due := time.Date(2025, 6, 5, 17, 0, 0, 0, time.UTC)
	created, err := s.Create(ctx, &Task{
		Title:          "Write report",
		Priority:       PriorityHigh,
		Status:         StatusInProgress,
		EstimatedHours: 2.5,
		DueDate:        &due,
		DueHasTime:     true,
		EnergyLevel:    EnergyHigh,
		Context:        ContextBusiness,
		Tags:           []string{"work", "q2"},
		ProjectID:      "proj-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.InDelta(t, 2.5, got.EstimatedHours, 1e-9)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.True(t, got.DueHasTime)
	assert.Equal(t, EnergyHigh, got.EnergyLevel)
	assert.Equal(t, ContextBusiness, got.Context)
	assert.Equal(t, []string{"work", "q2"}, got.Tags)
	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Nil(t, got.WorkSessionStart)
}

func TestSQLiteStore_CreateValidation(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, &Task{})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	created, err := s.Create(ctx, &Task{Title: "Defaults"})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.Equal(t, StatusTodo, created.Status)
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSQLiteStore_Update(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &Task{Title: "Write report", EstimatedHours: 2})
	require.NoError(t, err)

	title := "Write quarterly report"
	status := StatusCompleted
	require.NoError(t, s.Update(ctx, created.ID, TaskUpdate{
		Title:  &title,
		Status: &status,
		Tags:   []string{"done"},
	}))

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []string{"done"}, got.Tags)
	assert.InDelta(t, 2, got.EstimatedHours, 1e-9)

	// Empty update is a no-op, not an error.
	require.NoError(t, s.Update(ctx, created.ID, TaskUpdate{}))

	assert.ErrorIs(t, s.Update(ctx, "missing", TaskUpdate{Title: &title}), ErrTaskNotFound)
}

func TestSQLiteStore_WorkSession(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &Task{Title: "Write report", EstimatedHours: 2})
	require.NoError(t, err)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.ScheduleWorkSession(ctx, created.ID, start, start.Add(2*time.Hour), true))

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkSessionStart)
	assert.True(t, got.WorkSessionStart.Equal(start))
	require.NotNil(t, got.WorkSessionEnd)
	assert.True(t, got.WorkSessionEnd.Equal(start.Add(2*time.Hour)))
	assert.True(t, got.AISuggested)

	require.NoError(t, s.ClearWorkSession(ctx, created.ID))
	got, err = s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WorkSessionStart)
	assert.False(t, got.AISuggested)

	assert.ErrorIs(t, s.ScheduleWorkSession(ctx, "missing", start, start.Add(time.Hour), false), ErrTaskNotFound)
}

func TestSQLiteStore_Schedules(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Schedules().Create(ctx, &Schedule{})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	created, err := s.Schedules().Create(ctx, &Schedule{
		Title:     "Counseling session",
		StartDate: time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC),
		EventType: "counseling",
		TaskID:    "task-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	all, err := s.Schedules().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Counseling session", all[0].Title)
	assert.Equal(t, "counseling", all[0].EventType)
	assert.Equal(t, "task-1", all[0].TaskID)
	assert.True(t, all[0].StartDate.Equal(created.StartDate))
}

func TestSQLiteStore_Pencils(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Pencils().Get(ctx, "sg-1")
	assert.ErrorIs(t, err, ErrPencilNotFound)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Pencils().Set(ctx, &Pencil{
		SuggestionID: "sg-1", TaskID: "task-1",
		Start: start, End: start.Add(time.Hour),
	}))

	got, err := s.Pencils().Get(ctx, "sg-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.True(t, got.Start.Equal(start))
	assert.False(t, got.PinnedAt.IsZero())

	// Upsert replaces the slot in place.
	require.NoError(t, s.Pencils().Set(ctx, &Pencil{
		SuggestionID: "sg-1", TaskID: "task-2",
		Start: start.Add(time.Hour), End: start.Add(2 * time.Hour),
	}))
	got, err = s.Pencils().Get(ctx, "sg-1")
	require.NoError(t, err)
	assert.Equal(t, "task-2", got.TaskID)

	require.NoError(t, s.Pencils().Delete(ctx, "sg-1"))
	_, err = s.Pencils().Get(ctx, "sg-1")
	assert.ErrorIs(t, err, ErrPencilNotFound)

	require.NoError(t, s.Pencils().Delete(ctx, "sg-1"))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plannerd.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	created, err := s.Create(ctx, &Task{Title: "Survives restart", EstimatedHours: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Survives restart", got.Title)
}
