package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/breaks"
	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/store"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
)

// Tuesday morning, before business hours, so suggestion slots are
// deterministic regardless of when the tests run.
var testNow = time.Date(2025, 6, 3, 7, 0, 0, 0, time.Local)

func testWindow() (time.Time, time.Time) {
	start := time.Date(2025, 6, 3, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 7)
}

func newTestService(t *testing.T, mem *store.MemoryStore, cfg Config, nc *nats.Conn) Service {
	t.Helper()

	gen, err := breaks.NewGenerator(breaks.DefaultPreferences(), zap.NewNop())
	require.NoError(t, err)

	engine := suggest.NewEngine(suggest.Config{}, zap.NewNop()).
		WithNow(func() time.Time { return testNow })

	svc, err := NewService(cfg, mem.Tasks(), mem.Schedules(), mem.Pencils(),
		gen, engine, ContextIdentity{}, nc, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func authedCtx() context.Context {
	return WithUser(context.Background(), "local")
}

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNewService_Validation(t *testing.T) {
	mem := store.NewMemoryStore()
	gen, err := breaks.NewGenerator(breaks.DefaultPreferences(), nil)
	require.NoError(t, err)
	engine := suggest.NewEngine(suggest.Config{}, nil)

	_, err = NewService(Config{}, nil, mem.Schedules(), mem.Pencils(), gen, engine, ContextIdentity{}, nil, nil)
	assert.ErrorContains(t, err, "task store")

	_, err = NewService(Config{}, mem.Tasks(), nil, mem.Pencils(), gen, engine, ContextIdentity{}, nil, nil)
	assert.ErrorContains(t, err, "schedule store")

	_, err = NewService(Config{}, mem.Tasks(), mem.Schedules(), nil, gen, engine, ContextIdentity{}, nil, nil)
	assert.ErrorContains(t, err, "pencil store")

	_, err = NewService(Config{}, mem.Tasks(), mem.Schedules(), mem.Pencils(), nil, engine, ContextIdentity{}, nil, nil)
	assert.ErrorContains(t, err, "break generator")

	_, err = NewService(Config{}, mem.Tasks(), mem.Schedules(), mem.Pencils(), gen, nil, ContextIdentity{}, nil, nil)
	assert.ErrorContains(t, err, "suggestion engine")

	_, err = NewService(Config{}, mem.Tasks(), mem.Schedules(), mem.Pencils(), gen, engine, nil, nil, nil)
	assert.ErrorContains(t, err, "identity provider")

	// nil logger and nil NATS connection are both acceptable
	svc, err := NewService(Config{}, mem.Tasks(), mem.Schedules(), mem.Pencils(), gen, engine, ContextIdentity{}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCalendarData(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	due := time.Date(2025, 6, 5, 0, 0, 0, 0, time.Local)
	_, err := mem.Create(ctx, &store.Task{
		Title:          "Write report",
		Priority:       store.PriorityHigh,
		Status:         store.StatusTodo,
		EstimatedHours: 2,
		DueDate:        &due,
	})
	require.NoError(t, err)

	scheduled, err := mem.Create(ctx, &store.Task{
		Title:          "Review PRs",
		Priority:       store.PriorityMedium,
		Status:         store.StatusTodo,
		EstimatedHours: 1,
	})
	require.NoError(t, err)
	wsStart := time.Date(2025, 6, 4, 10, 0, 0, 0, time.Local)
	require.NoError(t, mem.ScheduleWorkSession(ctx, scheduled.ID, wsStart, wsStart.Add(time.Hour), false))

	_, err = mem.CreateSchedule(ctx, &store.Schedule{
		Title:     "Dentist",
		StartDate: time.Date(2025, 6, 4, 14, 0, 0, 0, time.Local),
		EndDate:   time.Date(2025, 6, 4, 15, 0, 0, 0, time.Local),
		EventType: "appointment",
	})
	require.NoError(t, err)

	svc := newTestService(t, mem, Config{}, nil)
	start, end := testWindow()
	data, err := svc.CalendarData(ctx, start, end)
	require.NoError(t, err)

	// One work session, one deadline marker, the fixed appointment, plus
	// generated breaks for the week.
	assert.Len(t, data.WorkSessions, 1)
	assert.Equal(t, "Review PRs", data.WorkSessions[0].Title)

	require.Len(t, data.Deadlines, 1)
	assert.True(t, data.Deadlines[0].AllDay)

	var foundAppointment bool
	for _, e := range data.FixedEvents {
		if e.Title == "Dentist" {
			foundAppointment = true
		}
		assert.False(t, e.Editable)
	}
	assert.True(t, foundAppointment, "appointment should be fixed")

	var breakCount int
	for _, e := range data.Events {
		if calendar.IsBreakType(e.Type) {
			breakCount++
		}
	}
	assert.Greater(t, breakCount, 0, "breaks should be injected")

	// The unscheduled task should attract a suggestion; the scheduled
	// one (AI flag off, manually blocked) should not.
	require.Len(t, data.Suggestions, 1)
	assert.Equal(t, "Write report", data.Suggestions[0].TaskTitle)
}

func TestCalendarData_EmptyWindow(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), Config{}, nil)
	start, _ := testWindow()

	_, err := svc.CalendarData(authedCtx(), start, start)
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, err = svc.CalendarData(authedCtx(), start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestCalendarData_Unauthenticated(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), Config{}, nil)
	start, end := testWindow()

	_, err := svc.CalendarData(context.Background(), start, end)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Reset(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = svc.DenySuggestion(context.Background(), "sg-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMarkdownSchedules(t *testing.T) {
	blob := "9:00 AM - 10:30 AM - Deep work on report (1.5 hours) (Priority: High)\nnot a time block\n"
	svc := newTestService(t, store.NewMemoryStore(), Config{
		MarkdownSchedules: map[string]string{
			"2025-06-04": blob,
			"not-a-date": blob, // skipped with a warning
		},
	}, nil)

	start, end := testWindow()
	data, err := svc.CalendarData(authedCtx(), start, end)
	require.NoError(t, err)

	var found bool
	for _, e := range data.Events {
		if e.Title == "Deep work on report" {
			found = true
			assert.Equal(t, time.Date(2025, 6, 4, 9, 0, 0, 0, time.Local), e.Start)
			assert.Equal(t, time.Date(2025, 6, 4, 10, 30, 0, 0, time.Local), e.End)
		}
	}
	assert.True(t, found, "markdown block should surface as an event")
}

func TestApplySuggestion(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	task, err := mem.Create(ctx, &store.Task{
		Title:          "Write report",
		Priority:       store.PriorityHigh,
		Status:         store.StatusTodo,
		EstimatedHours: 2,
	})
	require.NoError(t, err)

	svc := newTestService(t, mem, Config{}, nil)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	err = svc.ApplySuggestion(ctx, &suggest.Suggestion{
		ID:     "sg-1",
		TaskID: task.ID,
		Start:  start,
		End:    start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	got, err := mem.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkSessionStart)
	require.NotNil(t, got.WorkSessionEnd)
	assert.True(t, got.WorkSessionStart.Equal(start))
	assert.True(t, got.WorkSessionEnd.Equal(start.Add(2*time.Hour)))
	assert.True(t, got.AISuggested)
}

func TestApplySuggestion_CreatesMissingTask(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()
	svc := newTestService(t, mem, Config{}, nil)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	err := svc.ApplySuggestion(ctx, &suggest.Suggestion{
		ID:           "sg-adhoc",
		TaskID:       "no-such-task",
		TaskTitle:    "Ad-hoc work",
		TaskPriority: store.PriorityMedium,
		Start:        start,
		End:          start.Add(90 * time.Minute),
	})
	require.NoError(t, err)

	tasks, err := mem.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ad-hoc work", tasks[0].Title)
	assert.InDelta(t, 1.5, tasks[0].EstimatedHours, 1e-9)
	require.NotNil(t, tasks[0].WorkSessionStart)
	assert.True(t, tasks[0].AISuggested)
}

func TestApplySuggestion_Nil(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), Config{}, nil)
	err := svc.ApplySuggestion(authedCtx(), nil)
	assert.ErrorIs(t, err, ErrNilSuggestion)
}

func TestApplyAll_StopsOnError(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	task, err := mem.Create(ctx, &store.Task{
		Title:          "Write report",
		Priority:       store.PriorityHigh,
		Status:         store.StatusTodo,
		EstimatedHours: 1,
	})
	require.NoError(t, err)

	svc := newTestService(t, mem, Config{}, nil)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	suggestions := []suggest.Suggestion{
		{ID: "sg-1", TaskID: task.ID, Start: start, End: start.Add(time.Hour)},
		// Unknown task with no title: the implicit create fails, so the
		// bulk apply stops here.
		{ID: "sg-2", TaskID: "missing", Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)},
		{ID: "sg-3", TaskID: task.ID, Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)},
	}

	results, err := svc.ApplyAll(ctx, suggestions)
	require.Error(t, err)
	require.Len(t, results, 2, "third suggestion is never attempted")

	assert.True(t, results[0].Applied)
	assert.False(t, results[1].Applied)
	assert.NotEmpty(t, results[1].Error)

	// The first application stands.
	got, err := mem.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkSessionStart)
	assert.True(t, got.WorkSessionStart.Equal(start))
}

func TestDenySuggestion_IsStateless(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()
	svc := newTestService(t, mem, Config{}, nil)

	require.NoError(t, svc.DenySuggestion(ctx, "sg-1"))

	tasks, err := mem.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPencilLifecycle(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()
	svc := newTestService(t, mem, Config{}, nil)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	sg := &suggest.Suggestion{ID: "sg-1", TaskID: "task-1", Start: start, End: start.Add(time.Hour)}

	pinned, err := svc.IsPenciledIn(ctx, sg.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	require.NoError(t, svc.PencilIn(ctx, sg))

	pinned, err = svc.IsPenciledIn(ctx, sg.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	require.NoError(t, svc.Unpencil(ctx, sg.ID))

	pinned, err = svc.IsPenciledIn(ctx, sg.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	// Unpencil of an unknown id is a no-op.
	require.NoError(t, svc.Unpencil(ctx, "never-pinned"))

	err = svc.PencilIn(ctx, nil)
	assert.ErrorIs(t, err, ErrNilSuggestion)
}

func TestReset(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	for _, title := range []string{"First", "Second"} {
		task, err := mem.Create(ctx, &store.Task{
			Title: title, Priority: store.PriorityMedium,
			Status: store.StatusTodo, EstimatedHours: 1,
		})
		require.NoError(t, err)
		require.NoError(t, mem.ScheduleWorkSession(ctx, task.ID, start, start.Add(time.Hour), true))
	}
	_, err := mem.Create(ctx, &store.Task{
		Title: "Unscheduled", Priority: store.PriorityLow,
		Status: store.StatusTodo, EstimatedHours: 1,
	})
	require.NoError(t, err)

	svc := newTestService(t, mem, Config{}, nil)

	cleared, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	tasks, err := mem.GetAll(ctx)
	require.NoError(t, err)
	for _, task := range tasks {
		assert.Nil(t, task.WorkSessionStart)
		assert.Nil(t, task.WorkSessionEnd)
		assert.False(t, task.AISuggested)
	}

	// Idempotent.
	cleared, err = svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestCalendarDataWithReset(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	task, err := mem.Create(ctx, &store.Task{
		Title: "Write report", Priority: store.PriorityHigh,
		Status: store.StatusTodo, EstimatedHours: 2,
	})
	require.NoError(t, err)
	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.ScheduleWorkSession(ctx, task.ID, start, start.Add(2*time.Hour), true))

	svc := newTestService(t, mem, Config{}, nil)
	wStart, wEnd := testWindow()
	data, err := svc.CalendarDataWithReset(ctx, wStart, wEnd)
	require.NoError(t, err)

	assert.Empty(t, data.WorkSessions)
	require.Len(t, data.Suggestions, 1, "cleared task becomes suggestible again")

	got, err := mem.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WorkSessionStart)
}

func TestForceRegenerate_DoesNotPersist(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := authedCtx()

	task, err := mem.Create(ctx, &store.Task{
		Title: "Write report", Priority: store.PriorityHigh,
		Status: store.StatusTodo, EstimatedHours: 2,
	})
	require.NoError(t, err)
	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	require.NoError(t, mem.ScheduleWorkSession(ctx, task.ID, start, start.Add(2*time.Hour), true))

	svc := newTestService(t, mem, Config{}, nil)
	wStart, wEnd := testWindow()
	data, err := svc.ForceRegenerate(ctx, wStart, wEnd)
	require.NoError(t, err)

	assert.Empty(t, data.WorkSessions, "windows are stripped from the view")
	require.Len(t, data.Suggestions, 1)

	// Stored task is untouched.
	got, err := mem.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkSessionStart)
	assert.True(t, got.AISuggested)
}

func TestLifecycleEventsPublished(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	appliedSub, err := nc.SubscribeSync(SubjectSuggestionApplied)
	require.NoError(t, err)
	resetSub, err := nc.SubscribeSync(SubjectScheduleReset)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	ctx := authedCtx()
	task, err := mem.Create(ctx, &store.Task{
		Title: "Write report", Priority: store.PriorityHigh,
		Status: store.StatusTodo, EstimatedHours: 1,
	})
	require.NoError(t, err)

	svc := newTestService(t, mem, Config{}, nc)

	start := time.Date(2025, 6, 3, 9, 0, 0, 0, time.Local)
	require.NoError(t, svc.ApplySuggestion(ctx, &suggest.Suggestion{
		ID: "sg-1", TaskID: task.ID, Start: start, End: start.Add(time.Hour),
	}))

	msg, err := appliedSub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	var applied map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &applied))
	assert.Equal(t, "sg-1", applied["suggestion_id"])
	assert.Equal(t, task.ID, applied["task_id"])

	cleared, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	msg, err = resetSub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	var reset map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &reset))
	assert.Equal(t, float64(1), reset["cleared"])
}
