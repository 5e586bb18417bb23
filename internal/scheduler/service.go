// Package scheduler wires the source converters, break generator, and
// suggestion engine into the calendar service exposed to the API layer,
// and owns the suggestion lifecycle (apply, deny, pencil-in, reset).
//
// All operations are synchronous and single-threaded per call. Apply and
// Reset issue sequential store writes with no transaction: a failure
// mid-loop leaves earlier tasks updated, and callers must treat the
// operation as at least partially applied.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/breaks"
	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/store"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
)

const instrumentationName = "github.com/fyrsmithlabs/plannerd/internal/scheduler"

// Service exposes the calendar reconciliation and suggestion lifecycle
// operations.
type Service interface {
	// CalendarData computes the merged timeline and fresh suggestions
	// for a window.
	CalendarData(ctx context.Context, start, end time.Time) (*CalendarData, error)

	// CalendarDataWithReset clears every scheduled work session, then
	// recomputes.
	CalendarDataWithReset(ctx context.Context, start, end time.Time) (*CalendarData, error)

	// ForceRegenerate recomputes with work-session windows stripped from
	// an in-memory copy of the tasks. Nothing is persisted; diagnostic
	// entry point.
	ForceRegenerate(ctx context.Context, start, end time.Time) (*CalendarData, error)

	// ApplySuggestion writes the suggested window onto the underlying
	// task, creating the task first when the id does not resolve.
	ApplySuggestion(ctx context.Context, s *suggest.Suggestion) error

	// ApplyAll applies suggestions sequentially, collecting per-item
	// results. Stops at the first store error.
	ApplyAll(ctx context.Context, suggestions []suggest.Suggestion) ([]ApplyResult, error)

	// DenySuggestion records nothing durable; denial is a transient UI
	// state and the same suggestion may be regenerated next cycle.
	DenySuggestion(ctx context.Context, id string) error

	// PencilIn tentatively pins a suggestion slot.
	PencilIn(ctx context.Context, s *suggest.Suggestion) error

	// Unpencil removes a pin.
	Unpencil(ctx context.Context, id string) error

	// IsPenciledIn reports whether a suggestion id is pinned.
	IsPenciledIn(ctx context.Context, id string) (bool, error)

	// Reset clears the work-session window on every task that has one.
	// Idempotent; returns the number of tasks cleared.
	Reset(ctx context.Context) (int, error)
}

// Config configures the scheduler service.
type Config struct {
	// MarkdownSchedules holds legacy free-text daily schedules keyed by
	// ISO date, parsed into events on render.
	MarkdownSchedules map[string]string
}

// service implements Service.
type service struct {
	tasks     store.TaskStore
	schedules store.ScheduleStore
	pencils   store.PencilStore
	breaks    *breaks.Generator
	engine    *suggest.Engine
	identity  IdentityProvider
	nc        *nats.Conn
	logger    *zap.Logger
	cfg       Config
	nowFn     func() time.Time

	meter            metric.Meter
	generatedCounter metric.Int64Counter
	appliedCounter   metric.Int64Counter
	resetCounter     metric.Int64Counter
}

// NewService creates the scheduler service. The NATS connection is
// optional; nil disables lifecycle notifications.
func NewService(
	cfg Config,
	tasks store.TaskStore,
	schedules store.ScheduleStore,
	pencils store.PencilStore,
	gen *breaks.Generator,
	engine *suggest.Engine,
	identity IdentityProvider,
	nc *nats.Conn,
	logger *zap.Logger,
) (Service, error) {
	if tasks == nil {
		return nil, errors.New("task store is required")
	}
	if schedules == nil {
		return nil, errors.New("schedule store is required")
	}
	if pencils == nil {
		return nil, errors.New("pencil store is required")
	}
	if gen == nil {
		return nil, errors.New("break generator is required")
	}
	if engine == nil {
		return nil, errors.New("suggestion engine is required")
	}
	if identity == nil {
		return nil, errors.New("identity provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		tasks:     tasks,
		schedules: schedules,
		pencils:   pencils,
		breaks:    gen,
		engine:    engine,
		identity:  identity,
		nc:        nc,
		logger:    logger,
		cfg:       cfg,
		nowFn:     time.Now,
		meter:     otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.generatedCounter, err = s.meter.Int64Counter(
		"plannerd.suggestions.generated_total",
		metric.WithDescription("Total scheduling suggestions generated"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		s.logger.Warn("failed to create generated counter", zap.Error(err))
	}

	s.appliedCounter, err = s.meter.Int64Counter(
		"plannerd.suggestions.applied_total",
		metric.WithDescription("Total scheduling suggestions applied to tasks"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		s.logger.Warn("failed to create applied counter", zap.Error(err))
	}

	s.resetCounter, err = s.meter.Int64Counter(
		"plannerd.schedule.resets_total",
		metric.WithDescription("Total schedule reset operations"),
		metric.WithUnit("{reset}"),
	)
	if err != nil {
		s.logger.Warn("failed to create reset counter", zap.Error(err))
	}
}

func (s *service) CalendarData(ctx context.Context, start, end time.Time) (*CalendarData, error) {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if !end.After(start) {
		return nil, ErrEmptyWindow
	}

	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return s.compute(ctx, tasks, start, end)
}

func (s *service) CalendarDataWithReset(ctx context.Context, start, end time.Time) (*CalendarData, error) {
	if _, err := s.Reset(ctx); err != nil {
		return nil, err
	}
	return s.CalendarData(ctx, start, end)
}

func (s *service) ForceRegenerate(ctx context.Context, start, end time.Time) (*CalendarData, error) {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if !end.After(start) {
		return nil, ErrEmptyWindow
	}

	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	// Strip scheduled windows from the in-memory copy only.
	stripped := make([]store.Task, len(tasks))
	for i, t := range tasks {
		t.WorkSessionStart = nil
		t.WorkSessionEnd = nil
		t.AISuggested = false
		stripped[i] = t
	}
	return s.compute(ctx, stripped, start, end)
}

// compute is the core read path: convert sources, inject breaks, run the
// suggestion engine, and slice the result into UI-facing subsets.
func (s *service) compute(ctx context.Context, tasks []store.Task, start, end time.Time) (*CalendarData, error) {
	schedules, err := s.schedules.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	events := calendar.FromTasks(tasks)
	events = append(events, calendar.FromSchedules(schedules)...)
	events = append(events, s.markdownEvents()...)
	events = calendar.InWindow(events, start, end)

	events = append(events, s.breaks.Generate(start, end, events)...)

	suggestions := s.engine.Generate(tasks, events)
	if s.generatedCounter != nil {
		s.generatedCounter.Add(ctx, int64(len(suggestions)))
	}

	data := &CalendarData{Events: events, Suggestions: suggestions}
	for _, e := range events {
		if e.Type == calendar.TypeWorkSession {
			data.WorkSessions = append(data.WorkSessions, e)
		}
		if e.Type == calendar.TypeDeadline {
			data.Deadlines = append(data.Deadlines, e)
		}
		if !e.Editable {
			data.FixedEvents = append(data.FixedEvents, e)
		}
	}

	s.logger.Debug("calendar computed",
		zap.Int("events", len(events)),
		zap.Int("suggestions", len(suggestions)),
		zap.Time("start", start), zap.Time("end", end))
	return data, nil
}

// markdownEvents parses any configured legacy daily schedules.
func (s *service) markdownEvents() []calendar.Event {
	var out []calendar.Event
	for date, blob := range s.cfg.MarkdownSchedules {
		day, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			s.logger.Warn("skipping markdown schedule with bad date key", zap.String("date", date))
			continue
		}
		out = append(out, calendar.ParseDailyMarkdown(blob, day, s.logger)...)
	}
	return out
}

func (s *service) ApplySuggestion(ctx context.Context, sg *suggest.Suggestion) error {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if sg == nil {
		return ErrNilSuggestion
	}

	taskID := sg.TaskID
	_, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, store.ErrTaskNotFound) {
		// Ad-hoc suggestion: materialize a task from the denormalized
		// fields, then schedule it.
		created, cerr := s.tasks.Create(ctx, &store.Task{
			Title:          sg.TaskTitle,
			Priority:       sg.TaskPriority,
			Status:         store.StatusTodo,
			EstimatedHours: sg.End.Sub(sg.Start).Hours(),
			ProjectID:      sg.TaskProject,
		})
		if cerr != nil {
			return fmt.Errorf("create task for suggestion: %w", cerr)
		}
		taskID = created.ID
	} else if err != nil {
		return fmt.Errorf("resolve task: %w", err)
	}

	if err := s.tasks.ScheduleWorkSession(ctx, taskID, sg.Start, sg.End, true); err != nil {
		return fmt.Errorf("schedule work session: %w", err)
	}

	if s.appliedCounter != nil {
		s.appliedCounter.Add(ctx, 1)
	}
	s.publish(SubjectSuggestionApplied, map[string]any{
		"suggestion_id": sg.ID,
		"task_id":       taskID,
		"start":         sg.Start,
		"end":           sg.End,
	})
	s.logger.Info("suggestion applied",
		zap.String("suggestion_id", sg.ID), zap.String("task_id", taskID))
	return nil
}

func (s *service) ApplyAll(ctx context.Context, suggestions []suggest.Suggestion) ([]ApplyResult, error) {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	results := make([]ApplyResult, 0, len(suggestions))
	for i := range suggestions {
		sg := suggestions[i]
		err := s.ApplySuggestion(ctx, &sg)
		res := ApplyResult{SuggestionID: sg.ID, TaskID: sg.TaskID, Applied: err == nil}
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			// Sequential, no rollback: earlier applications stand.
			return results, fmt.Errorf("apply suggestion %s: %w", sg.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *service) DenySuggestion(ctx context.Context, id string) error {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	// Denial is deliberately stateless: suggestions are recomputed on
	// every read, so the same proposal may reappear next cycle.
	s.logger.Info("suggestion denied", zap.String("suggestion_id", id))
	return nil
}

func (s *service) PencilIn(ctx context.Context, sg *suggest.Suggestion) error {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if sg == nil {
		return ErrNilSuggestion
	}
	return s.pencils.Set(ctx, &store.Pencil{
		SuggestionID: sg.ID,
		TaskID:       sg.TaskID,
		Start:        sg.Start,
		End:          sg.End,
		PinnedAt:     s.nowFn(),
	})
}

func (s *service) Unpencil(ctx context.Context, id string) error {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return s.pencils.Delete(ctx, id)
}

func (s *service) IsPenciledIn(ctx context.Context, id string) (bool, error) {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	_, err := s.pencils.Get(ctx, id)
	if errors.Is(err, store.ErrPencilNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Reset(ctx context.Context) (int, error) {
	if _, err := s.identity.CurrentUser(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tasks: %w", err)
	}

	cleared := 0
	for _, t := range tasks {
		if t.WorkSessionStart == nil && t.WorkSessionEnd == nil {
			continue
		}
		if err := s.tasks.ClearWorkSession(ctx, t.ID); err != nil {
			// Sequential, no rollback: tasks cleared so far stay cleared.
			return cleared, fmt.Errorf("clear work session for %s: %w", t.ID, err)
		}
		cleared++
	}

	if s.resetCounter != nil {
		s.resetCounter.Add(ctx, 1)
	}
	s.publish(SubjectScheduleReset, map[string]any{"cleared": cleared})
	s.logger.Info("schedule reset", zap.Int("cleared", cleared))
	return cleared, nil
}

// publish sends a lifecycle notification; best effort when NATS is
// configured, silent no-op otherwise.
func (s *service) publish(subject string, payload map[string]any) {
	if s.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal lifecycle event", zap.Error(err))
		return
	}
	if err := s.nc.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish lifecycle event",
			zap.String("subject", subject), zap.Error(err))
	}
}
