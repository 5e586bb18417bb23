package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements TaskStore, ScheduleStore, and PencilStore on a
// single SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
	nowFn   func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFn:   time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		priority         TEXT NOT NULL DEFAULT 'medium',
		status           TEXT NOT NULL DEFAULT 'todo',
		estimated_hours  REAL NOT NULL DEFAULT 0,
		due_date         TEXT,
		due_has_time     INTEGER NOT NULL DEFAULT 0,
		ws_start         TEXT,
		ws_end           TEXT,
		ai_suggested     INTEGER NOT NULL DEFAULT 0,
		sched_start      TEXT,
		sched_end        TEXT,
		time_blocked     INTEGER NOT NULL DEFAULT 0,
		energy_level     TEXT,
		task_context     TEXT,
		tags             TEXT,
		project_id       TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);

	CREATE TABLE IF NOT EXISTS schedules (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		start_date  TEXT NOT NULL,
		end_date    TEXT NOT NULL,
		all_day     INTEGER NOT NULL DEFAULT 0,
		event_type  TEXT,
		task_id     TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_schedules_start ON schedules(start_date);

	CREATE TABLE IF NOT EXISTS pencils (
		suggestion_id TEXT PRIMARY KEY,
		task_id       TEXT NOT NULL,
		start_at      TEXT NOT NULL,
		end_at        TEXT NOT NULL,
		pinned_at     TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Views matching MemoryStore, so callers can treat both stores uniformly.

// Tasks returns the TaskStore view.
func (s *SQLiteStore) Tasks() TaskStore { return s }

// Schedules returns the ScheduleStore view.
func (s *SQLiteStore) Schedules() ScheduleStore { return sqliteScheduleView{s} }

// Pencils returns the PencilStore view.
func (s *SQLiteStore) Pencils() PencilStore { return sqlitePencilView{s} }

const taskColumns = `id, title, priority, status, estimated_hours, due_date, due_has_time,
	ws_start, ws_end, ai_suggested, sched_start, sched_end, time_blocked,
	energy_level, task_context, tags, project_id, created_at, updated_at`

func (s *SQLiteStore) GetAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (s *SQLiteStore) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.Title == "" {
		return nil, ErrEmptyTitle
	}

	created := *t
	if created.ID == "" {
		created.ID = s.newID()
	}
	if created.Priority == "" {
		created.Priority = PriorityMedium
	}
	if created.Status == "" {
		created.Status = StatusTodo
	}
	now := s.nowFn().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	tags, err := json.Marshal(created.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Title, string(created.Priority), string(created.Status),
		created.EstimatedHours, timePtr(created.DueDate), boolInt(created.DueHasTime),
		timePtr(created.WorkSessionStart), timePtr(created.WorkSessionEnd), boolInt(created.AISuggested),
		timePtr(created.ScheduledStart), timePtr(created.ScheduledEnd), boolInt(created.TimeBlocked),
		string(created.EnergyLevel), string(created.Context), string(tags), created.ProjectID,
		created.CreatedAt.Format(time.RFC3339Nano), created.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &created, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, u TaskUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Priority != nil {
		add("priority", string(*u.Priority))
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.EstimatedHours != nil {
		add("estimated_hours", *u.EstimatedHours)
	}
	if u.DueDate != nil {
		add("due_date", u.DueDate.UTC().Format(time.RFC3339Nano))
	}
	if u.DueHasTime != nil {
		add("due_has_time", boolInt(*u.DueHasTime))
	}
	if u.EnergyLevel != nil {
		add("energy_level", string(*u.EnergyLevel))
	}
	if u.Context != nil {
		add("task_context", string(*u.Context))
	}
	if u.Tags != nil {
		tags, err := json.Marshal(u.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		add("tags", string(tags))
	}
	if u.ProjectID != nil {
		add("project_id", *u.ProjectID)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", s.nowFn().UTC().Format(time.RFC3339Nano))

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return notFoundIfZero(res, ErrTaskNotFound)
}

func (s *SQLiteStore) ScheduleWorkSession(ctx context.Context, id string, start, end time.Time, aiSuggested bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET ws_start = ?, ws_end = ?, ai_suggested = ?, updated_at = ? WHERE id = ?`,
		start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano),
		boolInt(aiSuggested), s.nowFn().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("schedule work session: %w", err)
	}
	return notFoundIfZero(res, ErrTaskNotFound)
}

func (s *SQLiteStore) ClearWorkSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET ws_start = NULL, ws_end = NULL, ai_suggested = 0, updated_at = ? WHERE id = ?`,
		s.nowFn().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("clear work session: %w", err)
	}
	return notFoundIfZero(res, ErrTaskNotFound)
}

type sqliteScheduleView struct{ s *SQLiteStore }

func (v sqliteScheduleView) GetAll(ctx context.Context) ([]Schedule, error) {
	rows, err := v.s.db.QueryContext(ctx,
		`SELECT id, title, start_date, end_date, all_day, event_type, task_id, created_at
		 FROM schedules ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		var sc Schedule
		var start, end, created string
		var allDay int
		var eventType, taskID sql.NullString
		if err := rows.Scan(&sc.ID, &sc.Title, &start, &end, &allDay, &eventType, &taskID, &created); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sc.StartDate = mustParseTime(start)
		sc.EndDate = mustParseTime(end)
		sc.AllDay = allDay != 0
		sc.EventType = eventType.String
		sc.TaskID = taskID.String
		sc.CreatedAt = mustParseTime(created)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (v sqliteScheduleView) Create(ctx context.Context, sc *Schedule) (*Schedule, error) {
	if sc.Title == "" {
		return nil, ErrEmptyTitle
	}

	created := *sc
	if created.ID == "" {
		created.ID = v.s.newID()
	}
	created.CreatedAt = v.s.nowFn().UTC()

	_, err := v.s.db.ExecContext(ctx,
		`INSERT INTO schedules (id, title, start_date, end_date, all_day, event_type, task_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Title,
		created.StartDate.UTC().Format(time.RFC3339Nano), created.EndDate.UTC().Format(time.RFC3339Nano),
		boolInt(created.AllDay), created.EventType, created.TaskID,
		created.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	return &created, nil
}

type sqlitePencilView struct{ s *SQLiteStore }

func (v sqlitePencilView) Get(ctx context.Context, suggestionID string) (*Pencil, error) {
	row := v.s.db.QueryRowContext(ctx,
		`SELECT suggestion_id, task_id, start_at, end_at, pinned_at FROM pencils WHERE suggestion_id = ?`,
		suggestionID)

	var p Pencil
	var start, end, pinned string
	err := row.Scan(&p.SuggestionID, &p.TaskID, &start, &end, &pinned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPencilNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pencil: %w", err)
	}
	p.Start = mustParseTime(start)
	p.End = mustParseTime(end)
	p.PinnedAt = mustParseTime(pinned)
	return &p, nil
}

func (v sqlitePencilView) Set(ctx context.Context, p *Pencil) error {
	pinned := p.PinnedAt
	if pinned.IsZero() {
		pinned = v.s.nowFn()
	}
	_, err := v.s.db.ExecContext(ctx,
		`INSERT INTO pencils (suggestion_id, task_id, start_at, end_at, pinned_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(suggestion_id) DO UPDATE SET
			task_id = excluded.task_id, start_at = excluded.start_at,
			end_at = excluded.end_at, pinned_at = excluded.pinned_at`,
		p.SuggestionID, p.TaskID,
		p.Start.UTC().Format(time.RFC3339Nano), p.End.UTC().Format(time.RFC3339Nano),
		pinned.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert pencil: %w", err)
	}
	return nil
}

func (v sqlitePencilView) Delete(ctx context.Context, suggestionID string) error {
	_, err := v.s.db.ExecContext(ctx, `DELETE FROM pencils WHERE suggestion_id = ?`, suggestionID)
	if err != nil {
		return fmt.Errorf("delete pencil: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var priority, status string
	var due, wsStart, wsEnd, schedStart, schedEnd sql.NullString
	var dueHasTime, aiSuggested, timeBlocked int
	var energy, taskCtx, tags, projectID sql.NullString
	var created, updated string

	err := sc.Scan(&t.ID, &t.Title, &priority, &status, &t.EstimatedHours,
		&due, &dueHasTime, &wsStart, &wsEnd, &aiSuggested,
		&schedStart, &schedEnd, &timeBlocked,
		&energy, &taskCtx, &tags, &projectID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.DueDate = nullTime(due)
	t.DueHasTime = dueHasTime != 0
	t.WorkSessionStart = nullTime(wsStart)
	t.WorkSessionEnd = nullTime(wsEnd)
	t.AISuggested = aiSuggested != 0
	t.ScheduledStart = nullTime(schedStart)
	t.ScheduledEnd = nullTime(schedEnd)
	t.TimeBlocked = timeBlocked != 0
	t.EnergyLevel = EnergyLevel(energy.String)
	t.Context = TaskContext(taskCtx.String)
	t.ProjectID = projectID.String
	t.CreatedAt = mustParseTime(created)
	t.UpdatedAt = mustParseTime(updated)

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return &t, nil
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := mustParseTime(s.String)
	return &t
}

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Stored by this package, so a parse failure means corruption.
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFoundIfZero(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
