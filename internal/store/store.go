// Package store provides durable persistence for tasks, schedules, and
// penciled-in suggestion slots.
//
// The scheduling engine itself performs no I/O; it consumes snapshots
// fetched through these interfaces and writes back only through
// ScheduleWorkSession and ClearWorkSession.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrPencilNotFound   = errors.New("pencil entry not found")
	ErrEmptyTitle       = errors.New("title is required")
)

// TaskStore defines task persistence.
type TaskStore interface {
	// GetAll returns every task.
	GetAll(ctx context.Context) ([]Task, error)

	// GetByID returns a task by id, or ErrTaskNotFound.
	GetByID(ctx context.Context, id string) (*Task, error)

	// Create persists a new task and returns it with identity and
	// timestamps assigned.
	Create(ctx context.Context, t *Task) (*Task, error)

	// Update applies a partial update to a task.
	Update(ctx context.Context, id string, u TaskUpdate) error

	// ScheduleWorkSession writes the work-session window onto a task.
	ScheduleWorkSession(ctx context.Context, id string, start, end time.Time, aiSuggested bool) error

	// ClearWorkSession removes the work-session window from a task.
	// Clearing an already-clear window is a no-op.
	ClearWorkSession(ctx context.Context, id string) error
}

// ScheduleStore defines calendar-entry persistence. Entries are read-only
// to the scheduling engine.
type ScheduleStore interface {
	// GetAll returns every schedule entry.
	GetAll(ctx context.Context) ([]Schedule, error)

	// Create persists a new schedule entry.
	Create(ctx context.Context, s *Schedule) (*Schedule, error)
}

// PencilStore defines persistence for penciled-in suggestion slots,
// keyed by suggestion id. See Pencil for the regeneration caveat.
type PencilStore interface {
	// Get returns the pencil entry for a suggestion id, or
	// ErrPencilNotFound.
	Get(ctx context.Context, suggestionID string) (*Pencil, error)

	// Set stores or replaces a pencil entry.
	Set(ctx context.Context, p *Pencil) error

	// Delete removes a pencil entry. Deleting a missing entry is a no-op.
	Delete(ctx context.Context, suggestionID string) error
}
