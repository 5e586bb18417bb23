package scheduler

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
)

var (
	// ErrNotAuthenticated is returned when no current user is
	// resolvable. Fatal to the current call.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrNilSuggestion = errors.New("suggestion is required")
	ErrEmptyWindow   = errors.New("end must be after start")
)

// IdentityProvider resolves the current user. The scheduler uses the
// identity only as an authorization precondition.
type IdentityProvider interface {
	// CurrentUser returns the authenticated user id, or an error when
	// the request carries no resolvable identity.
	CurrentUser(ctx context.Context) (string, error)
}

// CalendarData is the primary read result: the reconciled timeline plus
// fresh suggestions. FixedEvents is the subset of Events with
// Editable=false.
type CalendarData struct {
	Events      []calendar.Event     `json:"events"`
	Suggestions []suggest.Suggestion `json:"suggestions"`

	WorkSessions []calendar.Event `json:"work_sessions"`
	Deadlines    []calendar.Event `json:"deadlines"`
	FixedEvents  []calendar.Event `json:"fixed_events"`
}

// ApplyResult reports the outcome of one suggestion in a bulk apply.
type ApplyResult struct {
	SuggestionID string `json:"suggestion_id"`
	TaskID       string `json:"task_id"`
	Applied      bool   `json:"applied"`
	Error        string `json:"error,omitempty"`
}

// NATS subjects for lifecycle notifications.
const (
	SubjectSuggestionApplied = "planner.suggestion.applied"
	SubjectScheduleReset     = "planner.schedule.reset"
)
