package store

import "time"

// Priority is the user-assigned importance of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// EnergyLevel describes when a task is best worked on.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// TaskContext separates business work from personal work for slot placement.
// The empty value means the task inherits no restriction.
type TaskContext string

const (
	ContextBusiness TaskContext = "business"
	ContextPersonal TaskContext = "personal"
)

// Task is the durable task record.
//
// The scheduling engine reads every field but writes back only the
// work-session window (WorkSessionStart/End + AISuggested).
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`

	// Title is the human-readable task name.
	Title string `json:"title"`

	// Priority is one of low, medium, high, urgent.
	Priority Priority `json:"priority"`

	// Status is one of todo, in_progress, completed.
	Status Status `json:"status"`

	// EstimatedHours is the expected effort in hours. Must be positive
	// for the task to be eligible for scheduling suggestions.
	EstimatedHours float64 `json:"estimated_hours"`

	// DueDate is the optional deadline.
	DueDate *time.Time `json:"due_date,omitempty"`

	// DueHasTime reports whether DueDate carries a meaningful
	// time-of-day. A false value means the deadline is date-only and is
	// rendered as an all-day marker.
	DueHasTime bool `json:"due_has_time,omitempty"`

	// WorkSessionStart/End is the scheduled work window, written when a
	// suggestion is applied or when the user schedules work manually.
	WorkSessionStart *time.Time `json:"work_session_scheduled_start,omitempty"`
	WorkSessionEnd   *time.Time `json:"work_session_scheduled_end,omitempty"`

	// AISuggested marks the work-session window as engine-authored.
	// Engine-authored windows remain editable; user-authored ones do not.
	AISuggested bool `json:"ai_suggested,omitempty"`

	// ScheduledStart/End is a user-placed time block. Only honored when
	// TimeBlocked is set.
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`

	// TimeBlocked marks ScheduledStart/End as a hard user reservation.
	TimeBlocked bool `json:"is_time_blocked,omitempty"`

	// EnergyLevel is the optional energy profile of the task.
	EnergyLevel EnergyLevel `json:"energy_level,omitempty"`

	// Context is business, personal, or empty (no restriction).
	Context TaskContext `json:"task_context,omitempty"`

	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`

	// ProjectID is the optional owning project.
	ProjectID string `json:"project_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Schedule is a user-created calendar entry.
type Schedule struct {
	// ID is the unique identifier for this schedule entry.
	ID string `json:"id"`

	// Title is the display name.
	Title string `json:"title"`

	// StartDate/EndDate bound the entry. AllDay entries carry date-only
	// boundaries.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// AllDay marks a date-only entry.
	AllDay bool `json:"all_day,omitempty"`

	// EventType is free text. Entries whose type contains "counseling"
	// participate in the progress-note chaining rule.
	EventType string `json:"event_type,omitempty"`

	// TaskID optionally links the entry to a task.
	TaskID string `json:"task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Pencil records a tentatively pinned suggestion slot.
//
// Pins are keyed by suggestion id. Suggestion ids are regenerated on every
// computation, so a pin stops matching once the underlying suggestion is
// re-emitted with a new id; callers that need durable pins should key by
// task and slot instead.
type Pencil struct {
	SuggestionID string    `json:"suggestion_id"`
	TaskID       string    `json:"task_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	PinnedAt     time.Time `json:"pinned_at"`
}

// TaskUpdate is a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Title          *string
	Priority       *Priority
	Status         *Status
	EstimatedHours *float64
	DueDate        *time.Time
	DueHasTime     *bool
	EnergyLevel    *EnergyLevel
	Context        *TaskContext
	Tags           []string
	ProjectID      *string
}
