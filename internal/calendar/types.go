// Package calendar defines the common temporal event model that every
// source of time-bound commitments is normalized into, together with the
// conflict predicate and pure event-list transforms.
//
// Events are ephemeral: they are recomputed on every query and never
// persisted. Event ids are deterministic functions of the source record id
// and event kind so that repeated computations are stable.
package calendar

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// EventType classifies an event. Break types never block other breaks.
type EventType string

const (
	TypeDeadline    EventType = "deadline"
	TypeWorkSession EventType = "work_session"
	TypeEvent       EventType = "event"
	TypeCounseling  EventType = "counseling_session"
	TypeHealthBreak EventType = "health_break"
	TypeMealBreak   EventType = "meal_break"
	TypeWellness    EventType = "wellness_break"
)

// EventSource identifies which system authored an event.
type EventSource string

const (
	SourceTask        EventSource = "task"
	SourceSchedule    EventSource = "schedule"
	SourceAIGenerated EventSource = "ai_generated"
	SourceManual      EventSource = "manual"
)

// Metadata carries per-event annotations consumed by the suggestion
// engine and the UI layer.
type Metadata struct {
	EstimatedHours float64           `json:"estimated_hours,omitempty"`
	EnergyLevel    store.EnergyLevel `json:"energy_level,omitempty"`
	Progress       float64           `json:"progress,omitempty"`
	AISuggested    bool              `json:"ai_suggested,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	TimeBlocked    bool              `json:"time_blocked,omitempty"`
}

// Event is the normalized calendar event.
//
// Editable is the single authorization gate for all override logic. It is
// computed at construction time by deriveEditable and must never be set
// directly; the conflict rules depend on it staying consistent with
// (Source, Type, Metadata.TimeBlocked).
type Event struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	AllDay     bool        `json:"all_day,omitempty"`
	Type       EventType   `json:"type"`
	Source     EventSource `json:"source"`
	Editable   bool        `json:"editable"`
	Priority   store.Priority `json:"priority,omitempty"`
	TaskID     string      `json:"task_id,omitempty"`
	ProjectID  string      `json:"project_id,omitempty"`
	ScheduleID string      `json:"schedule_id,omitempty"`
	Metadata   Metadata    `json:"metadata,omitempty"`
}

// NewEvent constructs an event with Editable derived from its inputs.
func NewEvent(id, title string, start, end time.Time, typ EventType, src EventSource, meta Metadata) Event {
	return Event{
		ID:       id,
		Title:    title,
		Start:    start,
		End:      end,
		Type:     typ,
		Source:   src,
		Editable: deriveEditable(src, typ, meta),
		Metadata: meta,
	}
}

// deriveEditable computes whether the engine may displace an event.
//
// Engine-authored events, user-created schedule entries, manually parsed
// legacy blocks, and generated breaks are movable. User-set deadlines and
// user-time-blocked work sessions are not. Task work sessions are movable
// only when the engine itself authored them.
func deriveEditable(src EventSource, typ EventType, meta Metadata) bool {
	if IsBreakType(typ) {
		return true
	}
	switch src {
	case SourceAIGenerated, SourceSchedule, SourceManual:
		return true
	case SourceTask:
		if typ == TypeDeadline {
			return false
		}
		return meta.AISuggested && !meta.TimeBlocked
	default:
		return false
	}
}

// IsBreakType reports whether the type is one of the generated break kinds.
func IsBreakType(t EventType) bool {
	switch t {
	case TypeHealthBreak, TypeMealBreak, TypeWellness:
		return true
	}
	return false
}

// Deterministic event id helpers. Re-renders of the same source record
// must yield the same id.

func deadlineEventID(taskID string) string  { return fmt.Sprintf("task-%s-deadline", taskID) }
func sessionEventID(taskID string) string   { return fmt.Sprintf("task-%s-session", taskID) }
func blockEventID(taskID string) string     { return fmt.Sprintf("task-%s-block", taskID) }
func scheduleEventID(schedID string) string { return fmt.Sprintf("schedule-%s", schedID) }

// BreakEventID builds the id for a generated break on a given day.
func BreakEventID(kind string, day time.Time) string {
	return fmt.Sprintf("break-%s-%s", kind, day.Format("2006-01-02"))
}
