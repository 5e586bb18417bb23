package calendar

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// deadlineBlock is the rendered length of a deadline that carries a
// specific time of day.
const deadlineBlock = 30 * time.Minute

// FromTask converts one task into up to three events: a deadline marker,
// an engine-scheduled work session, and a user time block. Completed tasks
// yield nothing.
func FromTask(t store.Task) []Event {
	if t.Status == store.StatusCompleted {
		return nil
	}

	var out []Event

	if t.DueDate != nil {
		due := *t.DueDate
		meta := Metadata{EstimatedHours: t.EstimatedHours, EnergyLevel: t.EnergyLevel}
		var e Event
		if hasTimeOfDay(t, due) {
			e = NewEvent(deadlineEventID(t.ID), "Due: "+t.Title,
				due, due.Add(deadlineBlock), TypeDeadline, SourceTask, meta)
		} else {
			day := startOfDay(due)
			e = NewEvent(deadlineEventID(t.ID), "Due: "+t.Title,
				day, day.AddDate(0, 0, 1), TypeDeadline, SourceTask, meta)
			e.AllDay = true
		}
		e.Priority = t.Priority
		e.TaskID = t.ID
		e.ProjectID = t.ProjectID
		out = append(out, e)
	}

	if t.WorkSessionStart != nil && t.WorkSessionEnd != nil {
		meta := Metadata{
			EstimatedHours: t.EstimatedHours,
			EnergyLevel:    t.EnergyLevel,
			AISuggested:    t.AISuggested,
		}
		e := NewEvent(sessionEventID(t.ID), "Work: "+t.Title,
			*t.WorkSessionStart, *t.WorkSessionEnd, TypeWorkSession, SourceTask, meta)
		e.Priority = t.Priority
		e.TaskID = t.ID
		e.ProjectID = t.ProjectID
		out = append(out, e)
	}

	if t.TimeBlocked && t.ScheduledStart != nil && t.ScheduledEnd != nil {
		meta := Metadata{
			EstimatedHours: t.EstimatedHours,
			EnergyLevel:    t.EnergyLevel,
			TimeBlocked:    true,
		}
		e := NewEvent(blockEventID(t.ID), t.Title,
			*t.ScheduledStart, *t.ScheduledEnd, TypeWorkSession, SourceTask, meta)
		e.Priority = t.Priority
		e.TaskID = t.ID
		e.ProjectID = t.ProjectID
		out = append(out, e)
	}

	return out
}

// FromSchedule converts a schedule entry into a single event. Entries
// whose type mentions counseling become counseling sessions, which the
// progress-note chaining rule keys on.
func FromSchedule(s store.Schedule) Event {
	typ := TypeEvent
	if strings.Contains(strings.ToLower(s.EventType), "counseling") {
		typ = TypeCounseling
	}

	start, end := s.StartDate, s.EndDate
	if s.AllDay {
		start = startOfDay(start)
		end = startOfDay(end).AddDate(0, 0, 1)
	}

	e := NewEvent(scheduleEventID(s.ID), s.Title, start, end, typ, SourceSchedule, Metadata{})
	e.AllDay = s.AllDay
	e.ScheduleID = s.ID
	e.TaskID = s.TaskID
	return e
}

// FromTasks flattens FromTask over a task list.
func FromTasks(tasks []store.Task) []Event {
	var out []Event
	for _, t := range tasks {
		out = append(out, FromTask(t)...)
	}
	return out
}

// FromSchedules maps FromSchedule over a schedule list.
func FromSchedules(schedules []store.Schedule) []Event {
	out := make([]Event, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, FromSchedule(s))
	}
	return out
}

// InWindow filters events to those overlapping [start, end).
func InWindow(events []Event, start, end time.Time) []Event {
	var out []Event
	for _, e := range events {
		if e.Start.Before(end) && e.End.After(start) {
			out = append(out, e)
		}
	}
	return out
}

// hasTimeOfDay applies the deadline time convention: when the task carries
// no explicit flag, a due time of exactly midnight means "date only". This
// conflates genuine midnight deadlines with date-only ones; DueHasTime
// disambiguates when the caller sets it.
func hasTimeOfDay(t store.Task, due time.Time) bool {
	if t.DueHasTime {
		return true
	}
	return due.Hour() != 0 || due.Minute() != 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
