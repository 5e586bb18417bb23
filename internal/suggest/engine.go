// Package suggest implements the slot-search and confidence-scoring
// engine that proposes work sessions for unscheduled tasks.
//
// The engine is pure: it performs no I/O and consumes immutable snapshots
// of the task list and the merged event list. At most one suggestion is
// produced per eligible task, chosen first-fit in chronological scan
// order.
package suggest

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// Config tunes the slot search.
type Config struct {
	// HorizonDays bounds the day-by-day scan.
	HorizonDays int `koanf:"horizon_days"`

	// BusinessStartHour/BusinessEndHour bound the hour-by-hour scan and
	// define business hours for context filtering.
	BusinessStartHour int `koanf:"business_start_hour"`
	BusinessEndHour   int `koanf:"business_end_hour"`

	// EarlyStartHour is the origin hour used when the scan starts
	// outside business hours.
	EarlyStartHour int `koanf:"early_start_hour"`

	// MaxSessionHours caps the proposed session length.
	MaxSessionHours float64 `koanf:"max_session_hours"`
}

// DefaultConfig returns the standard search parameters.
func DefaultConfig() Config {
	return Config{
		HorizonDays:       7,
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		EarlyStartHour:    8,
		MaxSessionHours:   4,
	}
}

// Progress-note chaining constants. A clinical progress note is written
// shortly after the counseling session it documents.
const (
	progressNoteGap        = 30 * time.Minute
	progressNoteProbeStep  = 30 * time.Minute
	progressNoteProbeSpan  = 4 * time.Hour
	progressNoteLatestHour = 18
	progressNoteMaxHours   = 1.0
	progressNoteConfidence = 0.95
)

var trailingDateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*$`)

// Engine proposes work slots.
type Engine struct {
	cfg    Config
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewEngine creates an engine. Zero config fields are replaced with
// defaults; a nil logger with a no-op logger.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	def := DefaultConfig()
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.BusinessStartHour <= 0 {
		cfg.BusinessStartHour = def.BusinessStartHour
	}
	if cfg.BusinessEndHour <= 0 {
		cfg.BusinessEndHour = def.BusinessEndHour
	}
	if cfg.EarlyStartHour <= 0 {
		cfg.EarlyStartHour = def.EarlyStartHour
	}
	if cfg.MaxSessionHours <= 0 {
		cfg.MaxSessionHours = def.MaxSessionHours
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger, nowFn: time.Now}
}

// WithNow overrides the engine clock. Test hook.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFn = now
	return e
}

// Generate returns at most one suggestion per eligible task. Only
// suggestions whose start is strictly in the future are returned; since
// nothing is persisted, dropping past slots doubles as cleanup of stale
// output from a prior computation.
func (e *Engine) Generate(tasks []store.Task, events []calendar.Event) []Suggestion {
	now := e.nowFn()

	var out []Suggestion
	for _, t := range tasks {
		if !eligible(t) {
			continue
		}

		var s *Suggestion
		if date, ok := progressNoteDate(t); ok {
			s = e.progressNoteSuggestion(t, date, events)
		} else {
			s = e.generalSuggestion(t, now, events)
		}

		if s == nil {
			e.logger.Debug("no slot found for task", zap.String("task_id", t.ID))
			continue
		}
		if !s.Start.After(now) {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// eligible filters to unscheduled, incomplete tasks with a positive
// effort estimate.
func eligible(t store.Task) bool {
	return t.WorkSessionStart == nil &&
		t.Status != store.StatusCompleted &&
		t.EstimatedHours > 0
}

// generalSuggestion runs the first-fit scan over the search horizon.
func (e *Engine) generalSuggestion(t store.Task, now time.Time, events []calendar.Event) *Suggestion {
	duration := e.sessionDuration(t.EstimatedHours)
	it := newSlotIterator(e.searchOrigin(now), e.cfg.HorizonDays, e.cfg.BusinessStartHour, e.cfg.BusinessEndHour)

	for {
		slot, ok := it.Next()
		if !ok {
			return nil
		}
		if !e.contextAllows(t.Context, slot) {
			continue
		}
		end := slot.Add(duration)
		if len(calendar.BlockingConflicts(slot, end, events)) > 0 {
			continue
		}

		confidence := scoreConfidence(t, slot, events)
		return &Suggestion{
			ID:            uuid.NewString(),
			TaskID:        t.ID,
			TaskTitle:     t.Title,
			TaskPriority:  t.Priority,
			TaskProject:   t.ProjectID,
			Start:         slot,
			End:           end,
			Confidence:    confidence,
			Reasoning:     buildReasoning(t, slot, confidence),
			Status:        StatusPending,
			ConflictsWith: overriddenIDs(slot, end, events),
		}
	}
}

// progressNoteSuggestion chains a progress note 30 minutes after the
// latest same-day counseling session, probing in 30-minute steps for up
// to four hours when the preferred slot is blocked, never past 18:00.
// No same-day counseling session means no suggestion this cycle.
func (e *Engine) progressNoteSuggestion(t store.Task, date time.Time, events []calendar.Event) *Suggestion {
	session, ok := latestCounselingEnd(date, events)
	if !ok {
		e.logger.Debug("progress note without a same-day counseling session",
			zap.String("task_id", t.ID), zap.Time("date", date))
		return nil
	}

	hours := t.EstimatedHours
	if hours > progressNoteMaxHours {
		hours = progressNoteMaxHours
	}
	duration := time.Duration(hours * float64(time.Hour))

	base := session.Add(progressNoteGap)
	for start := base; start.Sub(base) <= progressNoteProbeSpan; start = start.Add(progressNoteProbeStep) {
		if start.Hour() >= progressNoteLatestHour {
			break
		}
		end := start.Add(duration)
		if len(calendar.BlockingConflicts(start, end, events)) > 0 {
			continue
		}
		return &Suggestion{
			ID:            uuid.NewString(),
			TaskID:        t.ID,
			TaskTitle:     t.Title,
			TaskPriority:  t.Priority,
			TaskProject:   t.ProjectID,
			Start:         start,
			End:           end,
			Confidence:    progressNoteConfidence,
			Reasoning:     buildProgressNoteReasoning(session, start),
			Status:        StatusPending,
			ConflictsWith: overriddenIDs(start, end, events),
		}
	}
	return nil
}

// searchOrigin picks where the scan starts: the next whole hour when now
// is inside business hours on a weekday, otherwise the early-morning hour
// of the next weekday.
func (e *Engine) searchOrigin(now time.Time) time.Time {
	h := now.Hour()
	if isWeekday(now) && h >= e.cfg.BusinessStartHour && h < e.cfg.BusinessEndHour {
		return time.Date(now.Year(), now.Month(), now.Day(), h+1, 0, 0, 0, now.Location())
	}

	day := now
	if !isWeekday(day) || h >= e.cfg.BusinessEndHour {
		day = day.AddDate(0, 0, 1)
		for !isWeekday(day) {
			day = day.AddDate(0, 0, 1)
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), e.cfg.EarlyStartHour, 0, 0, 0, day.Location())
}

// contextAllows applies the business/personal separation. Business tasks
// stay on weekdays before the end of business hours; personal tasks stay
// out of weekday business hours; unset context is unrestricted.
func (e *Engine) contextAllows(ctx store.TaskContext, slot time.Time) bool {
	h := slot.Hour()
	switch ctx {
	case store.ContextBusiness:
		return isWeekday(slot) && h < e.cfg.BusinessEndHour
	case store.ContextPersonal:
		if isWeekday(slot) && h >= e.cfg.BusinessStartHour && h < e.cfg.BusinessEndHour {
			return false
		}
		return true
	default:
		return true
	}
}

func (e *Engine) sessionDuration(estimatedHours float64) time.Duration {
	if estimatedHours > e.cfg.MaxSessionHours {
		estimatedHours = e.cfg.MaxSessionHours
	}
	return time.Duration(estimatedHours * float64(time.Hour))
}

// progressNoteDate reports whether the task is a clinical progress note
// carrying a trailing session date in its title.
func progressNoteDate(t store.Task) (time.Time, bool) {
	if !isProgressNote(t) {
		return time.Time{}, false
	}
	m := trailingDateRe.FindStringSubmatch(strings.TrimSpace(t.Title))
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation("2006-01-02", m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func isProgressNote(t store.Task) bool {
	if strings.Contains(strings.ToLower(t.Title), "progress note") {
		return true
	}
	for _, tag := range t.Tags {
		switch strings.ToLower(tag) {
		case "progress-note", "progress_note", "progress note":
			return true
		}
	}
	return false
}

// latestCounselingEnd finds the counseling session on the given day with
// the latest end.
func latestCounselingEnd(day time.Time, events []calendar.Event) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, e := range events {
		if !isCounselingLike(e) {
			continue
		}
		if !sameDay(e.Start, day) {
			continue
		}
		if !found || e.End.After(latest) {
			latest = e.End
			found = true
		}
	}
	return latest, found
}

func isCounselingLike(e calendar.Event) bool {
	return e.Type == calendar.TypeCounseling ||
		strings.Contains(strings.ToLower(e.Title), "counseling")
}

// overriddenIDs collects the overridable events the chosen slot overlaps,
// for display as displaced conflicts.
func overriddenIDs(start, end time.Time, events []calendar.Event) []string {
	var ids []string
	for _, e := range events {
		if !calendar.Overridable(e) {
			continue
		}
		if start.Before(e.End) && end.After(e.Start) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
