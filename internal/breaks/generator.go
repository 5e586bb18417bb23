// Package breaks injects daily meal and wellness blocks into the
// computed event list.
//
// Generation is deterministic: one pass per calendar day in the requested
// range. The lunch break is the only block with adaptive placement; the
// remaining blocks use fixed times and are simply omitted when occupied.
package breaks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/calendar"
)

// Preferences configures break generation. Zero flexibility disables the
// lunch probe; the preferred slot is then emitted or conflict-marked as is.
type Preferences struct {
	AutoScheduleLunch bool   `koanf:"auto_schedule_lunch"`
	LunchStartTime    string `koanf:"lunch_start_time"` // "HH:MM"
	LunchDuration     int    `koanf:"lunch_duration"`   // minutes
	LunchFlexibility  int    `koanf:"lunch_flexibility"` // minutes

	AutoScheduleBreakfast bool   `koanf:"auto_schedule_breakfast"`
	BreakfastTime         string `koanf:"breakfast_time"`
	BreakfastDuration     int    `koanf:"breakfast_duration"`

	AutoScheduleDinner bool   `koanf:"auto_schedule_dinner"`
	DinnerTime         string `koanf:"dinner_time"`
	DinnerDuration     int    `koanf:"dinner_duration"`

	AutoScheduleWellness bool `koanf:"auto_schedule_wellness"`
}

// DefaultPreferences returns sensible defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		AutoScheduleLunch:     true,
		LunchStartTime:        "12:00",
		LunchDuration:         60,
		LunchFlexibility:      30,
		AutoScheduleBreakfast: false,
		BreakfastTime:         "08:00",
		BreakfastDuration:     30,
		AutoScheduleDinner:    false,
		DinnerTime:            "18:30",
		DinnerDuration:        45,
		AutoScheduleWellness:  true,
	}
}

// Validate checks the preferences for errors.
func (p Preferences) Validate() error {
	for name, v := range map[string]string{
		"lunch_start_time": p.LunchStartTime,
		"breakfast_time":   p.BreakfastTime,
		"dinner_time":      p.DinnerTime,
	} {
		if _, _, err := parseClock(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if p.LunchDuration <= 0 {
		return fmt.Errorf("lunch_duration must be positive, got %d", p.LunchDuration)
	}
	if p.LunchFlexibility < 0 {
		return fmt.Errorf("lunch_flexibility must be >= 0, got %d", p.LunchFlexibility)
	}
	return nil
}

// Wellness micro-breaks use fixed workday times. They are skipped on
// weekends along with every other business-oriented block.
const (
	morningWalkClock   = "10:30"
	afternoonWalkClock = "15:30"
	meditationClock    = "08:45"

	walkMinutes       = 15
	meditationMinutes = 10

	lunchProbeStep = 15 * time.Minute
)

// Generator produces break events for a date range.
type Generator struct {
	prefs  Preferences
	logger *zap.Logger
}

// NewGenerator creates a break generator. A nil logger is replaced with a
// no-op logger.
func NewGenerator(prefs Preferences, logger *zap.Logger) (*Generator, error) {
	if err := prefs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid break preferences: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{prefs: prefs, logger: logger}, nil
}

// SetPreferences swaps the active preferences. Used by config hot-reload.
func (g *Generator) SetPreferences(prefs Preferences) error {
	if err := prefs.Validate(); err != nil {
		return fmt.Errorf("invalid break preferences: %w", err)
	}
	g.prefs = prefs
	return nil
}

// Generate returns break events for every day in [start, end], placed
// against the already-merged event list. Returned breaks never overlap a
// non-break event except the conflict-marked lunch fallback.
func (g *Generator) Generate(start, end time.Time, existing []calendar.Event) []calendar.Event {
	var out []calendar.Event

	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		weekend := isWeekend(day)

		if g.prefs.AutoScheduleBreakfast {
			if e, ok := g.fixedBreak(day, "breakfast", "Breakfast", g.prefs.BreakfastTime,
				g.prefs.BreakfastDuration, calendar.TypeMealBreak, existing); ok {
				out = append(out, e)
			}
		}

		if g.prefs.AutoScheduleLunch && !weekend {
			out = append(out, g.lunchBreak(day, existing))
		}

		if g.prefs.AutoScheduleWellness && !weekend {
			if e, ok := g.fixedBreak(day, "meditation", "Morning Meditation", meditationClock,
				meditationMinutes, calendar.TypeWellness, existing); ok {
				out = append(out, e)
			}
			if e, ok := g.fixedBreak(day, "morning-walk", "Morning Walk", morningWalkClock,
				walkMinutes, calendar.TypeHealthBreak, existing); ok {
				out = append(out, e)
			}
			if e, ok := g.fixedBreak(day, "afternoon-walk", "Afternoon Walk", afternoonWalkClock,
				walkMinutes, calendar.TypeHealthBreak, existing); ok {
				out = append(out, e)
			}
		}

		if g.prefs.AutoScheduleDinner {
			if e, ok := g.fixedBreak(day, "dinner", "Dinner", g.prefs.DinnerTime,
				g.prefs.DinnerDuration, calendar.TypeMealBreak, existing); ok {
				out = append(out, e)
			}
		}
	}

	return out
}

// lunchBreak places lunch at the preferred slot, probing alternative
// offsets of +-15, +-30, ... minutes up to the configured flexibility when
// the preferred slot is occupied. Earlier candidates are tried before
// later ones at each step. When nothing in the window is free the
// preferred slot is still emitted with a conflict-marked title so the user
// can resolve it manually.
func (g *Generator) lunchBreak(day time.Time, existing []calendar.Event) calendar.Event {
	duration := time.Duration(g.prefs.LunchDuration) * time.Minute
	preferred := clockOn(day, g.prefs.LunchStartTime)

	if !calendar.HasConflict(preferred, preferred.Add(duration), existing) {
		return g.breakEvent("lunch", "Lunch Break", day, preferred, duration, calendar.TypeMealBreak)
	}

	flexibility := time.Duration(g.prefs.LunchFlexibility) * time.Minute
	for offset := lunchProbeStep; offset <= flexibility; offset += lunchProbeStep {
		for _, candidate := range []time.Time{preferred.Add(-offset), preferred.Add(offset)} {
			if !calendar.HasConflict(candidate, candidate.Add(duration), existing) {
				g.logger.Debug("lunch shifted around conflict",
					zap.Time("preferred", preferred), zap.Time("placed", candidate))
				return g.breakEvent("lunch", "Lunch Break", day, candidate, duration, calendar.TypeMealBreak)
			}
		}
	}

	g.logger.Warn("no conflict-free lunch slot in flexibility window",
		zap.Time("preferred", preferred), zap.Duration("flexibility", flexibility))
	return g.breakEvent("lunch", "Lunch Break (conflicts with existing event)",
		day, preferred, duration, calendar.TypeMealBreak)
}

// fixedBreak returns a break at a fixed clock time, or false when the slot
// overlaps a non-break event.
func (g *Generator) fixedBreak(day time.Time, kind, title, clock string, minutes int,
	typ calendar.EventType, existing []calendar.Event) (calendar.Event, bool) {

	start := clockOn(day, clock)
	duration := time.Duration(minutes) * time.Minute
	if calendar.HasConflict(start, start.Add(duration), existing) {
		return calendar.Event{}, false
	}
	return g.breakEvent(kind, title, day, start, duration, typ), true
}

func (g *Generator) breakEvent(kind, title string, day, start time.Time,
	duration time.Duration, typ calendar.EventType) calendar.Event {

	return calendar.NewEvent(
		calendar.BreakEventID(kind, day),
		title,
		start, start.Add(duration),
		typ, calendar.SourceAIGenerated,
		calendar.Metadata{},
	)
}

// clockOn resolves "HH:MM" onto a day. Preferences are validated up
// front, so a parse failure here cannot happen; fall back to midnight.
func clockOn(day time.Time, clock string) time.Time {
	h, m, err := parseClock(clock)
	if err != nil {
		h, m = 0, 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
