package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// Legacy daily schedules were stored as free-text markdown with lines of
// the form:
//
//	9:00 AM - 10:30 AM - Deep work on report (1.5 hours) (Priority: High)
//
// The duration and priority annotations are optional. Malformed lines are
// skipped with a warning; a bad blob never fails the whole computation.
var (
	timeBlockRe = regexp.MustCompile(`(?i)^\s*[-*]?\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*-\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*-\s*(.+)$`)
	priorityRe  = regexp.MustCompile(`(?i)\(priority:\s*(\w+)\)`)
	durationRe  = regexp.MustCompile(`(?i)\((\d+(?:\.\d+)?)\s*(hours?|hrs?|minutes?|mins?)\)`)
)

// ParseDailyMarkdown extracts time blocks from a legacy markdown daily
// schedule and converts each into an event on the given day.
func ParseDailyMarkdown(blob string, day time.Time, logger *zap.Logger) []Event {
	if logger == nil {
		logger = zap.NewNop()
	}

	var out []Event
	for i, line := range strings.Split(blob, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := timeBlockRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		start, err := clockOnDay(day, m[1], m[2], m[3])
		if err != nil {
			logger.Warn("skipping malformed time block",
				zap.Int("line", i+1), zap.String("text", line), zap.Error(err))
			continue
		}
		end, err := clockOnDay(day, m[4], m[5], m[6])
		if err != nil {
			logger.Warn("skipping malformed time block",
				zap.Int("line", i+1), zap.String("text", line), zap.Error(err))
			continue
		}
		if !end.After(start) {
			logger.Warn("skipping time block with non-positive duration",
				zap.Int("line", i+1), zap.String("text", line))
			continue
		}

		title := strings.TrimSpace(m[7])
		meta := Metadata{}

		if dm := durationRe.FindStringSubmatch(title); dm != nil {
			if hours, err := annotatedHours(dm[1], dm[2]); err == nil {
				meta.EstimatedHours = hours
			}
			title = strings.TrimSpace(durationRe.ReplaceAllString(title, ""))
		}

		var priority store.Priority
		if pm := priorityRe.FindStringSubmatch(title); pm != nil {
			priority = parsePriority(pm[1])
			title = strings.TrimSpace(priorityRe.ReplaceAllString(title, ""))
		}

		typ := TypeWorkSession
		if looksLikeBreak(title) {
			typ = TypeEvent
		}

		id := fmt.Sprintf("md-%s-%02d%02d", day.Format("2006-01-02"), start.Hour(), start.Minute())
		e := NewEvent(id, title, start, end, typ, SourceManual, meta)
		e.Priority = priority
		out = append(out, e)
	}
	return out
}

func clockOnDay(day time.Time, hh, mm, meridiem string) (time.Time, error) {
	h, err := strconv.Atoi(hh)
	if err != nil || h < 1 || h > 12 {
		return time.Time{}, fmt.Errorf("bad hour %q", hh)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m > 59 {
		return time.Time{}, fmt.Errorf("bad minute %q", mm)
	}
	if strings.EqualFold(meridiem, "PM") && h != 12 {
		h += 12
	}
	if strings.EqualFold(meridiem, "AM") && h == 12 {
		h = 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}

func annotatedHours(amount, unit string) (float64, error) {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(strings.ToLower(unit), "min") {
		return v / 60, nil
	}
	return v, nil
}

func parsePriority(s string) store.Priority {
	switch strings.ToLower(s) {
	case "urgent":
		return store.PriorityUrgent
	case "high":
		return store.PriorityHigh
	case "medium":
		return store.PriorityMedium
	case "low":
		return store.PriorityLow
	}
	return ""
}

func looksLikeBreak(title string) bool {
	lower := strings.ToLower(title)
	for _, w := range []string{"lunch", "break", "breakfast", "dinner", "walk"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
