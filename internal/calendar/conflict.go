package calendar

import "time"

// HasConflict reports whether the interval [start, end) overlaps any
// non-break event.
//
// The exclusion is deliberately asymmetric: breaks never block a candidate
// break slot, but a break still counts as occupied time for everything
// that checks against the full event list. This is what lets break
// generation run before suggestion generation without breaks blocking
// legitimate work placement.
func HasConflict(start, end time.Time, events []Event) bool {
	for _, e := range events {
		if IsBreakType(e.Type) {
			continue
		}
		if overlaps(start, end, e) {
			return true
		}
	}
	return false
}

// Overridable reports whether the suggestion engine may schedule work on
// top of an event. The engine happily displaces its own earlier output and
// generated break filler, but never a user-authored deadline or a
// user-time-blocked session.
func Overridable(e Event) bool {
	if e.Source == SourceAIGenerated {
		return true
	}
	if IsBreakType(e.Type) {
		return true
	}
	return e.Source == SourceManual && e.Editable
}

// BlockingConflicts returns the events that forbid scheduling work in
// [start, end): every overlapping event that is not overridable.
func BlockingConflicts(start, end time.Time, events []Event) []Event {
	var out []Event
	for _, e := range events {
		if Overridable(e) {
			continue
		}
		if overlaps(start, end, e) {
			out = append(out, e)
		}
	}
	return out
}

func overlaps(start, end time.Time, e Event) bool {
	return start.Before(e.End) && end.After(e.Start)
}
