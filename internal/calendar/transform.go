package calendar

import (
	"fmt"
	"sort"
	"time"
)

// AddBufferTime inserts short recovery blocks after back-to-back events.
//
// For each non-break event that is followed by another event within the
// buffer length, a wellness block of the given length is inserted directly
// after it when the gap is free. The search is not re-run; this is a pure
// transform over an already-computed list.
func AddBufferTime(events []Event, minutes int) []Event {
	if minutes <= 0 || len(events) == 0 {
		return events
	}
	buffer := time.Duration(minutes) * time.Minute

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := make([]Event, len(events))
	copy(out, events)

	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		if IsBreakType(cur.Type) || cur.AllDay {
			continue
		}
		gap := next.Start.Sub(cur.End)
		if gap <= 0 || gap > buffer {
			continue
		}
		bufEnd := cur.End.Add(buffer)
		if bufEnd.After(next.Start) {
			bufEnd = next.Start
		}
		b := NewEvent(
			fmt.Sprintf("buffer-%s", cur.ID),
			"Buffer",
			cur.End, bufEnd,
			TypeWellness, SourceAIGenerated, Metadata{},
		)
		out = append(out, b)
	}
	return out
}

// ShiftEventsAfter moves every editable event starting at or after the
// given instant by the given number of minutes. Non-editable events are
// never moved.
func ShiftEventsAfter(events []Event, after time.Time, minutes int) []Event {
	delta := time.Duration(minutes) * time.Minute
	out := make([]Event, len(events))
	for i, e := range events {
		if e.Editable && !e.Start.Before(after) {
			e.Start = e.Start.Add(delta)
			e.End = e.End.Add(delta)
		}
		out[i] = e
	}
	return out
}
