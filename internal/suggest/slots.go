package suggest

import "time"

// SlotIterator walks candidate slot starts in chronological order: day by
// day over the search horizon, hour by hour within the scan window. The
// sequence is finite and lazy, so callers can impose their own stopping
// criteria instead of rewriting the search.
type SlotIterator struct {
	origin      time.Time
	horizonDays int
	startHour   int
	endHour     int // exclusive; last candidate hour is endHour-1

	day  int
	hour int
}

// newSlotIterator starts a scan at origin. Hours before the origin on day
// zero are skipped.
func newSlotIterator(origin time.Time, horizonDays, startHour, endHour int) *SlotIterator {
	it := &SlotIterator{
		origin:      origin,
		horizonDays: horizonDays,
		startHour:   startHour,
		endHour:     endHour,
		hour:        startHour,
	}
	if origin.Hour() > startHour {
		it.hour = origin.Hour()
	}
	return it
}

// Next returns the next candidate slot start, or false when the search
// space is exhausted.
func (it *SlotIterator) Next() (time.Time, bool) {
	for it.day < it.horizonDays {
		if it.hour >= it.endHour {
			it.day++
			it.hour = it.startHour
			continue
		}
		day := it.origin.AddDate(0, 0, it.day)
		slot := time.Date(day.Year(), day.Month(), day.Day(), it.hour, 0, 0, 0, day.Location())
		it.hour++
		if slot.Before(it.origin) {
			continue
		}
		return slot, true
	}
	return time.Time{}, false
}
