package suggest

import (
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/store"
)

const (
	confidenceBase = 0.7
	confidenceMin  = 0.1
	confidenceMax  = 1.0

	// Each event starting within two hours of the slot start costs a
	// small penalty; a crowded stretch of calendar makes the placement
	// less certain.
	nearbyWindow  = 2 * time.Hour
	nearbyPenalty = 0.05
)

var priorityBonus = map[store.Priority]float64{
	store.PriorityUrgent: 0.20,
	store.PriorityHigh:   0.15,
	store.PriorityMedium: 0.10,
	store.PriorityLow:    0.05,
}

// scoreConfidence computes the clamped confidence for placing the task at
// the given slot.
func scoreConfidence(t store.Task, slotStart time.Time, events []calendar.Event) float64 {
	score := confidenceBase

	score += priorityBonus[t.Priority]

	if t.DueDate != nil {
		until := t.DueDate.Sub(slotStart)
		switch {
		case until <= 24*time.Hour:
			score += 0.15
		case until <= 72*time.Hour:
			score += 0.10
		}
	}

	hour := slotStart.Hour()
	switch {
	case t.EnergyLevel == store.EnergyHigh && hour >= 8 && hour < 11:
		score += 0.10
	case t.EnergyLevel == store.EnergyLow && hour >= 14 && hour < 16:
		score += 0.05
	}

	score -= nearbyPenalty * float64(countNearby(slotStart, events))

	return clamp(score, confidenceMin, confidenceMax)
}

func countNearby(slotStart time.Time, events []calendar.Event) int {
	n := 0
	for _, e := range events {
		d := e.Start.Sub(slotStart)
		if d < 0 {
			d = -d
		}
		if d <= nearbyWindow {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
