package suggest

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// buildReasoning synthesizes a human-readable explanation from the same
// factors the confidence score uses. Advisory text only.
func buildReasoning(t store.Task, slotStart time.Time, confidence float64) string {
	parts := []string{
		fmt.Sprintf("Scheduled for %s at %s.",
			slotStart.Format("Monday, Jan 2"), slotStart.Format("3:04 PM")),
	}

	switch t.Context {
	case store.ContextBusiness:
		parts = append(parts, "Placed in business hours to match the work context.")
	case store.ContextPersonal:
		if isWeekend(slotStart) {
			parts = append(parts, "Placed on the weekend to keep personal work out of business hours.")
		} else {
			parts = append(parts, "Placed outside business hours for a personal task.")
		}
	}

	hour := slotStart.Hour()
	switch {
	case t.EnergyLevel == store.EnergyHigh && hour >= 8 && hour < 11:
		parts = append(parts, "Morning slot matches this task's high energy demand.")
	case t.EnergyLevel == store.EnergyLow && hour >= 14 && hour < 16:
		parts = append(parts, "Early-afternoon slot suits a low-energy task.")
	}

	if t.DueDate != nil {
		days := int(t.DueDate.Sub(slotStart).Hours() / 24)
		switch {
		case days <= 0:
			parts = append(parts, "The deadline is imminent.")
		case days == 1:
			parts = append(parts, "Due in 1 day.")
		default:
			parts = append(parts, fmt.Sprintf("Due in %d days.", days))
		}
	}

	parts = append(parts, confidenceTier(confidence))
	return strings.Join(parts, " ")
}

// buildProgressNoteReasoning explains the counseling-session chain.
func buildProgressNoteReasoning(sessionEnd, slotStart time.Time) string {
	return fmt.Sprintf(
		"Scheduled %d minutes after the counseling session ending at %s so the note is written while the session is fresh. High confidence.",
		int(slotStart.Sub(sessionEnd).Minutes()), sessionEnd.Format("3:04 PM"))
}

func confidenceTier(c float64) string {
	switch {
	case c >= 0.85:
		return "High confidence."
	case c >= 0.7:
		return "Good confidence."
	default:
		return "Tentative placement."
	}
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
