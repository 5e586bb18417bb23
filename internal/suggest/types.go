package suggest

import (
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// Status is the lifecycle state of a suggestion. Suggestions are
// ephemeral; status changes other than approval leave no durable record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusModified Status = "modified"
)

// Suggestion is a proposed work slot for an unscheduled task.
//
// Task fields are denormalized so the UI can render a suggestion without a
// join. Ids are regenerated on every computation.
type Suggestion struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`

	TaskTitle    string         `json:"task_title"`
	TaskPriority store.Priority `json:"task_priority"`
	TaskProject  string         `json:"task_project,omitempty"`

	Start time.Time `json:"suggested_start"`
	End   time.Time `json:"suggested_end"`

	// Confidence is the scored heuristic in [0.1, 1.0].
	Confidence float64 `json:"confidence"`

	// Reasoning is advisory display text synthesized from the scoring
	// factors. Nothing downstream consumes it.
	Reasoning string `json:"reasoning"`

	Status Status `json:"status"`

	// ConflictsWith lists ids of overridable events the slot displaces.
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}
