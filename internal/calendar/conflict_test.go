package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasConflict(t *testing.T) {
	base := time.Date(2025, 6, 3, 10, 0, 0, 0, time.Local)
	meeting := NewEvent("m", "Meeting", base, base.Add(time.Hour), TypeEvent, SourceSchedule, Metadata{})
	lunch := NewEvent("l", "Lunch", base.Add(2*time.Hour), base.Add(3*time.Hour), TypeMealBreak, SourceAIGenerated, Metadata{})
	events := []Event{meeting, lunch}

	t.Run("overlap with non-break event", func(t *testing.T) {
		assert.True(t, HasConflict(base.Add(30*time.Minute), base.Add(90*time.Minute), events))
	})

	t.Run("breaks never count", func(t *testing.T) {
		assert.False(t, HasConflict(base.Add(2*time.Hour), base.Add(3*time.Hour), events))
	})

	t.Run("adjacent intervals do not conflict", func(t *testing.T) {
		assert.False(t, HasConflict(base.Add(time.Hour), base.Add(2*time.Hour), events))
		assert.False(t, HasConflict(base.Add(-time.Hour), base, events))
	})

	t.Run("zero overlap boundary is exclusive", func(t *testing.T) {
		// [start, end) semantics: touching endpoints are free.
		assert.True(t, HasConflict(base.Add(59*time.Minute), base.Add(61*time.Minute), events))
	})
}

func TestOverridable(t *testing.T) {
	base := time.Date(2025, 6, 3, 10, 0, 0, 0, time.Local)

	cases := []struct {
		name string
		e    Event
		want bool
	}{
		{
			"engine output is overridable",
			NewEvent("a", "", base, base.Add(time.Hour), TypeWorkSession, SourceAIGenerated, Metadata{}),
			true,
		},
		{
			"breaks are overridable",
			NewEvent("b", "", base, base.Add(time.Hour), TypeMealBreak, SourceAIGenerated, Metadata{}),
			true,
		},
		{
			"editable manual block is overridable",
			NewEvent("c", "", base, base.Add(time.Hour), TypeWorkSession, SourceManual, Metadata{}),
			true,
		},
		{
			"deadline is never overridable",
			NewEvent("d", "", base, base.Add(time.Hour), TypeDeadline, SourceTask, Metadata{}),
			false,
		},
		{
			"schedule entry is not overridable",
			NewEvent("e", "", base, base.Add(time.Hour), TypeEvent, SourceSchedule, Metadata{}),
			false,
		},
		{
			"user time block is not overridable",
			NewEvent("f", "", base, base.Add(time.Hour), TypeWorkSession, SourceTask, Metadata{TimeBlocked: true}),
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overridable(tc.e))
		})
	}
}

func TestBlockingConflicts(t *testing.T) {
	base := time.Date(2025, 6, 3, 10, 0, 0, 0, time.Local)
	deadline := NewEvent("d", "Due", base, base.Add(30*time.Minute), TypeDeadline, SourceTask, Metadata{})
	aiSession := NewEvent("ai", "Work", base, base.Add(time.Hour), TypeWorkSession, SourceAIGenerated, Metadata{})
	events := []Event{deadline, aiSession}

	got := BlockingConflicts(base, base.Add(time.Hour), events)
	require.Len(t, got, 1, "only the deadline should block")
	assert.Equal(t, "d", got[0].ID)

	assert.Empty(t, BlockingConflicts(base.Add(time.Hour), base.Add(2*time.Hour), events))
}

func TestBreakAsymmetry(t *testing.T) {
	// A break occupies time for HasConflict callers checking work slots
	// only through non-break events; a candidate break slot ignores other
	// breaks, but the suggestion path treats breaks as overridable, so
	// work may displace them.
	base := time.Date(2025, 6, 3, 12, 0, 0, 0, time.Local)
	lunch := NewEvent("l", "Lunch", base, base.Add(time.Hour), TypeMealBreak, SourceAIGenerated, Metadata{})

	assert.False(t, HasConflict(base, base.Add(time.Hour), []Event{lunch}))
	assert.Empty(t, BlockingConflicts(base, base.Add(time.Hour), []Event{lunch}))
}
