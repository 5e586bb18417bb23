package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	calendarStart string
	calendarEnd   string
	calendarJSON  bool
)

func init() {
	calendarCmd.Flags().StringVar(&calendarStart, "start", "", "window start (YYYY-MM-DD or RFC3339)")
	calendarCmd.Flags().StringVar(&calendarEnd, "end", "", "window end (YYYY-MM-DD or RFC3339)")
	calendarCmd.Flags().BoolVar(&calendarJSON, "json", false, "print raw JSON")
}

// calendarEvent mirrors the fields of internal/calendar Event that the
// CLI renders.
type calendarEvent struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"all_day"`
	Type     string    `json:"type"`
	Source   string    `json:"source"`
	Editable bool      `json:"editable"`
}

// calendarSuggestion mirrors internal/suggest Suggestion.
type calendarSuggestion struct {
	ID         string    `json:"id"`
	TaskTitle  string    `json:"task_title"`
	Start      time.Time `json:"suggested_start"`
	End        time.Time `json:"suggested_end"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

type calendarResponse struct {
	Events      []calendarEvent      `json:"events"`
	Suggestions []calendarSuggestion `json:"suggestions"`
}

// calendarCmd shows the reconciled calendar with suggestions
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show the reconciled calendar and suggestions",
	Long: `Fetch the merged timeline (tasks, schedules, breaks) and the current
scheduling suggestions from the plannerd server.

Examples:
  # This week's calendar
  planctl calendar

  # A specific window
  planctl calendar --start 2025-06-02 --end 2025-06-09

  # Raw JSON for scripting
  planctl calendar --json`,
	RunE: runCalendar,
}

func runCalendar(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if calendarStart != "" {
		q.Set("start", calendarStart)
	}
	if calendarEnd != "" {
		q.Set("end", calendarEnd)
	}
	path := "/api/v1/calendar"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := apiRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if calendarJSON {
		return printJSON(body)
	}

	var data calendarResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Events (%d):\n", len(data.Events))
	for _, e := range data.Events {
		when := fmt.Sprintf("%s - %s",
			e.Start.Local().Format("Mon Jan 2 15:04"),
			e.End.Local().Format("15:04"))
		if e.AllDay {
			when = e.Start.Local().Format("Mon Jan 2") + " (all day)"
		}
		lock := " "
		if !e.Editable {
			lock = "*"
		}
		fmt.Printf("  %s %-42s %s [%s]\n", lock, e.Title, when, e.Type)
	}

	if len(data.Suggestions) > 0 {
		fmt.Printf("\nSuggestions (%d):\n", len(data.Suggestions))
		for _, s := range data.Suggestions {
			fmt.Printf("  %-42s %s - %s  (%.0f%%)\n",
				s.TaskTitle,
				s.Start.Local().Format("Mon Jan 2 15:04"),
				s.End.Local().Format("15:04"),
				s.Confidence*100)
			fmt.Printf("    id: %s\n", s.ID)
			fmt.Printf("    %s\n", s.Reasoning)
		}
	}
	return nil
}

// resetCmd clears every scheduled work session
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all scheduled work sessions",
	Long: `Clear the work-session window on every task. Suggestions are
recomputed from scratch on the next calendar fetch.

Examples:
  planctl reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := apiRequest(http.MethodPost, "/api/v1/schedule/reset", nil)
		if err != nil {
			return err
		}
		var resp struct {
			TasksCleared int `json:"tasks_cleared"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("Cleared %d scheduled work session(s)\n", resp.TasksCleared)
		return nil
	},
}

// regenerateCmd previews suggestions ignoring persisted sessions
var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Preview suggestions ignoring existing work sessions",
	Long: `Recompute suggestions as if no work sessions were scheduled.
Nothing is persisted; this is a preview of a from-scratch schedule.

Examples:
  planctl regenerate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := apiRequest(http.MethodPost, "/api/v1/calendar/regenerate", nil)
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

// applyCmd applies a suggestion read from a file or stdin
var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply a suggestion from a JSON file or stdin",
	Long: `Apply a scheduling suggestion, writing its window onto the task.

The suggestion JSON is typically copied from 'planctl calendar --json'.

Examples:
  # Apply from a file
  planctl apply suggestion.json

  # Apply from stdin
  planctl calendar --json | jq '.suggestions[0]' | planctl apply -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args)
		if err != nil {
			return err
		}

		var sg json.RawMessage
		if err := json.Unmarshal(raw, &sg); err != nil {
			return fmt.Errorf("input is not valid JSON: %w", err)
		}
		if _, err := apiRequest(http.MethodPost, "/api/v1/suggestions/apply", sg); err != nil {
			return err
		}
		fmt.Println("Suggestion applied")
		return nil
	},
}

// denyCmd denies a suggestion by id
var denyCmd = &cobra.Command{
	Use:   "deny <suggestion-id>",
	Short: "Deny a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiRequest(http.MethodPost, "/api/v1/suggestions/"+args[0]+"/deny", nil); err != nil {
			return err
		}
		fmt.Println("Suggestion denied")
		return nil
	},
}

// pencilCmd tentatively pins a suggestion read from a file or stdin
var pencilCmd = &cobra.Command{
	Use:   "pencil [file]",
	Short: "Pencil in a suggestion from a JSON file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(args)
		if err != nil {
			return err
		}

		var sg json.RawMessage
		if err := json.Unmarshal(raw, &sg); err != nil {
			return fmt.Errorf("input is not valid JSON: %w", err)
		}
		if _, err := apiRequest(http.MethodPost, "/api/v1/suggestions/pencil", sg); err != nil {
			return err
		}
		fmt.Println("Suggestion penciled in")
		return nil
	},
}

// unpencilCmd removes a pin by suggestion id
var unpencilCmd = &cobra.Command{
	Use:   "unpencil <suggestion-id>",
	Short: "Remove a penciled-in suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiRequest(http.MethodDelete, "/api/v1/suggestions/pencil/"+args[0], nil); err != nil {
			return err
		}
		fmt.Println("Pencil removed")
		return nil
	},
}

// readInput reads from the named file, or stdin when the argument is
// absent or "-".
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}
