package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	taskPriority string
	taskHours    float64
	taskDue      string
	taskContext  string
	taskEnergy   string
	taskJSON     bool
)

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)

	tasksListCmd.Flags().BoolVar(&taskJSON, "json", false, "print raw JSON")

	tasksAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "priority (low, medium, high, urgent)")
	tasksAddCmd.Flags().Float64Var(&taskHours, "hours", 1, "estimated effort in hours")
	tasksAddCmd.Flags().StringVar(&taskDue, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	tasksAddCmd.Flags().StringVar(&taskContext, "context", "", "task context (business, personal)")
	tasksAddCmd.Flags().StringVar(&taskEnergy, "energy", "", "energy level (low, medium, high)")
}

// tasksCmd groups task operations
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks",
}

// cliTask mirrors the fields of store.Task the CLI uses.
type cliTask struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title"`
	Priority         string     `json:"priority,omitempty"`
	Status           string     `json:"status,omitempty"`
	EstimatedHours   float64    `json:"estimated_hours,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	DueHasTime       bool       `json:"due_has_time,omitempty"`
	WorkSessionStart *time.Time `json:"work_session_scheduled_start,omitempty"`
	TaskContext      string     `json:"task_context,omitempty"`
	EnergyLevel      string     `json:"energy_level,omitempty"`
}

// tasksListCmd lists all tasks
var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := apiRequest(http.MethodGet, "/api/v1/tasks", nil)
		if err != nil {
			return err
		}
		if taskJSON {
			return printJSON(body)
		}

		var tasks []cliTask
		if err := json.Unmarshal(body, &tasks); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks")
			return nil
		}
		for _, t := range tasks {
			line := fmt.Sprintf("%-36s  %-8s %-12s %s", t.ID, t.Priority, t.Status, t.Title)
			if t.DueDate != nil {
				line += "  due " + t.DueDate.Local().Format("2006-01-02")
			}
			if t.WorkSessionStart != nil {
				line += "  scheduled " + t.WorkSessionStart.Local().Format("Jan 2 15:04")
			}
			fmt.Println(line)
		}
		return nil
	},
}

// tasksAddCmd creates a task
var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Long: `Create a task on the plannerd server.

Examples:
  planctl tasks add "Write quarterly report" --priority high --hours 3
  planctl tasks add "Book dentist" --context personal --due 2025-06-20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := cliTask{
			Title:          args[0],
			Priority:       taskPriority,
			EstimatedHours: taskHours,
			TaskContext:    taskContext,
			EnergyLevel:    taskEnergy,
		}
		if taskDue != "" {
			due, hasTime, err := parseDue(taskDue)
			if err != nil {
				return err
			}
			t.DueDate = &due
			t.DueHasTime = hasTime
		}

		body, err := apiRequest(http.MethodPost, "/api/v1/tasks", t)
		if err != nil {
			return err
		}

		var created cliTask
		if err := json.Unmarshal(body, &created); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("Created task %s\n", created.ID)
		return nil
	},
}

// parseDue parses a due date, reporting whether it carried a time of day.
func parseDue(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC3339", raw)
	}
	return t, false, nil
}
