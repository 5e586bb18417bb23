package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/plannerd/internal/calendar"
	"github.com/fyrsmithlabs/plannerd/internal/scheduler"
	"github.com/fyrsmithlabs/plannerd/internal/store"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
)

// defaultWindowDays is the calendar window when the request omits bounds.
const defaultWindowDays = 7

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// parseWindow reads the start/end query parameters. Accepts RFC3339 or
// date-only values; defaults to today through +7 days.
func parseWindow(c echo.Context) (time.Time, time.Time, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, defaultWindowDays)

	var err error
	if raw := c.QueryParam("start"); raw != "" {
		start, err = parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid start: "+err.Error())
		}
		end = start.AddDate(0, 0, defaultWindowDays)
	}
	if raw := c.QueryParam("end"); raw != "" {
		end, err = parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid end: "+err.Error())
		}
	}
	return start, end, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

// httpError maps service errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, scheduler.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, scheduler.ErrEmptyWindow),
		errors.Is(err, scheduler.ErrNilSuggestion),
		errors.Is(err, store.ErrEmptyTitle):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrScheduleNotFound),
		errors.Is(err, store.ErrPencilNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCalendar(c echo.Context) error {
	start, end, err := parseWindow(c)
	if err != nil {
		return err
	}
	data, err := s.svc.CalendarData(c.Request().Context(), start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) handleCalendarReset(c echo.Context) error {
	start, end, err := parseWindow(c)
	if err != nil {
		return err
	}
	data, err := s.svc.CalendarDataWithReset(c.Request().Context(), start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) handleRegenerate(c echo.Context) error {
	start, end, err := parseWindow(c)
	if err != nil {
		return err
	}
	data, err := s.svc.ForceRegenerate(c.Request().Context(), start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

// TransformRequest is the request body for the calendar transform
// endpoints. After and Minutes are ignored where not applicable.
type TransformRequest struct {
	Events  []calendar.Event `json:"events"`
	Minutes int              `json:"minutes"`
	After   *time.Time       `json:"after,omitempty"`
}

// TransformResponse carries the transformed event list.
type TransformResponse struct {
	Events []calendar.Event `json:"events"`
}

func (s *Server) handleAddBuffer(c echo.Context) error {
	var req TransformRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Minutes <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "minutes must be positive")
	}
	return c.JSON(http.StatusOK, TransformResponse{
		Events: calendar.AddBufferTime(req.Events, req.Minutes),
	})
}

func (s *Server) handleShift(c echo.Context) error {
	var req TransformRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.After == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "after is required")
	}
	return c.JSON(http.StatusOK, TransformResponse{
		Events: calendar.ShiftEventsAfter(req.Events, *req.After, req.Minutes),
	})
}

func (s *Server) handleApply(c echo.Context) error {
	var sg suggest.Suggestion
	if err := c.Bind(&sg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.svc.ApplySuggestion(c.Request().Context(), &sg); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ApplyAllRequest is the request body for POST /suggestions/apply-all.
type ApplyAllRequest struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// ApplyAllResponse reports per-suggestion outcomes. Results may be
// partial when a store error stops the loop.
type ApplyAllResponse struct {
	Results []scheduler.ApplyResult `json:"results"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) handleApplyAll(c echo.Context) error {
	var req ApplyAllRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	results, err := s.svc.ApplyAll(c.Request().Context(), req.Suggestions)
	resp := ApplyAllResponse{Results: results}
	if err != nil {
		if errors.Is(err, scheduler.ErrNotAuthenticated) {
			return httpError(err)
		}
		// Partial application: report what happened rather than a bare
		// error status.
		resp.Error = err.Error()
		return c.JSON(http.StatusMultiStatus, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeny(c echo.Context) error {
	if err := s.svc.DenySuggestion(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePencilIn(c echo.Context) error {
	var sg suggest.Suggestion
	if err := c.Bind(&sg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.svc.PencilIn(c.Request().Context(), &sg); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PenciledResponse is the response body for GET /suggestions/pencil/:id.
type PenciledResponse struct {
	SuggestionID string `json:"suggestion_id"`
	Penciled     bool   `json:"penciled"`
}

func (s *Server) handleIsPenciled(c echo.Context) error {
	id := c.Param("id")
	ok, err := s.svc.IsPenciledIn(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, PenciledResponse{SuggestionID: id, Penciled: ok})
}

func (s *Server) handleUnpencil(c echo.Context) error {
	if err := s.svc.Unpencil(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetResponse is the response body for POST /schedule/reset.
type ResetResponse struct {
	TasksCleared int `json:"tasks_cleared"`
}

func (s *Server) handleScheduleReset(c echo.Context) error {
	n, err := s.svc.Reset(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ResetResponse{TasksCleared: n})
}

func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.tasks.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c echo.Context) error {
	t, err := s.tasks.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var t store.Task
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	created, err := s.tasks.Create(c.Request().Context(), &t)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// TaskPatch is the request body for PATCH /tasks/:id. Absent fields are
// left unchanged.
type TaskPatch struct {
	Title          *string            `json:"title,omitempty"`
	Priority       *store.Priority    `json:"priority,omitempty"`
	Status         *store.Status      `json:"status,omitempty"`
	EstimatedHours *float64           `json:"estimated_hours,omitempty"`
	DueDate        *time.Time         `json:"due_date,omitempty"`
	DueHasTime     *bool              `json:"due_has_time,omitempty"`
	EnergyLevel    *store.EnergyLevel `json:"energy_level,omitempty"`
	Context        *store.TaskContext `json:"task_context,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	ProjectID      *string            `json:"project_id,omitempty"`
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var patch TaskPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := s.tasks.Update(c.Request().Context(), c.Param("id"), store.TaskUpdate{
		Title:          patch.Title,
		Priority:       patch.Priority,
		Status:         patch.Status,
		EstimatedHours: patch.EstimatedHours,
		DueDate:        patch.DueDate,
		DueHasTime:     patch.DueHasTime,
		EnergyLevel:    patch.EnergyLevel,
		Context:        patch.Context,
		Tags:           patch.Tags,
		ProjectID:      patch.ProjectID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SessionRequest is the request body for POST /tasks/:id/session.
type SessionRequest struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AISuggested bool      `json:"ai_suggested"`
}

func (s *Server) handleScheduleSession(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.End.After(req.Start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be after start")
	}
	err := s.tasks.ScheduleWorkSession(c.Request().Context(), c.Param("id"), req.Start, req.End, req.AISuggested)
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleClearSession(c echo.Context) error {
	if err := s.tasks.ClearWorkSession(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListSchedules(c echo.Context) error {
	entries, err := s.schedules.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleCreateSchedule(c echo.Context) error {
	var entry store.Schedule
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !entry.EndDate.After(entry.StartDate) && !entry.AllDay {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be after start_date")
	}
	created, err := s.schedules.Create(c.Request().Context(), &entry)
	if err != nil {
		return httpError(err)
	}
	s.logger.Debug("schedule created", zap.String("id", created.ID), zap.String("title", created.Title))
	return c.JSON(http.StatusCreated, created)
}
