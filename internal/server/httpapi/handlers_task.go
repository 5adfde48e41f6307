package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/query"
	"github.com/avolkovs/taskdeck/internal/server/services"
	"github.com/avolkovs/taskdeck/internal/server/status"
)

const dueDateLayout = "2006-01-02"

// subtaskInput accepts the loose completion representations on the way in.
type subtaskInput struct {
	Title     string      `json:"title"`
	Completed status.Flag `json:"completed"`
}

func toSubtasks(in []subtaskInput) []models.Subtask {
	if in == nil {
		return nil
	}
	out := make([]models.Subtask, 0, len(in))
	for _, st := range in {
		out = append(out, models.Subtask{Title: st.Title, Completed: st.Completed.Value})
	}
	return out
}

type taskResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Priority    string           `json:"priority"`
	DueDate     string           `json:"dueDate"`
	Completed   bool             `json:"completed"`
	Subtasks    []models.Subtask `json:"subtasks"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func toTaskResponse(task *models.Task) taskResponse {
	subtasks := task.Subtasks
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		DueDate:     task.DueDate.Format(dueDateLayout),
		Completed:   task.Completed,
		Subtasks:    subtasks,
		CreatedAt:   task.CreatedAt,
	}
}

// parseDueDate accepts a plain calendar date or a full RFC 3339 timestamp.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(dueDateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: dueDate must be a YYYY-MM-DD date", common.ErrorValidation)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Priority    string         `json:"priority"`
		DueDate     string         `json:"dueDate"`
		Completed   status.Flag    `json:"completed"`
		Subtasks    []subtaskInput `json:"subtasks"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	params := services.CreateTaskParams{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Completed:   input.Completed.Value,
		Subtasks:    toSubtasks(input.Subtasks),
	}
	if input.DueDate != "" {
		due, err := parseDueDate(input.DueDate)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		params.DueDate = due
	}

	task, err := s.tasks.Create(r.Context(), userIDFromRequest(r), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, envelope{"task": toTaskResponse(task)})
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	tasks, err := s.tasks.List(r.Context(), userIDFromRequest(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task))
	}

	s.writeJSON(w, http.StatusOK, envelope{"tasks": out})
}

func (s *Server) taskStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.Stats(r.Context(), userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"stats": stats})
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), userIDFromRequest(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"task": toTaskResponse(task)})
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Priority    string          `json:"priority"`
		DueDate     string          `json:"dueDate"`
		Completed   status.Flag     `json:"completed"`
		Subtasks    *[]subtaskInput `json:"subtasks"`

		hasTitle       bool
		hasDescription bool
		hasPriority    bool
	}

	// Presence matters for partial updates, so decode twice: once into the
	// typed struct, once into a raw map to see which keys were sent.
	raw := map[string]any{}
	if err := s.readJSONInto(w, r, &input, raw); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	_, input.hasTitle = raw["title"]
	_, input.hasDescription = raw["description"]
	_, input.hasPriority = raw["priority"]

	params := services.UpdateTaskParams{}
	if input.hasTitle {
		params.Title = &input.Title
	}
	if input.hasDescription {
		params.Description = &input.Description
	}
	if input.hasPriority {
		params.Priority = &input.Priority
	}
	if _, ok := raw["dueDate"]; ok {
		due, err := parseDueDate(input.DueDate)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		params.DueDate = &due
	}
	if input.Completed.Set {
		params.Completed = &input.Completed.Value
	}
	if input.Subtasks != nil {
		subtasks := toSubtasks(*input.Subtasks)
		if subtasks == nil {
			subtasks = []models.Subtask{}
		}
		params.Subtasks = subtasks
	}

	task, err := s.tasks.Update(r.Context(), userIDFromRequest(r), r.PathValue("id"), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"task": toTaskResponse(task)})
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), userIDFromRequest(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
