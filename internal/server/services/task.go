package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/query"
	"github.com/avolkovs/taskdeck/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// timeNow is a seam for tests exercising the day-granularity due date rules.
var timeNow = time.Now

// TaskService owns the task business rules: field validation, owner scoping,
// and the derived views built by the query package. Completion flags reach
// this layer already canonicalized (see the status package); everything here
// works on plain bools.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewTaskService constructs a TaskService using the given repositories.
func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

// CreateTaskParams carries the validated-at-the-boundary fields for a new
// task. Completed and subtask flags are canonical bools by this point.
type CreateTaskParams struct {
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
	Completed   bool
	Subtasks    []models.Subtask
}

// UpdateTaskParams uses nil to mean "leave unchanged". Owner and creation
// time are not part of the updatable surface at all.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	Completed   *bool
	Subtasks    []models.Subtask
}

// Create validates the fields and persists a new task for ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, params CreateTaskParams) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       params.Title,
		Description: params.Description,
		DueDate:     params.DueDate,
		Completed:   params.Completed,
		Subtasks:    params.Subtasks,
	}

	if err := validateTitle(task.Title); err != nil {
		return nil, err
	}
	priority, err := validatePriority(params.Priority)
	if err != nil {
		return nil, err
	}
	task.Priority = priority
	if err := validateDueDate(task.DueDate); err != nil {
		return nil, err
	}
	if err := validateSubtasks(task.Subtasks); err != nil {
		return nil, err
	}

	repo := s.repomanager.Tasks(s.db)
	if err := repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}

	return task, nil
}

// Get returns a single task, scoped to its owner.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}
	return s.repomanager.Tasks(s.db).GetByID(ctx, ownerID, taskID)
}

// List returns the owner's tasks matching the filter, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string, filter query.Filter) ([]*models.Task, error) {
	tasks, err := s.repomanager.Tasks(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	return query.Apply(tasks, filter, timeNow()), nil
}

// Stats aggregates over the owner's full task set, ignoring any filter.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (query.Stats, error) {
	tasks, err := s.repomanager.Tasks(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return query.Stats{}, fmt.Errorf("error listing tasks: %w", err)
	}
	return query.Compute(tasks), nil
}

// Update applies the supplied fields to an owned task. Touched fields are
// re-validated with the same rules as Create. Concurrent updates are
// last-write-wins.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, params UpdateTaskParams) (*models.Task, error) {
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Tasks(s.db)

	task, err := repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if err := validateTitle(*params.Title); err != nil {
			return nil, err
		}
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Priority != nil {
		priority, err := validatePriority(*params.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
	}
	if params.DueDate != nil {
		if err := validateDueDate(*params.DueDate); err != nil {
			return nil, err
		}
		task.DueDate = *params.DueDate
	}
	if params.Completed != nil {
		task.Completed = *params.Completed
	}
	if params.Subtasks != nil {
		if err := validateSubtasks(params.Subtasks); err != nil {
			return nil, err
		}
		task.Subtasks = params.Subtasks
	}

	if err := repo.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Delete removes an owned task.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := validateTaskID(taskID); err != nil {
		return err
	}
	return s.repomanager.Tasks(s.db).Delete(ctx, ownerID, taskID)
}

// validateTaskID keeps non-UUID ids away from the uuid column, where
// Postgres would reject them with a driver error instead of a clean miss.
// A malformed id can never name an existing task, so it is NotFound.
func validateTaskID(taskID string) error {
	if _, err := uuid.Parse(taskID); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", common.ErrorValidation)
	}
	return nil
}

func validatePriority(priority string) (string, error) {
	canonical, ok := models.NormalizePriority(priority)
	if !ok {
		return "", fmt.Errorf("%w: priority must be one of Low, Medium, High", common.ErrorValidation)
	}
	return canonical, nil
}

// validateDueDate compares calendar days, not instants: the due date's own
// year/month/day is held against today's, so a date parsed as UTC midnight
// is not shifted to yesterday on servers west of UTC, and a task due later
// today is still valid.
func validateDueDate(due time.Time) error {
	if due.IsZero() {
		return fmt.Errorf("%w: dueDate must be provided", common.ErrorValidation)
	}
	now := timeNow()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := due.Date()
	dueDay := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	if dueDay.Before(today) {
		return fmt.Errorf("%w: dueDate must not be in the past", common.ErrorValidation)
	}
	return nil
}

func validateSubtasks(subtasks []models.Subtask) error {
	for _, st := range subtasks {
		if strings.TrimSpace(st.Title) == "" {
			return fmt.Errorf("%w: subtask title must not be empty", common.ErrorValidation)
		}
	}
	return nil
}
