// Package tasks provides the PostgreSQL-backed task store. Ownership is
// enforced in every WHERE clause, so a zero-row result is indistinguishable
// between "no such task" and "someone else's task".
package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/dbx"
	"github.com/avolkovs/taskdeck/internal/server/models"
)

// PostgresRepository implements task storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, owner_id, title, description, priority, due_date, completed, subtasks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	subtasks, err := marshalSubtasks(task.Subtasks)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		task.ID, task.OwnerID, task.Title, task.Description, task.Priority,
		task.DueDate, task.Completed, subtasks).Scan(&task.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Task, error) {
	query := `
		SELECT id, owner_id, title, description, priority, due_date, completed, subtasks, created_at FROM tasks
		WHERE id = $1 AND owner_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, id, ownerID)
	task, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	query := `
		SELECT id, owner_id, title, description, priority, due_date, completed, subtasks, created_at FROM tasks
		WHERE owner_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites every mutable column; partial-update semantics live in the
// service, which loads the row first. OwnerID and CreatedAt are never touched.
func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET title = $3, description = $4, priority = $5, due_date = $6, completed = $7, subtasks = $8
		WHERE id = $1 AND owner_id = $2
	`

	subtasks, err := marshalSubtasks(task.Subtasks)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query,
		task.ID, task.OwnerID, task.Title, task.Description, task.Priority,
		task.DueDate, task.Completed, subtasks)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `
		DELETE FROM tasks
		WHERE id = $1 AND owner_id = $2
	`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func marshalSubtasks(subtasks []models.Subtask) ([]byte, error) {
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	b, err := json.Marshal(subtasks)
	if err != nil {
		return nil, fmt.Errorf("subtasks marshal error: %w", err)
	}
	return b, nil
}

func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	task := &models.Task{}
	var subtasks []byte
	err := scan(&task.ID, &task.OwnerID, &task.Title, &task.Description, &task.Priority,
		&task.DueDate, &task.Completed, &subtasks, &task.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(subtasks) > 0 {
		if err := json.Unmarshal(subtasks, &task.Subtasks); err != nil {
			return nil, fmt.Errorf("subtasks unmarshal error: %w", err)
		}
	}
	return task, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
