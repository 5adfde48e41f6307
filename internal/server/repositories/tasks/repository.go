package tasks

import (
	"context"

	"github.com/avolkovs/taskdeck/internal/server/models"
)

// Repository is the owner-scoped task store. Every operation that addresses
// a single task takes the owner id; a task that does not exist and a task
// that belongs to someone else are both reported as not found.
type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, ownerID, id string) error
}
