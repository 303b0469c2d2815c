// Package tasks declares the storage contract for tasks.
//
// Every read and write takes an ownerID. A non-empty ownerID restricts the
// statement to rows of that user, so a task of another user is reported as
// not found rather than forbidden. An empty ownerID addresses all rows.
package tasks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Get(ctx context.Context, id, ownerID string) (*models.Task, error)
	List(ctx context.Context, ownerID string) ([]*models.Task, error)
	Update(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id, ownerID string) error

	CountByStatus(ctx context.Context, ownerID string) (map[models.TaskStatus]int, error)
	// CountByDay buckets creation times in [from, to) by UTC calendar day (YYYY-MM-DD).
	CountByDay(ctx context.Context, ownerID string, from, to time.Time) (map[string]int, error)
	CountByUser(ctx context.Context) ([]models.UserCount, error)
}
