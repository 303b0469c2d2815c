package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/google/uuid"
)

var taskColumns = []string{"id", "title", "description", "status", "user_id", "created_at", "updated_at"}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scope(id, ownerID string) squirrel.Eq {
	where := squirrel.Eq{}
	if id != "" {
		where["id"] = id
	}
	if ownerID != "" {
		where["user_id"] = ownerID
	}
	return where
}

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	query, args, err := psql.Insert("tasks").
		Columns("id", "title", "description", "status", "user_id").
		Values(task.ID, task.Title, task.Description, string(task.Status), task.UserID).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id, ownerID string) (*models.Task, error) {
	query, args, err := psql.Select(taskColumns...).
		From("tasks").
		Where(scope(id, ownerID)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	return scanTask(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]*models.Task, error) {
	query, args, err := psql.Select(taskColumns...).
		From("tasks").
		Where(scope("", ownerID)).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	qb := psql.Update("tasks").
		Set("updated_at", squirrel.Expr("now()")).
		Where(scope(id, ownerID)).
		Suffix("RETURNING id, title, description, status, user_id, created_at, updated_at")

	if patch.Title != nil {
		qb = qb.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		qb = qb.Set("description", *patch.Description)
	}
	if patch.Status != nil {
		qb = qb.Set("status", string(*patch.Status))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}

	return scanTask(r.db.QueryRowContext(ctx, query, args...))
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query, args, err := psql.Delete("tasks").
		Where(scope(id, ownerID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, ownerID string) (map[models.TaskStatus]int, error) {
	query, args, err := psql.Select("status", "COUNT(*)").
		From("tasks").
		Where(scope("", ownerID)).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	counts := map[models.TaskStatus]int{}
	err = r.queryCounts(ctx, query, args, func(key string, n int) {
		counts[models.TaskStatus(key)] = n
	})
	return counts, err
}

func (r *PostgresRepository) CountByDay(ctx context.Context, ownerID string, from, to time.Time) (map[string]int, error) {
	day := "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	query, args, err := psql.Select(day, "COUNT(*)").
		From("tasks").
		Where(scope("", ownerID)).
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		GroupBy(day).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	counts := map[string]int{}
	err = r.queryCounts(ctx, query, args, func(key string, n int) {
		counts[key] = n
	})
	return counts, err
}

func (r *PostgresRepository) CountByUser(ctx context.Context) ([]models.UserCount, error) {
	query, args, err := psql.Select("user_id", "COUNT(*)").
		From("tasks").
		GroupBy("user_id").
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	result := []models.UserCount{}
	err = r.queryCounts(ctx, query, args, func(key string, n int) {
		result = append(result, models.UserCount{User: key, Count: n})
	})
	return result, err
}

func (r *PostgresRepository) queryCounts(ctx context.Context, query string, args []any, add func(string, int)) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		add(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		description sql.NullString
		status      string
	)
	err := row.Scan(&t.ID, &t.Title, &description, &status, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Status = models.TaskStatus(status)
	if !t.Status.Valid() {
		return nil, fmt.Errorf("db error: unknown task status %q", status)
	}
	if description.Valid {
		t.Description = &description.String
	}
	return t, nil
}
