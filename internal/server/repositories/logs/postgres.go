package logs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one record. An empty context is stored as NULL.
func (r *PostgresRepository) Append(ctx context.Context, e logging.Entry) error {
	query :=
		`INSERT INTO logs (level, message, context, timestamp)
		 VALUES ($1, $2, $3, $4)
		 `

	logCtx := sql.NullString{String: e.Context, Valid: e.Context != ""}
	if _, err := r.db.ExecContext(ctx, query, e.Level, e.Message, logCtx, e.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
