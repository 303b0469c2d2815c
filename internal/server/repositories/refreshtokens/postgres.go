// Package refreshtokens provides a PostgreSQL-backed repository for managing
// refresh tokens used in the server's authentication flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements refresh token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new, non-revoked refresh token.
func (r *PostgresRepository) Create(ctx context.Context, userID string, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	rt := &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, ExpiresAt: expiresAt}
	if err := r.db.QueryRowContext(ctx, query, rt.ID, userID, token, expiresAt).Scan(&rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, expires_at, revoked, revoked_at, created_at, updated_at
		FROM refresh_tokens
		WHERE token = $1
	`
	rt := &models.RefreshToken{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rt.ID, &rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.Revoked, &revokedAt, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		rt.RevokedAt = &revokedAt.Time
	}
	return rt, nil
}

// Revoke marks a single token revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, token string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2, updated_at = $2
		WHERE token = $1
	`
	return r.exec(ctx, query, token, now)
}

// Consume revokes a live token. The row lock taken by the UPDATE serialises
// concurrent consumers, and the revoked predicate lets only the first match.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2, updated_at = $2
		WHERE token = $1 AND revoked = FALSE
	`
	return r.exec(ctx, query, token, now)
}

// RevokeAllForUser marks every live token of the user revoked.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2, updated_at = $2
		WHERE user_id = $1 AND revoked = FALSE
	`
	return r.exec(ctx, query, userID, now)
}

// DeleteExpired removes tokens past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	return r.exec(ctx, query, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
