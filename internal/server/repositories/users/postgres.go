package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/google/uuid"
)

// Roles travel as a comma separated string so the repository stays on plain
// database/sql types.
const rolesSeparator = ","

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if len(user.Roles) == 0 {
		user.Roles = []rbac.Role{rbac.RoleUser}
	}

	query :=
		`INSERT INTO users (id, email, name, roles, google_id)
		 VALUES ($1, $2, $3, string_to_array($4, ','), $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, joinRoles(user.Roles), user.GoogleID).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error) {
	query :=
		`SELECT id, email, name, array_to_string(roles, ','), google_id, created_at, updated_at FROM users
		 WHERE google_id = $1 OR email = $2
		 ORDER BY CASE WHEN google_id = $1 THEN 0 ELSE 1 END
		 LIMIT 1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, googleID, email))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, name, array_to_string(roles, ','), google_id, created_at, updated_at FROM users
		 WHERE id = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET email = $2, name = $3, google_id = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.GoogleID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var (
		roles    string
		googleID sql.NullString
	)

	err := row.Scan(&user.ID, &user.Email, &user.Name, &roles, &googleID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Roles = splitRoles(roles)
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}

	return user, nil
}

func joinRoles(roles []rbac.Role) string {
	return strings.Join(rbac.Strings(roles), rolesSeparator)
}

func splitRoles(s string) []rbac.Role {
	if s == "" {
		return nil
	}
	return rbac.ParseRoles(strings.Split(s, rolesSeparator))
}
