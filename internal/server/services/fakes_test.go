package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/logs"
	refreshtokensrepo "github.com/dmitrijs2005/gophtasks/internal/server/repositories/refreshtokens"
	tasksrepo "github.com/dmitrijs2005/gophtasks/internal/server/repositories/tasks"
	usersrepo "github.com/dmitrijs2005/gophtasks/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memUsers is an in-memory users repository.
type memUsers struct {
	mu      sync.Mutex
	rows    map[string]*models.User
	creates int
	updates int

	findErr   error
	createErr error
	updateErr error
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{rows: map[string]*models.User{}}
	for _, u := range users {
		m.rows[u.ID] = u
	}
	return m
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.GoogleID != nil {
		g := *u.GoogleID
		c.GoogleID = &g
	}
	return &c
}

func (m *memUsers) FindByGoogleIDOrEmail(_ context.Context, googleID, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var byEmail *models.User
	for _, u := range m.rows {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return cloneUser(u), nil
		}
		if u.Email == email {
			byEmail = u
		}
	}
	if byEmail != nil {
		return cloneUser(byEmail), nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.creates++
	if u.ID == "" {
		u.ID = "user-" + u.Email
	}
	m.rows[u.ID] = cloneUser(u)
	return u, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.rows[u.ID]; !ok {
		return common.ErrorNotFound
	}
	m.updates++
	m.rows[u.ID] = cloneUser(u)
	return nil
}

// memTokens is an in-memory refresh token repository.
type memTokens struct {
	mu   sync.Mutex
	rows map[string]*models.RefreshToken

	findErr      error
	createErr    error
	revokeErr    error
	revokeAllErr error
	deleteErr    error

	beforeConsume func()
}

func newMemTokens(tokens ...*models.RefreshToken) *memTokens {
	m := &memTokens{rows: map[string]*models.RefreshToken{}}
	for _, t := range tokens {
		m.rows[t.Token] = t
	}
	return m
}

func (m *memTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	rt := &models.RefreshToken{ID: token, Token: token, UserID: userID, ExpiresAt: expiresAt}
	m.rows[token] = rt
	c := *rt
	return &c, nil
}

func (m *memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	rt, ok := m.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *rt
	return &c, nil
}

func (m *memTokens) Revoke(_ context.Context, token string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return 0, m.revokeErr
	}
	rt, ok := m.rows[token]
	if !ok {
		return 0, nil
	}
	rt.Revoked = true
	rt.RevokedAt = &now
	return 1, nil
}

// Consume honours beforeConsume, which lets a test revoke the row between
// the lookup and the update the way a concurrent refresh would.
func (m *memTokens) Consume(_ context.Context, token string, now time.Time) (int64, error) {
	if m.beforeConsume != nil {
		m.beforeConsume()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return 0, m.revokeErr
	}
	rt, ok := m.rows[token]
	if !ok || rt.Revoked {
		return 0, nil
	}
	rt.Revoked = true
	rt.RevokedAt = &now
	return 1, nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeAllErr != nil {
		return 0, m.revokeAllErr
	}
	var n int64
	for _, rt := range m.rows {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for k, rt := range m.rows {
		if rt.ExpiresAt.Before(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) live(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, rt := range m.rows {
		if rt.UserID == userID && !rt.Revoked {
			out = append(out, rt.Token)
		}
	}
	return out
}

type fakeRepoManager struct {
	u *memUsers
	r *memTokens
	t tasksrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasksrepo.Repository                 { return m.t }
func (m *fakeRepoManager) Logs(db dbx.DBTX) logs.Repository                       { return nil }
