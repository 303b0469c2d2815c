package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/auth"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
)

const testSecret = "test-secret"

type fakeSessions struct {
	user       *models.User
	findErr    error
	createErr  error
	issueErr   error
	refreshErr error
	revokeErr  error

	refreshed []string
	revoked   []string
}

func (f *fakeSessions) FindOrCreateUserFromGoogle(_ context.Context, p models.GoogleProfile) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.User{ID: "u1", Email: p.Email, Name: p.Name, Roles: []rbac.Role{rbac.RoleUser}}, nil
}

func (f *fakeSessions) IssueTokenPair(_ context.Context, u *models.User) (*services.TokenPair, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return &services.TokenPair{AccessToken: "access-" + u.ID, RefreshToken: "refresh-" + u.ID}, nil
}

func (f *fakeSessions) HandleRefresh(_ context.Context, token string) (*services.TokenPair, error) {
	f.refreshed = append(f.refreshed, token)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (f *fakeSessions) RevokeAllUserRefreshTokens(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return f.revokeErr
}

func (f *fakeSessions) FindUserByID(_ context.Context, userID string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.user == nil || f.user.ID != userID {
		return nil, common.ErrorNotFound
	}
	return f.user, nil
}

func (f *fakeSessions) Permissions(u *models.User) []rbac.Permission {
	return rbac.Resolve(u.Roles...).List()
}

// fakeTasks records which variant was called and returns canned results.
type fakeTasks struct {
	calls   []string
	owner   string
	created services.CreateTaskInput
	err     error
}

func (f *fakeTasks) record(name, owner string) {
	f.calls = append(f.calls, name)
	f.owner = owner
}

func (f *fakeTasks) task(id, owner string) *models.Task {
	return &models.Task{ID: id, Title: "t", Status: models.TaskStatusPending, UserID: owner}
}

func (f *fakeTasks) Create(_ context.Context, ownerID string, in services.CreateTaskInput) (*models.Task, error) {
	f.record("Create", ownerID)
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return f.task("11111111-1111-1111-1111-111111111111", ownerID), nil
}

func (f *fakeTasks) FindAllByOwner(_ context.Context, ownerID string) ([]*models.Task, error) {
	f.record("FindAllByOwner", ownerID)
	return []*models.Task{}, f.err
}

func (f *fakeTasks) FindAll(context.Context) ([]*models.Task, error) {
	f.record("FindAll", "")
	return []*models.Task{}, f.err
}

func (f *fakeTasks) FindOneByOwner(_ context.Context, id, ownerID string) (*models.Task, error) {
	f.record("FindOneByOwner", ownerID)
	if f.err != nil {
		return nil, f.err
	}
	return f.task(id, ownerID), nil
}

func (f *fakeTasks) FindOne(_ context.Context, id string) (*models.Task, error) {
	f.record("FindOne", "")
	if f.err != nil {
		return nil, f.err
	}
	return f.task(id, "someone"), nil
}

func (f *fakeTasks) UpdateByOwner(_ context.Context, id, ownerID string, _ services.UpdateTaskInput) (*models.Task, error) {
	f.record("UpdateByOwner", ownerID)
	if f.err != nil {
		return nil, f.err
	}
	return f.task(id, ownerID), nil
}

func (f *fakeTasks) Update(_ context.Context, id string, _ services.UpdateTaskInput) (*models.Task, error) {
	f.record("Update", "")
	if f.err != nil {
		return nil, f.err
	}
	return f.task(id, "someone"), nil
}

func (f *fakeTasks) RemoveByOwner(_ context.Context, _, ownerID string) error {
	f.record("RemoveByOwner", ownerID)
	return f.err
}

func (f *fakeTasks) Remove(context.Context, string) error {
	f.record("Remove", "")
	return f.err
}

func (f *fakeTasks) Metrics(_ context.Context, ownerID string) (*models.TaskMetrics, error) {
	f.record("Metrics", ownerID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.TaskMetrics{TotalTasks: 1, PendingTasks: 1}, nil
}

func (f *fakeTasks) AdminMetrics(context.Context) (*models.TaskMetrics, error) {
	f.record("AdminMetrics", "")
	if f.err != nil {
		return nil, f.err
	}
	return &models.TaskMetrics{TasksByUser: []models.UserCount{}}, nil
}

type fakeProvider struct {
	profile models.GoogleProfile
	err     error
	codes   []string
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeProvider) Profile(_ context.Context, code string) (models.GoogleProfile, error) {
	f.codes = append(f.codes, code)
	return f.profile, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTSecret = testSecret
	cfg.FrontendURL = "http://front.test"
	cfg.CookieDomain = "front.test"
	return cfg
}

type testEnv struct {
	cfg      *config.Config
	sessions *fakeSessions
	tasks    *fakeTasks
	provider *fakeProvider
	server   *Server
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	e := &testEnv{
		cfg:      cfg,
		sessions: &fakeSessions{},
		tasks:    &fakeTasks{},
		provider: &fakeProvider{profile: models.GoogleProfile{GoogleID: "g-1", Email: "ann@example.com", Name: "Ann"}},
	}
	e.server = NewServer(cfg, logging.Nop{}, e.sessions, e.tasks, e.provider)
	return e
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID string, roles ...rbac.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(auth.Identity{UserID: userID, Email: userID + "@example.com", Name: userID, Roles: roles}, []byte(testSecret), time.Minute, time.Now())
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	return "Bearer " + tok
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
