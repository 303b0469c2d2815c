package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskUUID = "5b3d4c1e-8f0a-4d2b-9c6e-7a1f2e3d4c5b"

func taskRequest(t *testing.T, method, path string, body io.Reader, roles ...rbac.Role) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(common.AuthorizationHeaderName, bearer(t, "owner-1", roles...))
	return req
}

func TestTaskRoutes_DispatchToVariant(t *testing.T) {
	tests := []struct {
		method string
		path   string
		role   rbac.Role
		call   string
		owner  string
		code   int
	}{
		{http.MethodGet, "/tasks/metrics", rbac.RoleUser, "Metrics", "owner-1", http.StatusOK},
		{http.MethodGet, "/tasks/metrics/admin", rbac.RoleAdmin, "AdminMetrics", "", http.StatusOK},
		{http.MethodGet, "/tasks", rbac.RoleUser, "FindAllByOwner", "owner-1", http.StatusOK},
		{http.MethodGet, "/tasks/all", rbac.RoleAdmin, "FindAll", "", http.StatusOK},
		{http.MethodGet, "/tasks/" + taskUUID, rbac.RoleUser, "FindOneByOwner", "owner-1", http.StatusOK},
		{http.MethodGet, "/tasks/admin/" + taskUUID, rbac.RoleAdmin, "FindOne", "", http.StatusOK},
		{http.MethodPatch, "/tasks/" + taskUUID, rbac.RoleUser, "UpdateByOwner", "owner-1", http.StatusOK},
		{http.MethodPatch, "/tasks/admin/" + taskUUID, rbac.RoleAdmin, "Update", "", http.StatusOK},
		{http.MethodDelete, "/tasks/" + taskUUID, rbac.RoleUser, "RemoveByOwner", "owner-1", http.StatusOK},
		{http.MethodDelete, "/tasks/admin/" + taskUUID, rbac.RoleAdmin, "Remove", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			e := newTestEnv(t)
			var body io.Reader
			if tt.method == http.MethodPatch {
				body = strings.NewReader(`{"status":"COMPLETED"}`)
			}

			rec := e.do(taskRequest(t, tt.method, tt.path, body, tt.role))

			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.call}, e.tasks.calls)
			assert.Equal(t, tt.owner, e.tasks.owner)
		})
	}
}

func TestTaskRoutes_PermissionDenied(t *testing.T) {
	paths := []struct{ method, path string }{
		{http.MethodGet, "/tasks/metrics/admin"},
		{http.MethodGet, "/tasks/all"},
		{http.MethodGet, "/tasks/admin/" + taskUUID},
		{http.MethodPatch, "/tasks/admin/" + taskUUID},
		{http.MethodDelete, "/tasks/admin/" + taskUUID},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			e := newTestEnv(t)

			rec := e.do(taskRequest(t, p.method, p.path, strings.NewReader(`{}`), rbac.RoleUser))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			assert.Empty(t, e.tasks.calls)
		})
	}

	e := newTestEnv(t)
	rec := e.do(taskRequest(t, http.MethodPost, "/tasks", strings.NewReader(`{"title":"x"}`), rbac.RoleGuest))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, e.tasks.calls)
}

func TestTaskRoutes_RequireAuthentication(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, e.tasks.calls)
}

func TestTaskRoutes_InvalidID(t *testing.T) {
	for _, path := range []string{"/tasks/not-a-uuid", "/tasks/admin/123"} {
		e := newTestEnv(t)

		rec := e.do(taskRequest(t, http.MethodGet, path, nil, rbac.RoleAdmin))

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Empty(t, e.tasks.calls)
	}
}

func TestCreateTask(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(taskRequest(t, http.MethodPost, "/tasks", strings.NewReader(`{"title":"Write docs","userId":"intruder"}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "owner-1", e.tasks.owner)
	assert.Equal(t, "Write docs", e.tasks.created.Title)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "owner-1", body["userId"])
	assert.Equal(t, "PENDING", body["status"])
}

func TestCreateTask_BadBody(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(taskRequest(t, http.MethodPost, "/tasks", strings.NewReader(`{"title":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.tasks.calls)
}

func TestTaskRoutes_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("%w: title is required", common.ErrorValidation), http.StatusBadRequest, "title is required"},
		{common.ErrorNotFound, http.StatusNotFound, "Not found"},
		{common.ErrorInternal, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		e := newTestEnv(t)
		e.tasks.err = tt.err

		rec := e.do(taskRequest(t, http.MethodGet, "/tasks/"+taskUUID, nil))

		assert.Equal(t, tt.code, rec.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.msg), rec.Body.String())
	}
}
