package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-admin/n-admin/internal/rbac"
	"github.com/n-admin/n-admin/internal/shared"
	"github.com/n-admin/n-admin/internal/users"
	_ "github.com/n-admin/n-admin/testing"
)

type allowAllSource struct{}

func (allowAllSource) EffectiveSetForUser(ctx context.Context, userID int64) (rbac.PermissionSet, error) {
	return rbac.AllPermissions(), nil
}

func newTestRouter(t *testing.T, repo users.RepositoryPort) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	handler := users.NewHandler(nil, users.NewService(repo), rbac.Middleware{Source: allowAllSource{}})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := manager.Load(req.Context(), req)
			require.NoError(t, err)
			sess.SetUser("1")
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/users", handler.MountRoutes)
	return r
}

func TestUpdateUserEndpointConfirms(t *testing.T) {
	repo := newMemRepo()
	repo.byID[7] = users.User{ID: 7, Username: "old", Email: "old@x.com", PasswordHash: "prior-hash", Status: users.StatusActive}
	router := newTestRouter(t, repo)

	body := `{"username":"alice","email":"a@x.com","role_id":2}`
	req := httptest.NewRequest(http.MethodPut, "/users/7", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "user updated")
	assert.Equal(t, "prior-hash", repo.byID[7].PasswordHash, "omitted password keeps stored hash")
	assert.Equal(t, "alice", repo.byID[7].Username)
}

func TestUpdateUserValidationRejectedBeforeStore(t *testing.T) {
	repo := newMemRepo()
	repo.byID[7] = users.User{ID: 7, Username: "old", Email: "old@x.com", Status: users.StatusActive}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodPut, "/users/7", strings.NewReader(`{"username":"","email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "old", repo.byID[7].Username)
}

func TestDeleteSuperuserEndpointForbidden(t *testing.T) {
	repo := newMemRepo()
	repo.byID[1] = users.User{ID: 1, Username: "root", Email: "root@x.com", Superuser: true, Status: users.StatusActive}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	_, exists := repo.byID[1]
	assert.True(t, exists)
}

func TestCreateUserNeverEchoesPassword(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(t, repo)

	body := `{"username":"bob","email":"b@x.com","password":"supersecret9"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusCreated, res.Code)
	assert.NotContains(t, res.Body.String(), "supersecret9")
	assert.NotContains(t, res.Body.String(), "password")
}

func TestGetUnknownUserIsNotFound(t *testing.T) {
	router := newTestRouter(t, newMemRepo())

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}
