package auth_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/n-admin/n-admin/internal/auth"
	"github.com/n-admin/n-admin/internal/shared"
	_ "github.com/n-admin/n-admin/testing"
)

type memAuthRepo struct {
	mu       sync.Mutex
	byEmail  map[string]*auth.User
	byID     map[int64]*auth.User
	sessions map[string]int64
	touched  []int64
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{
		byEmail:  map[string]*auth.User{},
		byID:     map[int64]*auth.User{},
		sessions: map[string]int64{},
	}
}

func (r *memAuthRepo) add(u *auth.User) {
	r.byEmail[strings.ToLower(u.Email)] = u
	r.byID[u.ID] = u
}

func (r *memAuthRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memAuthRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memAuthRepo) TouchLastLogin(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func (r *memAuthRepo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = userID
	return nil
}

func (r *memAuthRepo) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

type staticPermLister struct {
	codes []string
}

func (s staticPermLister) RolePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	return s.codes, nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthServer(t *testing.T, repo *memAuthRepo, perms auth.PermissionLister) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	svc := auth.NewService(repo, nil, time.Hour)
	handler := auth.NewHandler(svc, perms, nil, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := manager.Load(req.Context(), req)
			require.NoError(t, err)
			ww := httptest.NewRecorder()
			next.ServeHTTP(ww, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
			require.NoError(t, manager.Commit(req.Context(), w, req, sess))
			for k, vs := range ww.Header() {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(ww.Code)
			_, _ = w.Write(ww.Body.Bytes())
		})
	})
	r.Route("/auth", handler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func TestLoginSetsSessionAndReturnsPrincipal(t *testing.T) {
	repo := newMemAuthRepo()
	repo.add(&auth.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: mustHash(t, "hunter22"), Status: "active"})
	srv := newAuthServer(t, repo, staticPermLister{codes: []string{"user:read"}})
	client := newClientWithJar(t)

	res, err := client.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, repo.sessions, 1)
	assert.Equal(t, []int64{1}, repo.touched)

	sessRes, err := client.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	defer sessRes.Body.Close()
	assert.Equal(t, http.StatusOK, sessRes.StatusCode)
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	repo := newMemAuthRepo()
	repo.add(&auth.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: mustHash(t, "hunter22"), Status: "active"})
	srv := newAuthServer(t, repo, staticPermLister{})
	client := newClientWithJar(t)

	res, err := client.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Empty(t, repo.sessions)
	assert.Empty(t, repo.touched, "failed logins never touch last_login_at")
}

func TestLoginDisabledAccountLooksLikeBadCredentials(t *testing.T) {
	repo := newMemAuthRepo()
	repo.add(&auth.User{ID: 2, Username: "bob", Email: "b@x.com", PasswordHash: mustHash(t, "hunter22"), Status: "disabled"})
	srv := newAuthServer(t, repo, staticPermLister{})
	client := newClientWithJar(t)

	res, err := client.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"b@x.com","password":"hunter22"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestSessionWithoutLoginIsUnauthorized(t *testing.T) {
	srv := newAuthServer(t, newMemAuthRepo(), staticPermLister{})
	client := newClientWithJar(t)

	res, err := client.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLogoutRemovesServerSessionRow(t *testing.T) {
	repo := newMemAuthRepo()
	repo.add(&auth.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: mustHash(t, "hunter22"), Status: "active"})
	srv := newAuthServer(t, repo, staticPermLister{})
	client := newClientWithJar(t)

	res, err := client.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Len(t, repo.sessions, 1)

	out, err := client.Post(srv.URL+"/auth/logout", "application/json", nil)
	require.NoError(t, err)
	out.Body.Close()

	assert.Empty(t, repo.sessions)
}

func TestPermissionsEndpointReturnsRoleCodes(t *testing.T) {
	repo := newMemAuthRepo()
	repo.add(&auth.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: mustHash(t, "hunter22"), Status: "active"})
	srv := newAuthServer(t, repo, staticPermLister{codes: []string{"user:read", "role:read"}})
	client := newClientWithJar(t)

	res, err := client.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
	require.NoError(t, err)
	res.Body.Close()

	gw := auth.NewHTTPGateway(srv.URL+"/auth", client)
	codes, err := gw.GetPermissions(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:read", "role:read"}, codes)

	principal, err := gw.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, int64(1), principal.ID)
	assert.Equal(t, "alice", principal.Username)
}

func TestGatewayAnonymousSessionIsNilPrincipal(t *testing.T) {
	srv := newAuthServer(t, newMemAuthRepo(), staticPermLister{})
	client := newClientWithJar(t)

	gw := auth.NewHTTPGateway(srv.URL+"/auth", client)
	principal, err := gw.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, principal)
}
