package authstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n-admin/n-admin/internal/authstate"
	_ "github.com/n-admin/n-admin/testing"
)

type stubGateway struct {
	mu           sync.Mutex
	principal    *authstate.Principal
	perms        []string
	sessionErr   error
	permErr      error
	sessionCalls int
	permCalls    int
	calls        []string
	sessionGate  chan struct{}
	permGate     chan struct{}
}

func (g *stubGateway) GetSession(ctx context.Context) (*authstate.Principal, error) {
	g.mu.Lock()
	g.sessionCalls++
	g.calls = append(g.calls, "session")
	gate := g.sessionGate
	principal, err := g.principal, g.sessionErr
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return principal, err
}

func (g *stubGateway) GetPermissions(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	g.permCalls++
	g.calls = append(g.calls, "permissions")
	gate := g.permGate
	perms, err := g.perms, g.permErr
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return perms, err
}

func (g *stubGateway) counts() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionCalls, g.permCalls
}

func (g *stubGateway) callOrder() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *stubGateway) setPermErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.permErr = err
}

func alice() *authstate.Principal {
	return &authstate.Principal{ID: 7, Email: "a@x.com", Username: "alice"}
}

func TestInitializeColdFetchesSessionBeforePermissions(t *testing.T) {
	gw := &stubGateway{principal: alice(), perms: []string{"user:read"}}
	store := authstate.NewStore(gw, nil, nil)

	store.InitializeAuth(context.Background())

	assert.Equal(t, authstate.Ready, store.Phase())
	assert.Equal(t, []string{"session", "permissions"}, gw.callOrder())
	require.NotNil(t, store.Principal())
	assert.Equal(t, int64(7), store.Principal().ID)
	assert.Equal(t, []string{"user:read"}, store.Permissions())
	assert.False(t, store.Loading())
	assert.Empty(t, store.Err())
}

func TestInitializeIsIdempotentOnceReady(t *testing.T) {
	gw := &stubGateway{principal: alice(), perms: []string{"user:read"}}
	store := authstate.NewStore(gw, nil, nil)

	store.InitializeAuth(context.Background())
	store.InitializeAuth(context.Background())

	sessions, _ := gw.counts()
	assert.Equal(t, 1, sessions)
}

func TestInitializeHydratesSnapshotOptimistically(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storage := authstate.NewRedisSnapshotStorage(client, "test", time.Hour)
	require.NoError(t, storage.Save(context.Background(), authstate.Snapshot{
		Principal:   alice(),
		Permissions: []string{"user:read"},
		Initialized: true,
	}))

	gw := &stubGateway{principal: alice(), perms: []string{"user:read", "role:read"}}
	store := authstate.NewStore(gw, storage, nil)

	store.InitializeAuth(context.Background())

	// Ready immediately from the snapshot, before any round trip settles.
	assert.Equal(t, authstate.Ready, store.Phase())
	require.NotNil(t, store.Principal())

	// Background revalidation replaces the persisted codes with fresh ones.
	require.Eventually(t, func() bool {
		perms := store.Permissions()
		return len(perms) == 2
	}, time.Second, 5*time.Millisecond)
	sessions, _ := gw.counts()
	assert.Zero(t, sessions, "snapshot hydration must not refetch the session on success")
}

func TestInitializeSelfHealsWhenRevalidationFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storage := authstate.NewRedisSnapshotStorage(client, "test", time.Hour)
	require.NoError(t, storage.Save(context.Background(), authstate.Snapshot{
		Principal:   alice(),
		Permissions: []string{"user:read"},
		Initialized: true,
	}))

	gw := &stubGateway{principal: alice(), perms: []string{"role:read"}, permErr: errors.New("boom")}
	store := authstate.NewStore(gw, storage, nil)

	store.InitializeAuth(context.Background())

	// First permission fetch fails; the store falls back to a full
	// session-then-permissions refresh once the gateway recovers.
	require.Eventually(t, func() bool {
		sessions, _ := gw.counts()
		return sessions >= 1
	}, time.Second, 5*time.Millisecond)

	gw.setPermErr(nil)
	require.Eventually(t, func() bool {
		store.FetchPermissions(context.Background())
		return store.HasPermission("role:read")
	}, time.Second, 5*time.Millisecond)
}

func TestFetchSessionDeduplicatesConcurrentCallers(t *testing.T) {
	gate := make(chan struct{})
	gw := &stubGateway{principal: alice(), sessionGate: gate}
	store := authstate.NewStore(gw, nil, nil)

	done := make(chan struct{})
	go func() {
		store.FetchSession(context.Background())
		close(done)
	}()

	// Wait until the first call is inside the gateway.
	require.Eventually(t, func() bool {
		sessions, _ := gw.counts()
		return sessions == 1
	}, time.Second, time.Millisecond)

	// Second caller must no-op without blocking on the outstanding call.
	start := time.Now()
	store.FetchSession(context.Background())
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(gate)
	<-done

	sessions, _ := gw.counts()
	assert.Equal(t, 1, sessions)
	require.NotNil(t, store.Principal())
}

func TestFetchPermissionsWithoutPrincipalClearsAndSkipsCall(t *testing.T) {
	gw := &stubGateway{perms: []string{"user:read"}}
	store := authstate.NewStore(gw, nil, nil)

	store.FetchPermissions(context.Background())

	_, perms := gw.counts()
	assert.Zero(t, perms)
	assert.Empty(t, store.Permissions())
}

func TestFetchFailureSettlesToLoggedOutState(t *testing.T) {
	gw := &stubGateway{sessionErr: errors.New("connection refused")}
	store := authstate.NewStore(gw, nil, nil)

	store.FetchSession(context.Background())

	assert.Nil(t, store.Principal())
	assert.False(t, store.Loading())
	assert.Equal(t, "failed to fetch session", store.Err())
}

func TestLogoutWinsOverInFlightPermissionFetch(t *testing.T) {
	gate := make(chan struct{})
	gw := &stubGateway{principal: alice(), perms: []string{"user:read"}}
	store := authstate.NewStore(gw, nil, nil)
	store.FetchSession(context.Background())
	require.NotNil(t, store.Principal())

	gw.mu.Lock()
	gw.permGate = gate
	gw.mu.Unlock()

	done := make(chan struct{})
	go func() {
		store.FetchPermissions(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		_, perms := gw.counts()
		return perms == 1
	}, time.Second, time.Millisecond)

	store.Logout(context.Background())
	close(gate)
	<-done

	// The late-arriving result must not resurrect principal or permissions.
	assert.Nil(t, store.Principal())
	assert.Empty(t, store.Permissions())
	assert.Equal(t, authstate.Uninitialized, store.Phase())
	assert.Empty(t, store.Err())
}

func TestLogoutResetsEverythingSynchronously(t *testing.T) {
	gw := &stubGateway{principal: alice(), perms: []string{"user:read"}}
	store := authstate.NewStore(gw, nil, nil)
	store.InitializeAuth(context.Background())

	store.Logout(context.Background())

	assert.Equal(t, authstate.Uninitialized, store.Phase())
	assert.Nil(t, store.Principal())
	assert.Empty(t, store.Permissions())
	assert.False(t, store.Loading())
	assert.False(t, store.PermissionsLoading())

	// A fresh initialization works after logout.
	store.InitializeAuth(context.Background())
	assert.Equal(t, authstate.Ready, store.Phase())
	require.NotNil(t, store.Principal())
}

func TestAuthorizationQueriesArePureReads(t *testing.T) {
	gw := &stubGateway{principal: alice(), perms: []string{"user:read", "role:read"}}
	store := authstate.NewStore(gw, nil, nil)
	store.InitializeAuth(context.Background())
	sessionsBefore, permsBefore := gw.counts()

	assert.True(t, store.HasPermission("user:read"))
	assert.False(t, store.HasPermission("user:delete"))
	assert.True(t, store.HasAnyPermission([]string{"user:delete", "role:read"}))
	assert.False(t, store.HasAnyPermission([]string{}))
	assert.True(t, store.HasAllPermissions([]string{"user:read", "role:read"}))
	assert.True(t, store.HasAllPermissions([]string{}))
	assert.False(t, store.HasAllPermissions([]string{"user:read", "user:delete"}))

	sessionsAfter, permsAfter := gw.counts()
	assert.Equal(t, sessionsBefore, sessionsAfter)
	assert.Equal(t, permsBefore, permsAfter)
}

func TestSuperuserPassesEveryCheck(t *testing.T) {
	gw := &stubGateway{principal: &authstate.Principal{ID: 1, Email: "root@x.com", Superuser: true}}
	store := authstate.NewStore(gw, nil, nil)
	store.InitializeAuth(context.Background())

	assert.True(t, store.HasPermission("user:delete"))
	assert.True(t, store.HasAllPermissions([]string{"role:delete", "permission:create"}))
}

func TestSnapshotRoundTripExcludesTransients(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storage := authstate.NewRedisSnapshotStorage(client, "test", time.Hour)

	gw := &stubGateway{principal: alice(), perms: []string{"user:read"}}
	store := authstate.NewStore(gw, storage, nil)
	store.InitializeAuth(context.Background())

	snap, err := storage.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(7), snap.Principal.ID)
	assert.Equal(t, []string{"user:read"}, snap.Permissions)
	assert.True(t, snap.Initialized)

	store.Logout(context.Background())
	snap, err = storage.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}
