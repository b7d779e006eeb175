// Package authstate holds the client-facing authentication state: the current
// principal, their resolved permission codes, and the fetch lifecycle around
// both. It is the single access point for that state; nothing mutates it from
// outside.
package authstate

import (
	"context"
	"log/slog"
	"sync"
)

// Phase tracks the hydration lifecycle of the store.
type Phase int

const (
	// Uninitialized is the phase before InitializeAuth has run.
	Uninitialized Phase = iota
	// Initializing is the transient phase while the first hydration runs.
	Initializing
	// Ready is the terminal phase for the session's lifetime; only Logout
	// re-enters Uninitialized.
	Ready
)

// Principal is the authenticated user as seen by the client state.
type Principal struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
}

// GetID implements rbac.Principal.
func (p *Principal) GetID() int64 {
	if p == nil {
		return 0
	}
	return p.ID
}

// IsSuperuser implements rbac.Principal.
func (p *Principal) IsSuperuser() bool {
	return p != nil && p.Superuser
}

// Gateway is the transport used to fetch session and permission data. The
// store treats it as an opaque collaborator and never interprets transport
// detail beyond success or failure.
type Gateway interface {
	GetSession(ctx context.Context) (*Principal, error)
	GetPermissions(ctx context.Context) ([]string, error)
}

// Store is the authoritative in-memory record of who is logged in and what
// they can do. All mutation goes through its methods; reads are pure.
type Store struct {
	gateway Gateway
	storage SnapshotStorage
	logger  *slog.Logger

	mu                  sync.Mutex
	phase               Phase
	principal           *Principal
	permissions         []string
	loading             bool
	permissionsLoading  bool
	errMsg              string
	sessionFetching     bool
	permissionsFetching bool

	// generation invalidates in-flight fetches across Logout so a late
	// arrival cannot resurrect stale state.
	generation uint64
}

// NewStore constructs a Store. storage may be nil to disable persistence.
func NewStore(gateway Gateway, storage SnapshotStorage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{gateway: gateway, storage: storage, logger: logger}
}

// InitializeAuth hydrates the store. It is a no-op once Ready. A persisted
// principal is adopted optimistically and re-validated in the background; a
// failed re-validation forces a full session-then-permissions re-fetch. With
// no persisted principal, session is fetched strictly before permissions.
func (s *Store) InitializeAuth(ctx context.Context) {
	s.mu.Lock()
	if s.phase == Ready {
		s.mu.Unlock()
		return
	}
	s.phase = Initializing
	gen := s.generation
	s.mu.Unlock()

	if snap := s.loadSnapshot(ctx); snap != nil && snap.Principal != nil {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.principal = snap.Principal
		s.permissions = append([]string(nil), snap.Permissions...)
		s.phase = Ready
		s.mu.Unlock()

		go s.revalidate(ctx, gen)
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	sessErr := s.fetchSession(ctx)
	permErr := s.fetchPermissions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.loading = false
	s.phase = Ready
	if sessErr != nil || permErr != nil {
		s.errMsg = "initialization failed"
	}
	s.persistLocked(ctx)
}

// revalidate confirms a hydrated snapshot against the store of record. Stale
// or corrupt snapshots self-heal through a full re-fetch rather than leaving
// the user perceived as authenticated with invalid data.
func (s *Store) revalidate(ctx context.Context, gen uint64) {
	if err := s.fetchPermissions(ctx); err != nil {
		s.logger.Warn("session revalidation failed", slog.Any("error", err))
		s.mu.Lock()
		stale := gen != s.generation
		s.mu.Unlock()
		if stale {
			return
		}
		_ = s.fetchSession(ctx)
		_ = s.fetchPermissions(ctx)
	}
}

// FetchSession refreshes the current principal from the gateway. A second
// caller while one fetch is outstanding observes a no-op; it does not block
// and does not trigger a duplicate round trip.
func (s *Store) FetchSession(ctx context.Context) {
	_ = s.fetchSession(ctx)
}

func (s *Store) fetchSession(ctx context.Context) error {
	s.mu.Lock()
	if s.sessionFetching {
		s.mu.Unlock()
		return nil
	}
	s.sessionFetching = true
	s.loading = true
	s.errMsg = ""
	gen := s.generation
	s.mu.Unlock()

	principal, err := s.gateway.GetSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Logout happened while in flight; the result is no longer ours to commit.
		return err
	}
	s.sessionFetching = false
	s.loading = false
	if err != nil {
		s.principal = nil
		s.errMsg = "failed to fetch session"
		s.persistLocked(ctx)
		return err
	}
	s.principal = principal
	s.persistLocked(ctx)
	return nil
}

// FetchPermissions refreshes the effective permission codes. Without a
// current principal the codes are cleared and no call is made. Concurrent
// callers are deduplicated the same way as FetchSession.
func (s *Store) FetchPermissions(ctx context.Context) {
	_ = s.fetchPermissions(ctx)
}

func (s *Store) fetchPermissions(ctx context.Context) error {
	s.mu.Lock()
	if s.permissionsFetching {
		s.mu.Unlock()
		return nil
	}
	if s.principal == nil {
		s.permissions = nil
		s.permissionsLoading = false
		s.persistLocked(ctx)
		s.mu.Unlock()
		return nil
	}
	s.permissionsFetching = true
	s.permissionsLoading = true
	s.errMsg = ""
	gen := s.generation
	s.mu.Unlock()

	codes, err := s.gateway.GetPermissions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return err
	}
	s.permissionsFetching = false
	s.permissionsLoading = false
	if err != nil {
		s.permissions = nil
		s.errMsg = "failed to fetch permissions"
		s.persistLocked(ctx)
		return err
	}
	s.permissions = append([]string(nil), codes...)
	s.persistLocked(ctx)
	return nil
}

// Logout synchronously resets every field to its initial value and clears
// both in-flight guards. Fetches still in flight are invalidated via the
// generation counter and cannot resurrect state after this returns.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.phase = Uninitialized
	s.principal = nil
	s.permissions = nil
	s.loading = false
	s.permissionsLoading = false
	s.errMsg = ""
	s.sessionFetching = false
	s.permissionsFetching = false
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Clear(ctx); err != nil {
			s.logger.Warn("clear auth snapshot", slog.Any("error", err))
		}
	}
}
