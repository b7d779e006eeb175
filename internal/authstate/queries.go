package authstate

import "github.com/n-admin/n-admin/internal/rbac"

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Principal returns the current principal, or nil when logged out.
func (s *Store) Principal() *Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

// Permissions returns a copy of the cached permission codes.
func (s *Store) Permissions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.permissions...)
}

// Loading reports whether a session fetch is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// PermissionsLoading reports whether a permission fetch is in progress.
func (s *Store) PermissionsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissionsLoading
}

// Err returns the last recorded failure message, empty when healthy.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// EffectiveSet resolves the cached state into a permission set, applying the
// superuser override centrally through the resolver.
func (s *Store) EffectiveSet() rbac.PermissionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveSetLocked()
}

func (s *Store) effectiveSetLocked() rbac.PermissionSet {
	if s.principal == nil {
		return rbac.NewPermissionSet()
	}
	return rbac.ResolveEffectivePermissions(s.principal, s.permissions)
}

// HasPermission reports whether the current principal holds the given code.
// Pure read; no I/O.
func (s *Store) HasPermission(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveSetLocked().Has(code)
}

// HasAnyPermission reports whether the current principal holds at least one
// of the given codes. An empty requirement is false.
func (s *Store) HasAnyPermission(codes []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveSetLocked().HasAny(codes)
}

// HasAllPermissions reports whether the current principal holds every one of
// the given codes. An empty requirement is true.
func (s *Store) HasAllPermissions(codes []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveSetLocked().HasAll(codes)
}

// Evaluate runs an authorization gate against the cached state, reporting
// Pending instead of Deny while permissions are still loading.
func (s *Store) Evaluate(gate rbac.Gate) rbac.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gate.Evaluate(s.effectiveSetLocked(), s.permissionsLoading || s.phase == Initializing)
}
