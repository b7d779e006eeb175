package rbac

import (
	"sort"
	"strings"
)

// PermissionSet is the effective set of permission codes a principal may
// exercise. The superuser sentinel set satisfies every check without
// evaluating individual codes.
type PermissionSet struct {
	all   bool
	codes map[string]struct{}
}

// NewPermissionSet builds a set from the given codes. Codes are normalized to
// lower case; blanks are dropped.
func NewPermissionSet(codes ...string) PermissionSet {
	set := PermissionSet{codes: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		code = normalizeCode(code)
		if code == "" {
			continue
		}
		set.codes[code] = struct{}{}
	}
	return set
}

// AllPermissions returns the sentinel set granting every permission.
func AllPermissions() PermissionSet {
	return PermissionSet{all: true}
}

// ResolveEffectivePermissions computes the effective permission set for a
// principal over already-fetched role permission codes. Superusers receive
// the all-permissions sentinel regardless of role state; a principal without
// a role yields the empty set. Absence of data is never an error here.
func ResolveEffectivePermissions(p Principal, rolePermissions []string) PermissionSet {
	if p == nil {
		return NewPermissionSet()
	}
	if p.IsSuperuser() {
		return AllPermissions()
	}
	return NewPermissionSet(rolePermissions...)
}

// Has reports whether the set grants the given code.
func (s PermissionSet) Has(code string) bool {
	if s.all {
		return true
	}
	_, ok := s.codes[normalizeCode(code)]
	return ok
}

// HasAny reports whether the set grants at least one of the given codes.
// An empty requirement is vacuously false.
func (s PermissionSet) HasAny(codes []string) bool {
	for _, code := range codes {
		if s.Has(code) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set grants every one of the given codes.
// An empty requirement is vacuously true.
func (s PermissionSet) HasAll(codes []string) bool {
	for _, code := range codes {
		if !s.Has(code) {
			return false
		}
	}
	return true
}

// IsAll reports whether this is the superuser sentinel set.
func (s PermissionSet) IsAll() bool {
	return s.all
}

// Codes returns the sorted permission codes. The sentinel set has no
// enumerable codes and returns nil.
func (s PermissionSet) Codes() []string {
	if s.all || len(s.codes) == 0 {
		return nil
	}
	codes := make([]string, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of enumerable codes in the set.
func (s PermissionSet) Len() int {
	return len(s.codes)
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
