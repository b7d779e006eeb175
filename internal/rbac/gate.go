package rbac

// Policy selects how a multi-permission requirement is combined.
type Policy string

const (
	// PolicyAny passes when at least one required permission is held.
	PolicyAny Policy = "any"
	// PolicyAll passes only when every required permission is held.
	PolicyAll Policy = "all"
)

// Decision is the outcome of a gate evaluation.
type Decision int

const (
	// Deny means the requirement is not satisfied.
	Deny Decision = iota
	// Allow means the requirement is satisfied.
	Allow
	// Pending means permissions are still loading; callers should show an
	// interim state rather than a hard denial.
	Pending
)

// Gate evaluates whether protected content may be shown for a required
// permission set under the given policy.
type Gate struct {
	Required []string
	Policy   Policy
}

// Evaluate checks the gate against the current permission set. While loading
// is true an unsatisfied requirement reports Pending, never Deny, so callers
// do not flash a denial before the set is known-complete.
func (g Gate) Evaluate(set PermissionSet, loading bool) Decision {
	var ok bool
	switch g.Policy {
	case PolicyAll:
		ok = set.HasAll(g.Required)
	default:
		ok = set.HasAny(g.Required)
	}
	if ok {
		return Allow
	}
	if loading {
		return Pending
	}
	return Deny
}
