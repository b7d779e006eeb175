package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input, rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrPolicyViolation indicates an operation forbidden by a domain rule.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrRoleInUse indicates a role still referenced by users.
	ErrRoleInUse = errors.New("role in use")
	// ErrDuplicate indicates a uniqueness constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInvalid indicates a cached session failed re-validation.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps an internal error to copy that can be returned to the
// caller. Store-layer detail never leaves the service boundary.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, ErrValidation):
		return "The submitted data is invalid"
	case errors.Is(err, ErrRoleInUse):
		return "This role is still assigned to users"
	case errors.Is(err, ErrDuplicate):
		return "A record with these details already exists"
	case errors.Is(err, ErrPolicyViolation):
		return "This operation is not permitted"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrSessionInvalid):
		return "Your session is no longer valid"
	default:
		return "An unexpected error occurred"
	}
}
