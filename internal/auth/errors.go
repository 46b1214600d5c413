package auth

import "errors"

// Authorization failures. Both are translated into the same uniform denial at
// the HTTP boundary; the distinction only survives in the audit trail.
var (
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: permission denied")

	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInactive           = errors.New("auth: principal inactive")
)

// IsAuthorization reports whether err is one of the authorization failures.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden)
}
