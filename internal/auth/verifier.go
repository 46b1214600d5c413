package auth

import "context"

// CredentialVerifier checks a username/password pair and returns the matching
// principal. Password hashing lives behind this interface.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (Principal, error)
}

// PrincipalResolver loads the current principal for a user id.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id string) (Principal, error)
}

// Assertion is the verified outcome of an external identity provider token.
type Assertion struct {
	Principal Principal
	// Created is true when the identity provider login provisioned a new user.
	Created bool
	Method  string
}

// AssertionVerifier validates a third-party identity assertion (e.g. a Google
// ID token) and maps it to a local principal.
type AssertionVerifier interface {
	VerifyAssertion(ctx context.Context, token string) (Assertion, error)
}
