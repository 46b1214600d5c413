package auth

import "logistics-platform/internal/rbac"

// Principal is the authenticated actor of a request.
// It is resolved once at the session boundary and never mutated afterwards.
// A request without a principal carries a nil *Principal.
type Principal struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     rbac.Role `json:"role"`
	Active   bool      `json:"active"`
}

// IsStaff is a nil-safe shortcut for rbac.IsStaff on the principal's role.
func (p *Principal) IsStaff() bool {
	return p != nil && rbac.IsStaff(p.Role)
}
