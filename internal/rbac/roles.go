package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is one of the four fixed platform roles.
// The zero value is not a valid role; use ParseRole at trust boundaries.
type Role string

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleClient  Role = "client"
	RoleDriver  Role = "driver"
)

var ErrInvalidRole = errors.New("rbac: invalid role")

// All lists every role in escalation order, highest first.
var All = []Role{RoleAdmin, RoleManager, RoleDriver, RoleClient}

// ParseRole converts a wire value into a Role.
// Input is trimmed and lower-cased; anything outside the fixed set is rejected.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleClient, RoleDriver:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// Rank orders roles for escalation checks. Client and driver share the lowest tier.
func Rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleClient, RoleDriver:
		return 1
	default:
		return 0
	}
}

// IsStaff reports whether r belongs to the combined admin/manager tier.
func IsStaff(r Role) bool { return r == RoleAdmin || r == RoleManager }

func IsAdmin(r Role) bool { return r == RoleAdmin }

// CanGrant reports whether an actor holding role actor may assign target to someone.
// Identity mutations are admin-only: only admins can grant roles, and no
// grant may exceed the actor's own rank.
func CanGrant(actor, target Role) bool {
	if !IsAdmin(actor) || !target.Valid() {
		return false
	}
	return Rank(target) <= Rank(actor)
}

// Set is an explicit allow-list of roles. Supersets are spelled out, never derived.
type Set map[Role]struct{}

func NewSet(roles ...Role) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Staff is the admin+manager tier.
var Staff = NewSet(RoleAdmin, RoleManager)
