// Package policy decides request-level and object-level access.
//
// Every predicate here is a pure function of its inputs: no I/O, no shared
// state, safe for concurrent use. A false result is a denial; turning it into
// a response and an audit entry is the caller's job.
package policy

import (
	"net/http"

	"logistics-platform/internal/auth"
	"logistics-platform/internal/ownership"
	"logistics-platform/internal/rbac"
)

// Request is the input of request-level checks.
type Request struct {
	Principal *auth.Principal
	Method    string
	Action    Action
}

// Check is a request-level predicate, evaluated before any object is loaded.
type Check func(Request) bool

// ObjectCheck is an object-level predicate, evaluated once the instance is in hand.
type ObjectCheck func(Request, any) bool

// Authenticated is true iff p is present and active.
func Authenticated(p *auth.Principal) bool {
	return p != nil && p.Active && p.ID != ""
}

// IsAuthenticated grants any authenticated principal.
func IsAuthenticated(r Request) bool { return Authenticated(r.Principal) }

// Deny never grants.
func Deny(Request) bool { return false }

// AnyRole grants authenticated principals whose role is in the explicit list.
func AnyRole(roles ...rbac.Role) Check {
	set := rbac.NewSet(roles...)
	return func(r Request) bool {
		return Authenticated(r.Principal) && set.Has(r.Principal.Role)
	}
}

// StaffOnly grants admins and managers.
var StaffOnly = AnyRole(rbac.RoleAdmin, rbac.RoleManager)

// AdminOnly grants admins.
var AdminOnly = AnyRole(rbac.RoleAdmin)

// IsSafeMethod reports whether method is a read method.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ReadOnly grants safe methods only. It does not check authentication; compose it.
func ReadOnly(r Request) bool { return IsSafeMethod(r.Method) }

// StaffOrReadOnly lets any authenticated principal read and only staff write.
func StaffOrReadOnly(r Request) bool {
	if !Authenticated(r.Principal) {
		return false
	}
	if IsSafeMethod(r.Method) {
		return true
	}
	return r.Principal.IsStaff()
}

// CreateOnlyFor grants POST to role and everything to staff.
func CreateOnlyFor(role rbac.Role) Check {
	return MethodOnlyFor(role, http.MethodPost)
}

// MethodOnlyFor grants exactly one method to role and everything to staff.
func MethodOnlyFor(role rbac.Role, method string) Check {
	return func(r Request) bool {
		if !Authenticated(r.Principal) {
			return false
		}
		if r.Principal.IsStaff() {
			return true
		}
		return r.Principal.Role == role && r.Method == method
	}
}

// All grants only if every check grants. An empty All denies.
func All(checks ...Check) Check {
	return func(r Request) bool {
		if len(checks) == 0 {
			return false
		}
		for _, c := range checks {
			if c == nil || !c(r) {
				return false
			}
		}
		return true
	}
}

// Ownership grants staff, or the principal the object resolves to.
// An object without a resolvable owner is denied.
func Ownership(r Request, obj any) bool {
	if !Authenticated(r.Principal) {
		return false
	}
	if r.Principal.IsStaff() {
		return true
	}
	return ownership.IsOwnedBy(obj, r.Principal.ID)
}

// ShipmentAccess chains staff, owning client, then any driver reaching
// the shipment through one of their routes.
func ShipmentAccess(r Request, obj any) bool {
	if !Authenticated(r.Principal) {
		return false
	}
	p := r.Principal
	switch p.Role {
	case rbac.RoleAdmin, rbac.RoleManager:
		return true
	case rbac.RoleClient:
		owner := ownership.Resolve(obj)
		return owner != nil && owner.ID == p.ID
	case rbac.RoleDriver:
		return ownership.IsReachableBy(obj, p.ID)
	default:
		return false
	}
}

// CanChangeRole reports whether p may move a user from one role to another.
// Role changes are identity mutations and therefore admin-only.
func CanChangeRole(p *auth.Principal, from, to rbac.Role) bool {
	if !Authenticated(p) || from == to {
		return false
	}
	return rbac.CanGrant(p.Role, to)
}

// CanCreateWithRole reports whether p may create a user holding role.
// Staff may create clients and drivers; managers and admins are created by admins only.
func CanCreateWithRole(p *auth.Principal, role rbac.Role) bool {
	if !Authenticated(p) || !role.Valid() {
		return false
	}
	if rbac.IsStaff(role) {
		return rbac.CanGrant(p.Role, role)
	}
	return p.IsStaff()
}
