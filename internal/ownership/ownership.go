// Package ownership resolves the controlling principal of a domain object.
//
// Resources opt in by implementing one of the capability interfaces below.
// Resolution is static: a type assertion per capability, in a fixed order.
package ownership

// Ref identifies a principal that owns or is attached to a resource.
type Ref struct {
	ID string
}

// UserOwned is implemented by resources with a direct user association.
type UserOwned interface {
	OwningUser() *Ref
}

// ClientOwned is implemented by resources with a client association.
type ClientOwned interface {
	OwningClient() *Ref
}

// OwnerOwned is implemented by resources with a generic owner association.
type OwnerOwned interface {
	Owner() *Ref
}

// RouteReachable is implemented by resources a driver reaches only
// transitively, through the routes they are assigned to. A resource carried
// by several routes is reachable by each of their drivers.
type RouteReachable interface {
	AssignedDrivers() []*Ref
}

// Resolve returns the owner of obj, checking user, then client, then owner
// associations. The first non-empty reference wins. It returns nil when no
// recognized association is present or all are empty.
func Resolve(obj any) *Ref {
	if obj == nil {
		return nil
	}
	if o, ok := obj.(UserOwned); ok {
		if ref := o.OwningUser(); valid(ref) {
			return ref
		}
	}
	if o, ok := obj.(ClientOwned); ok {
		if ref := o.OwningClient(); valid(ref) {
			return ref
		}
	}
	if o, ok := obj.(OwnerOwned); ok {
		if ref := o.Owner(); valid(ref) {
			return ref
		}
	}
	return nil
}

// Drivers returns the driver references that reach obj through a route.
func Drivers(obj any) []*Ref {
	o, ok := obj.(RouteReachable)
	if !ok {
		return nil
	}
	var out []*Ref
	for _, ref := range o.AssignedDrivers() {
		if valid(ref) {
			out = append(out, ref)
		}
	}
	return out
}

// IsReachableBy reports whether the driver id reaches obj through a route.
func IsReachableBy(obj any, driverID string) bool {
	if driverID == "" {
		return false
	}
	for _, ref := range Drivers(obj) {
		if ref.ID == driverID {
			return true
		}
	}
	return false
}

// IsOwnedBy reports whether obj resolves to the principal id. Unknown owners never match.
func IsOwnedBy(obj any, principalID string) bool {
	if principalID == "" {
		return false
	}
	ref := Resolve(obj)
	return ref != nil && ref.ID == principalID
}

func valid(ref *Ref) bool { return ref != nil && ref.ID != "" }

// RefTo is a helper for resources storing the owning id as a plain string.
func RefTo(id string) *Ref {
	if id == "" {
		return nil
	}
	return &Ref{ID: id}
}

// RefsTo is RefTo over a list of ids. Empty ids are skipped.
func RefsTo(ids []string) []*Ref {
	out := make([]*Ref, 0, len(ids))
	for _, id := range ids {
		if ref := RefTo(id); ref != nil {
			out = append(out, ref)
		}
	}
	return out
}
