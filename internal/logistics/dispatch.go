package logistics

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/rbac"
)

// Resource names used as audit resource types.
const (
	KindUser        = "users"
	KindShipment    = "shipments"
	KindRoute       = "routes"
	KindVehicle     = "vehicles"
	KindDriver      = "drivers"
	KindInvoice     = "invoices"
	KindComplaint   = "complaints"
	KindDestination = "destinations"
)

// Stores bundles the collections of the platform.
type Stores struct {
	Users        *Users
	Shipments    *MemoryStore[Shipment]
	Routes       *MemoryStore[Route]
	Vehicles     *MemoryStore[Vehicle]
	Drivers      *MemoryStore[Driver]
	Invoices     *MemoryStore[Invoice]
	Complaints   *MemoryStore[Complaint]
	Destinations *MemoryStore[Destination]
}

func NewStores() *Stores {
	plate := UniqueKey[Vehicle]{Name: "plate", Key: func(v Vehicle) string { return v.Plate }}
	driverUser := UniqueKey[Driver]{Name: "user_id", Key: func(d Driver) string { return d.UserID }}

	return &Stores{
		Users:        NewUsers(),
		Shipments:    NewMemoryStore[Shipment](),
		Routes:       NewMemoryStore[Route](),
		Vehicles:     NewMemoryStore(plate),
		Drivers:      NewMemoryStore(driverUser),
		Invoices:     NewMemoryStore[Invoice](),
		Complaints:   NewMemoryStore[Complaint](),
		Destinations: NewMemoryStore[Destination](),
	}
}

// Dispatch keeps shipments consistent with the routes that carry them.
// Every shipment it touches is written through the audit hooks.
type Dispatch struct {
	Stores *Stores
	Hooks  *audit.Hooks
}

// CheckRoute verifies that the route references a driver account and
// existing vehicle and shipments.
func (d *Dispatch) CheckRoute(ctx context.Context, r Route) error {
	u, err := d.Stores.Users.Get(ctx, r.DriverID)
	if err != nil || u.Role != rbac.RoleDriver {
		return fmt.Errorf("%w: driver_id %q is not a driver", ErrValidation, r.DriverID)
	}
	if _, err := d.Stores.Vehicles.Get(ctx, r.VehicleID); err != nil {
		return fmt.Errorf("%w: unknown vehicle_id %q", ErrValidation, r.VehicleID)
	}
	for _, id := range r.ShipmentIDs {
		if _, err := d.Stores.Shipments.Get(ctx, id); err != nil {
			return fmt.Errorf("%w: unknown shipment %q", ErrValidation, id)
		}
	}
	return nil
}

// AssignShipments brings the drivers of every shipment on prior or r in line
// with the routes as they stand once r is saved, so it can run ahead of the
// route write. r stands in for the stored route with its id, or is added
// when it has no id yet.
func (d *Dispatch) AssignShipments(ctx context.Context, prior *Route, r Route) error {
	routes := d.Stores.Routes.List(ctx)
	i := slices.IndexFunc(routes, func(o Route) bool { return r.ID != "" && o.ID == r.ID })
	if i >= 0 {
		routes[i] = r
	} else {
		routes = append(routes, r)
	}

	ids := r.ShipmentIDs
	if prior != nil {
		ids = append(slices.Clone(prior.ShipmentIDs), r.ShipmentIDs...)
	}
	return d.syncDrivers(ctx, routes, ids)
}

// ReleaseShipments recomputes the drivers of r's shipments without r.
func (d *Dispatch) ReleaseShipments(ctx context.Context, r Route) error {
	routes := slices.DeleteFunc(d.Stores.Routes.List(ctx), func(o Route) bool { return o.ID == r.ID })
	return d.syncDrivers(ctx, routes, r.ShipmentIDs)
}

// syncDrivers sets the drivers of each shipment in ids from routes.
// Shipments deleted in the meantime are skipped.
func (d *Dispatch) syncDrivers(ctx context.Context, routes []Route, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		drivers := driversOf(routes, id)
		err := d.updateShipment(ctx, id, func(s *Shipment) { s.DriverIDs = drivers })
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func driversOf(routes []Route, shipmentID string) []string {
	var out []string
	for _, r := range routes {
		if r.DriverID == "" || !slices.Contains(r.ShipmentIDs, shipmentID) || slices.Contains(out, r.DriverID) {
			continue
		}
		out = append(out, r.DriverID)
	}
	slices.Sort(out)
	return out
}

// Actuals are the figures reported when a route is closed. Nil fields keep
// the route's current value.
type Actuals struct {
	DistanceKm    *float64 `json:"actual_distance_km"`
	DurationHours *float64 `json:"actual_duration_hours"`
	FuelLiters    *float64 `json:"fuel_consumed_liters"`
}

func (a Actuals) Validate() error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"actual_distance_km", a.DistanceKm},
		{"actual_duration_hours", a.DurationHours},
		{"fuel_consumed_liters", a.FuelLiters},
	}
	for _, f := range fields {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, f.name)
		}
	}
	return nil
}

func (a Actuals) apply(r *Route) {
	if a.DistanceKm != nil {
		r.ActualDistanceKm = *a.DistanceKm
	}
	if a.DurationHours != nil {
		r.ActualDurationHours = *a.DurationHours
	}
	if a.FuelLiters != nil {
		r.FuelConsumedLiters = *a.FuelLiters
	}
}

// CompleteDelivery marks the route Completed with the reported actuals and
// its shipments Delivered.
func (d *Dispatch) CompleteDelivery(ctx context.Context, r Route, a Actuals) (Route, error) {
	if err := a.Validate(); err != nil {
		return Route{}, err
	}
	for _, id := range r.ShipmentIDs {
		if err := d.updateShipment(ctx, id, func(s *Shipment) { s.Status = ShipmentDelivered }); err != nil {
			return Route{}, err
		}
	}
	update := audit.WrapUpdate(d.Hooks, KindRoute, func(ctx context.Context, _, next Route) (Route, error) {
		return d.Stores.Routes.Update(ctx, next)
	})
	next := r
	next.Status = RouteCompleted
	a.apply(&next)
	return update(ctx, r, next)
}

func (d *Dispatch) updateShipment(ctx context.Context, id string, mutate func(*Shipment)) error {
	prior, err := d.Stores.Shipments.Get(ctx, id)
	if err != nil {
		return err
	}
	next := prior
	next.DriverIDs = slices.Clone(prior.DriverIDs)
	mutate(&next)
	if len(audit.Diff(audit.Snapshot(prior.AuditFields()), audit.Snapshot(next.AuditFields()))) == 0 {
		return nil
	}
	update := audit.WrapUpdate(d.Hooks, KindShipment, func(ctx context.Context, _, next Shipment) (Shipment, error) {
		return d.Stores.Shipments.Update(ctx, next)
	})
	_, err = update(ctx, prior, next)
	return err
}
