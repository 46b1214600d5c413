package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/policy"
	"logistics-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// record is a stored entity that validates itself.
type record[T any] interface {
	logistics.Entity[T]
	Validate() error
}

// resource describes one CRUD collection. The hooks are optional.
type resource[T record[T]] struct {
	name  string
	store *logistics.MemoryStore[T]

	// onCreate adjusts a decoded record before validation.
	onCreate func(ctx context.Context, p *auth.Principal, v *T) error
	// onUpdate adjusts the replacement of prior before validation.
	onUpdate func(ctx context.Context, p *auth.Principal, prior T, next *T) error
	// beforeSave runs after validation, right before the record is
	// persisted; prior is nil on create.
	beforeSave   func(ctx context.Context, prior *T, next T) error
	beforeDelete func(ctx context.Context, v T) error
}

type endpoint[T record[T]] struct {
	h   *Handlers
	res resource[T]
}

// mount registers list, create, retrieve, update, partial_update and destroy
// for res under /<name>.
func mount[T record[T]](h *Handlers, r gin.IRouter, res resource[T]) *gin.RouterGroup {
	e := &endpoint[T]{h: h, res: res}
	g := r.Group("/" + res.name)
	g.GET("", h.authorize(res.name, policy.ActionList), e.list)
	g.POST("", h.authorize(res.name, policy.ActionCreate), e.create)
	g.GET("/:id", h.authorize(res.name, policy.ActionRetrieve), e.retrieve)
	g.PUT("/:id", h.authorize(res.name, policy.ActionUpdate), e.update)
	g.PATCH("/:id", h.authorize(res.name, policy.ActionPartialUpdate), e.update)
	g.DELETE("/:id", h.authorize(res.name, policy.ActionDestroy), e.destroy)
	return g
}

// list returns only the records the caller passes the object check for.
func (e *endpoint[T]) list(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.PrincipalFrom(ctx)
	out := make([]T, 0)
	for _, v := range e.res.store.List(ctx) {
		if e.h.Table.AllowObject(e.res.name, p, c.Request.Method, policy.ActionList, v) {
			out = append(out, v)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (e *endpoint[T]) retrieve(c *gin.Context) {
	v, ok := e.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

func (e *endpoint[T]) create(c *gin.Context) {
	ctx := c.Request.Context()
	var v T
	if err := bind(c, &v); err != nil {
		fail(c, err)
		return
	}
	if e.res.onCreate != nil {
		if err := e.res.onCreate(ctx, auth.PrincipalFrom(ctx), &v); err != nil {
			fail(c, err)
			return
		}
	}
	if err := v.Validate(); err != nil {
		fail(c, err)
		return
	}
	if e.res.beforeSave != nil {
		if err := e.res.beforeSave(ctx, nil, v); err != nil {
			fail(c, err)
			return
		}
	}

	create := audit.WrapCreate[T](e.h.Hooks, e.res.name, e.res.store.Create)
	saved, err := create(ctx, v)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// update serves PUT (full replacement) and PATCH (fields in the body are
// applied onto the stored record).
func (e *endpoint[T]) update(c *gin.Context) {
	ctx := c.Request.Context()
	prior, ok := e.load(c)
	if !ok {
		return
	}

	var next T
	if c.Request.Method == http.MethodPatch {
		cp, err := clone(prior)
		if err != nil {
			fail(c, err)
			return
		}
		next = cp
	}
	if err := bind(c, &next); err != nil {
		fail(c, err)
		return
	}
	next = next.WithID(prior.AuditID())
	if e.res.onUpdate != nil {
		if err := e.res.onUpdate(ctx, auth.PrincipalFrom(ctx), prior, &next); err != nil {
			fail(c, err)
			return
		}
	}
	if err := next.Validate(); err != nil {
		fail(c, err)
		return
	}
	if e.res.beforeSave != nil {
		if err := e.res.beforeSave(ctx, &prior, next); err != nil {
			fail(c, err)
			return
		}
	}

	update := audit.WrapUpdate[T](e.h.Hooks, e.res.name, func(ctx context.Context, _, next T) (T, error) {
		return e.res.store.Update(ctx, next)
	})
	saved, err := update(ctx, prior, next)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (e *endpoint[T]) destroy(c *gin.Context) {
	ctx := c.Request.Context()
	v, ok := e.load(c)
	if !ok {
		return
	}
	if e.res.beforeDelete != nil {
		if err := e.res.beforeDelete(ctx, v); err != nil {
			fail(c, err)
			return
		}
	}
	del := audit.WrapDelete[T](e.h.Hooks, e.res.name, func(ctx context.Context, v T) error {
		return e.res.store.Delete(ctx, v.AuditID())
	})
	if err := del(ctx, v); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// load fetches the record named by :id and runs the object-level check.
func (e *endpoint[T]) load(c *gin.Context) (T, bool) {
	v, err := e.res.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		missing(c, err)
		return v, false
	}
	if !e.h.allowObject(c, v) {
		return v, false
	}
	return v, true
}

// clone deep-copies v through its JSON form so a partial update never
// writes through pointers shared with the stored record.
func clone[T any](v T) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

func (h *Handlers) shipments() resource[logistics.Shipment] {
	res := resource[logistics.Shipment]{name: policy.ResourceShipments, store: h.Stores.Shipments}
	res.onCreate = func(_ context.Context, p *auth.Principal, s *logistics.Shipment) error {
		if p.Role == rbac.RoleClient {
			s.ClientID = p.ID
			s.Status = logistics.ShipmentPending
		}
		if s.Status == "" {
			s.Status = logistics.ShipmentPending
		}
		// assignment is owned by dispatch
		s.DriverIDs = nil
		s.CreatedAt = h.now().UTC()
		return nil
	}
	res.onUpdate = func(_ context.Context, _ *auth.Principal, prior logistics.Shipment, next *logistics.Shipment) error {
		next.DriverIDs = prior.DriverIDs
		next.CreatedAt = prior.CreatedAt
		return nil
	}
	return res
}

// routeStatusField is the only route attribute a driver may change.
const routeStatusField = "status"

func (h *Handlers) routes() resource[logistics.Route] {
	res := resource[logistics.Route]{name: policy.ResourceRoutes, store: h.Stores.Routes}
	res.onCreate = func(ctx context.Context, _ *auth.Principal, r *logistics.Route) error {
		if r.Status == "" {
			r.Status = logistics.RoutePlanned
		}
		return h.Dispatch.CheckRoute(ctx, *r)
	}
	res.onUpdate = func(ctx context.Context, p *auth.Principal, prior logistics.Route, next *logistics.Route) error {
		if p.Role == rbac.RoleDriver {
			changes := audit.Diff(audit.Snapshot(prior.AuditFields()), audit.Snapshot(next.AuditFields()))
			for _, field := range audit.ChangedFields(changes) {
				if field != routeStatusField {
					return fmt.Errorf("%w: drivers may not change route %s", auth.ErrForbidden, field)
				}
			}
		}
		return h.Dispatch.CheckRoute(ctx, *next)
	}
	// shipments are reconciled ahead of the route write
	res.beforeSave = h.Dispatch.AssignShipments
	res.beforeDelete = h.Dispatch.ReleaseShipments
	return res
}

func (h *Handlers) vehicles() resource[logistics.Vehicle] {
	res := resource[logistics.Vehicle]{name: policy.ResourceVehicles, store: h.Stores.Vehicles}
	res.onCreate = func(_ context.Context, _ *auth.Principal, v *logistics.Vehicle) error {
		if v.Status == "" {
			v.Status = "Available"
		}
		return nil
	}
	return res
}

func (h *Handlers) drivers() resource[logistics.Driver] {
	res := resource[logistics.Driver]{name: policy.ResourceDrivers, store: h.Stores.Drivers}
	res.onCreate = func(ctx context.Context, _ *auth.Principal, d *logistics.Driver) error {
		u, err := h.Stores.Users.Get(ctx, d.UserID)
		if err != nil || u.Role != rbac.RoleDriver {
			return fmt.Errorf("%w: user_id %q is not a driver account", logistics.ErrValidation, d.UserID)
		}
		if d.Name == "" {
			d.Name = u.Name
		}
		if d.Status == "" {
			d.Status = "Available"
		}
		return nil
	}
	return res
}

func (h *Handlers) invoices() resource[logistics.Invoice] {
	res := resource[logistics.Invoice]{name: policy.ResourceInvoices, store: h.Stores.Invoices}
	res.onCreate = func(_ context.Context, _ *auth.Principal, i *logistics.Invoice) error {
		if i.Status == "" {
			i.Status = "Unpaid"
		}
		if i.Date == "" {
			i.Date = h.now().UTC().Format(time.DateOnly)
		}
		return nil
	}
	return res
}

func (h *Handlers) complaints() resource[logistics.Complaint] {
	res := resource[logistics.Complaint]{name: policy.ResourceComplaints, store: h.Stores.Complaints}
	res.onCreate = func(_ context.Context, p *auth.Principal, cp *logistics.Complaint) error {
		if !p.IsStaff() {
			cp.ClientID = p.ID
		}
		if cp.Status == "" {
			cp.Status = "Open"
		}
		if cp.Priority == "" {
			cp.Priority = "Medium"
		}
		now := h.now().UTC()
		if cp.Date == "" {
			cp.Date = now.Format(time.DateOnly)
		}
		cp.CreatedAt = now
		return nil
	}
	res.onUpdate = func(_ context.Context, _ *auth.Principal, prior logistics.Complaint, next *logistics.Complaint) error {
		next.CreatedAt = prior.CreatedAt
		return nil
	}
	return res
}

func (h *Handlers) destinations() resource[logistics.Destination] {
	res := resource[logistics.Destination]{name: policy.ResourceDestinations, store: h.Stores.Destinations}
	res.onCreate = func(_ context.Context, _ *auth.Principal, d *logistics.Destination) error {
		if d.DestinationType == "" {
			d.DestinationType = "Domestic"
		}
		return nil
	}
	return res
}
