package audit

import (
	"context"
	"fmt"
)

// RoleField is the attribute whose change triggers a dedicated role_changed entry.
const RoleField = "role"

// identifyingFields are kept on delete entries so the record stays readable.
var identifyingFields = []string{"name", "username", "plate"}

// Hooks captures create/update/delete lifecycles of audited resources.
// A resource handler calls AfterCreate once the instance is persisted,
// brackets updates with BeforeUpdate + UpdateCapture.After, and calls
// BeforeDelete before the delete, then DeleteCapture.After once it succeeded.
type Hooks struct {
	svc *Service
}

func NewHooks(svc *Service) *Hooks { return &Hooks{svc: svc} }

// AfterCreate emits resource_created with the full representation.
func (h *Hooks) AfterCreate(ctx context.Context, resourceType string, res Resource) {
	h.svc.Log(ctx, Entry{
		Action:       ActionResourceCreated,
		ResourceType: resourceType,
		ResourceID:   res.AuditID(),
		Severity:     SeverityLow,
		Success:      true,
		Details:      Snapshot(res.AuditFields()),
	})
}

// UpdateCapture holds the prior snapshot of a resource being updated.
type UpdateCapture struct {
	hooks        *Hooks
	resourceType string
	resourceID   string
	before       map[string]any
}

// BeforeUpdate snapshots res. Call it before the mutation is applied.
func (h *Hooks) BeforeUpdate(resourceType string, res Resource) *UpdateCapture {
	return &UpdateCapture{
		hooks:        h,
		resourceType: resourceType,
		resourceID:   res.AuditID(),
		before:       Snapshot(res.AuditFields()),
	}
}

// After diffs the persisted state against the capture and emits the entries.
// A role change emits role_changed (high) first, then resource_updated.
// Updates without changes are still logged, with an empty change set.
func (c *UpdateCapture) After(ctx context.Context, res Resource) map[string]Change {
	after := Snapshot(res.AuditFields())
	changes := Diff(c.before, after)
	id := res.AuditID()
	if id == "" {
		id = c.resourceID
	}

	if rc, ok := changes[RoleField]; ok {
		details := map[string]any{
			"old_role":  rc.Before,
			"new_role":  rc.After,
			"target_id": id,
		}
		if name, ok := after["username"]; ok {
			details["target_username"] = name
		}
		c.hooks.svc.Log(ctx, Entry{
			Action:       ActionRoleChanged,
			ResourceType: c.resourceType,
			ResourceID:   id,
			Severity:     SeverityHigh,
			Success:      true,
			Details:      details,
		})
	}

	c.hooks.svc.Log(ctx, Entry{
		Action:       ActionResourceUpdated,
		ResourceType: c.resourceType,
		ResourceID:   id,
		Severity:     SeverityLow,
		Success:      true,
		Details: map[string]any{
			"updated_fields": ChangedFields(changes),
			"changes":        changesDetail(changes),
		},
	})
	return changes
}

// DeleteCapture holds what survives of a resource after it is deleted.
type DeleteCapture struct {
	hooks        *Hooks
	resourceType string
	resourceID   string
	identity     map[string]any
}

// BeforeDelete captures identifying fields (name, username, plate) if present.
func (h *Hooks) BeforeDelete(resourceType string, res Resource) *DeleteCapture {
	fields := res.AuditFields()
	identity := make(map[string]any)
	for _, f := range identifyingFields {
		if v, ok := fields[f]; ok {
			identity[f] = normalize(v)
		}
	}
	return &DeleteCapture{hooks: h, resourceType: resourceType, resourceID: res.AuditID(), identity: identity}
}

// After emits resource_deleted (medium). Call it only once the delete succeeded.
func (c *DeleteCapture) After(ctx context.Context) {
	c.hooks.svc.Log(ctx, Entry{
		Action:       ActionResourceDeleted,
		ResourceType: c.resourceType,
		ResourceID:   c.resourceID,
		Severity:     SeverityMedium,
		Success:      true,
		Details:      c.identity,
	})
}

// Operation signatures wrapped by the decorators below.
type (
	CreateFunc[T Resource] func(ctx context.Context, in T) (T, error)
	UpdateFunc[T Resource] func(ctx context.Context, prior, next T) (T, error)
	DeleteFunc[T Resource] func(ctx context.Context, res T) error
)

// WrapCreate returns op with a resource_created entry after each success.
func WrapCreate[T Resource](h *Hooks, resourceType string, op CreateFunc[T]) CreateFunc[T] {
	return func(ctx context.Context, in T) (T, error) {
		out, err := op(ctx, in)
		if err != nil {
			return out, err
		}
		h.AfterCreate(ctx, resourceType, out)
		return out, nil
	}
}

// WrapUpdate returns op bracketed by an update capture taken from prior.
func WrapUpdate[T Resource](h *Hooks, resourceType string, op UpdateFunc[T]) UpdateFunc[T] {
	return func(ctx context.Context, prior, next T) (T, error) {
		capture := h.BeforeUpdate(resourceType, prior)
		out, err := op(ctx, prior, next)
		if err != nil {
			return out, err
		}
		capture.After(ctx, out)
		return out, nil
	}
}

// WrapDelete returns op with a resource_deleted entry written after the delete.
func WrapDelete[T Resource](h *Hooks, resourceType string, op DeleteFunc[T]) DeleteFunc[T] {
	return func(ctx context.Context, res T) error {
		capture := h.BeforeDelete(resourceType, res)
		if err := op(ctx, res); err != nil {
			return fmt.Errorf("delete %s %s: %w", resourceType, capture.resourceID, err)
		}
		capture.After(ctx)
		return nil
	}
}
