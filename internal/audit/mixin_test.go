package audit

import (
	"context"
	"errors"
	"testing"

	"logistics-platform/internal/auth"
	"logistics-platform/internal/rbac"

	"github.com/stretchr/testify/require"
)

type cents int64

func (c cents) String() string { return "12.50" }

type shipmentRes struct {
	id     string
	status string
	price  cents
}

func (s shipmentRes) AuditID() string { return s.id }
func (s shipmentRes) AuditFields() map[string]any {
	return map[string]any{"id": s.id, "status": s.status, "price": s.price}
}

type userRes struct {
	id       string
	username string
	role     string
}

func (u userRes) AuditID() string { return u.id }
func (u userRes) AuditFields() map[string]any {
	return map[string]any{"id": u.id, "username": u.username, "role": u.role}
}

func managerCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{ID: "m1", Username: "mona", Role: rbac.RoleManager, Active: true})
}

func TestAfterCreate_CarriesFullRepresentation(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	hooks.AfterCreate(managerCtx(), "shipments", shipmentRes{id: "s1", status: "Pending", price: 1250})

	entries := repo.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, ActionResourceCreated, e.Action)
	require.Equal(t, SeverityLow, e.Severity)
	require.Equal(t, "s1", e.ResourceID)
	require.Equal(t, "Pending", e.Details["status"])
	require.Equal(t, "12.50", e.Details["price"])
	require.Equal(t, "m1", e.ActorID)
}

func TestUpdate_StatusChangeEmitsOneEntry(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	before := shipmentRes{id: "s1", status: "Pending", price: 1250}
	capture := hooks.BeforeUpdate("shipments", before)
	after := before
	after.status = "In Transit"
	changes := capture.After(managerCtx(), after)

	require.Equal(t, map[string]Change{"status": {Before: "Pending", After: "In Transit"}}, changes)

	entries := repo.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, ActionResourceUpdated, e.Action)
	require.Equal(t, []string{"status"}, e.Details["updated_fields"])
	require.Equal(t, map[string]any{
		"status": map[string]any{"before": "Pending", "after": "In Transit"},
	}, e.Details["changes"])
}

func TestUpdate_RoleChangeEmitsRoleChangedFirst(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))
	admin := auth.WithPrincipal(context.Background(), auth.Principal{ID: "a1", Username: "root", Role: rbac.RoleAdmin, Active: true})

	before := userRes{id: "u7", username: "carol", role: "client"}
	capture := hooks.BeforeUpdate("users", before)
	after := before
	after.role = "manager"
	capture.After(admin, after)

	entries := repo.Entries()
	require.Len(t, entries, 2)

	rc := entries[0]
	require.Equal(t, ActionRoleChanged, rc.Action)
	require.Equal(t, SeverityHigh, rc.Severity)
	require.Equal(t, "u7", rc.ResourceID)
	require.Equal(t, "client", rc.Details["old_role"])
	require.Equal(t, "manager", rc.Details["new_role"])
	require.Equal(t, "u7", rc.Details["target_id"])
	require.Equal(t, "carol", rc.Details["target_username"])
	require.Equal(t, "a1", rc.ActorID)

	up := entries[1]
	require.Equal(t, ActionResourceUpdated, up.Action)
	require.Equal(t, "u7", up.ResourceID)
	require.Equal(t, []string{"role"}, up.Details["updated_fields"])
}

func TestUpdate_NoopIsLoggedWithEmptyChanges(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	res := shipmentRes{id: "s1", status: "Pending"}
	changes := hooks.BeforeUpdate("shipments", res).After(managerCtx(), res)

	require.Empty(t, changes)
	entries := repo.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, []string{}, entries[0].Details["updated_fields"])
	require.Equal(t, map[string]any{}, entries[0].Details["changes"])
}

type vehicleRes struct {
	id, plate string
}

func (v vehicleRes) AuditID() string { return v.id }
func (v vehicleRes) AuditFields() map[string]any {
	return map[string]any{"id": v.id, "plate": v.plate, "capacity": 1200}
}

func TestWrapDelete_AuditsOnlyAfterSuccess(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	var entriesAtDelete int
	del := WrapDelete(hooks, "vehicles", func(ctx context.Context, v vehicleRes) error {
		entriesAtDelete = len(repo.Entries())
		return nil
	})
	require.NoError(t, del(managerCtx(), vehicleRes{id: "v1", plate: "KA-01-1234"}))

	require.Zero(t, entriesAtDelete, "entry written before the delete ran")
	entries := repo.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, ActionResourceDeleted, entries[0].Action)
	require.Equal(t, SeverityMedium, entries[0].Severity)
	require.Equal(t, map[string]any{"plate": "KA-01-1234"}, entries[0].Details)
}

func TestWrapDelete_FailureWritesNothing(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))
	boom := errors.New("fk violation")

	del := WrapDelete(hooks, "vehicles", func(context.Context, vehicleRes) error { return boom })
	err := del(managerCtx(), vehicleRes{id: "v1"})

	require.ErrorIs(t, err, boom)
	require.Empty(t, repo.Entries())
}

func TestWrapUpdate_DiffsAgainstPrior(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	update := WrapUpdate(hooks, "shipments", func(_ context.Context, _, next shipmentRes) (shipmentRes, error) {
		return next, nil
	})
	out, err := update(managerCtx(), shipmentRes{id: "s1", status: "Pending"}, shipmentRes{id: "s1", status: "Delivered"})
	require.NoError(t, err)
	require.Equal(t, "Delivered", out.status)

	entries := repo.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, []string{"status"}, entries[0].Details["updated_fields"])
}

func TestWrapCreate_FailureWritesNothing(t *testing.T) {
	repo := NewMemoryRepo()
	hooks := NewHooks(NewService(repo))

	create := WrapCreate(hooks, "shipments", func(context.Context, shipmentRes) (shipmentRes, error) {
		return shipmentRes{}, errors.New("validation")
	})
	_, err := create(managerCtx(), shipmentRes{})
	require.Error(t, err)
	require.Empty(t, repo.Entries())
}

func TestWriteFailureDoesNotAffectCaller(t *testing.T) {
	hooks := NewHooks(NewService(&failingRepo{}))
	del := WrapDelete(hooks, "vehicles", func(context.Context, vehicleRes) error { return nil })
	require.NoError(t, del(managerCtx(), vehicleRes{id: "v1"}))
}
