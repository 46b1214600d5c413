package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"
	"logistics-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMount_HookFailureLeavesTheRecordUntouched(t *testing.T) {
	f := newFixture(t)
	ready := logistics.Vehicle{Plate: "KA-200", CapacityKg: 800, Status: "Available"}

	res := f.h.vehicles()
	res.beforeSave = func(context.Context, *logistics.Vehicle, logistics.Vehicle) error {
		return errors.New("dispatch unavailable")
	}
	res.beforeDelete = func(context.Context, logistics.Vehicle) error {
		return errors.New("dispatch unavailable")
	}
	r := gin.New()
	r.Use(logger.Middleware(logger.NewWithWriter(f.logs, "test", "debug")))
	v1 := r.Group("/v1", RequestInfo(), auth.Authenticate(f.h.Tokens, f.h.Revoked, f.h.Stores.Users), Translate(f.h.Audit, f.h.counters()))
	mount(f.h, v1, res)
	f.router = r
	before := len(f.entries())

	w := f.do(http.MethodPost, "/v1/vehicles", &f.manager, ready)
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	require.Len(t, f.h.Stores.Vehicles.List(context.Background()), 1)

	w = f.do(http.MethodPatch, "/v1/vehicles/"+f.vehicle.ID, &f.manager, map[string]any{"status": "Maintenance"})
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	stored, err := f.h.Stores.Vehicles.Get(context.Background(), f.vehicle.ID)
	require.NoError(t, err)
	require.Equal(t, "Available", stored.Status)

	w = f.do(http.MethodDelete, "/v1/vehicles/"+f.vehicle.ID, &f.manager, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	_, err = f.h.Stores.Vehicles.Get(context.Background(), f.vehicle.ID)
	require.NoError(t, err)

	require.Empty(t, f.since(before))
}
