package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/config"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/policy"
	"logistics-platform/internal/rbac"
	"logistics-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testIP        = "192.0.2.1"
	testUserAgent = "fixture/1.0"
	testPassword  = "s3cret-pass"
)

type fixture struct {
	t      *testing.T
	h      *Handlers
	router *gin.Engine
	mem    *audit.MemoryRepo
	logs   *bytes.Buffer

	admin   logistics.User
	manager logistics.User
	client  logistics.User
	other   logistics.User
	driver  logistics.User
	driver2 logistics.User
	vehicle logistics.Vehicle
}

type brokenRepo struct{ *audit.MemoryRepo }

func (brokenRepo) Append(context.Context, audit.Entry) error { return errors.New("connection refused") }

func newFixture(t *testing.T, opts ...func(*Handlers)) *fixture {
	t.Helper()
	mem := audit.NewMemoryRepo()
	f := newFixtureWithRepo(t, mem, opts...)
	f.mem = mem
	return f
}

func newFixtureWithRepo(t *testing.T, repo audit.Repository, opts ...func(*Handlers)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "logistics-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	log := logger.NewWithWriter(logs, "test", "debug")
	svc := audit.NewService(repo, audit.WithLogger(log))
	hooks := audit.NewHooks(svc)
	stores := logistics.NewStores()

	h := &Handlers{
		Table:    policy.MustTable(policy.PlatformEndpoints()...),
		Tokens:   tokens,
		Revoked:  auth.NewMemoryRevocations(),
		Audit:    svc,
		Hooks:    hooks,
		Stores:   stores,
		Dispatch: &logistics.Dispatch{Stores: stores, Hooks: hooks},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := gin.New()
	r.Use(logger.Middleware(log))
	h.Routes(r)

	f := &fixture{t: t, h: h, router: r, logs: logs}
	f.admin = f.addUser("ada", rbac.RoleAdmin)
	f.manager = f.addUser("max", rbac.RoleManager)
	f.client = f.addUser("cleo", rbac.RoleClient)
	f.other = f.addUser("otto", rbac.RoleClient)
	f.driver = f.addUser("dan", rbac.RoleDriver)
	f.driver2 = f.addUser("dora", rbac.RoleDriver)

	f.vehicle, err = stores.Vehicles.Create(context.Background(), logistics.Vehicle{Plate: "KA-100", CapacityKg: 1200, Status: "Available"})
	require.NoError(t, err)
	return f
}

func (f *fixture) addUser(username string, role rbac.Role) logistics.User {
	f.t.Helper()
	u, err := f.h.Stores.Users.Create(context.Background(), logistics.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Active:   true,
	}, testPassword)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) addShipment(clientID string, status logistics.ShipmentStatus) logistics.Shipment {
	f.t.Helper()
	s, err := f.h.Stores.Shipments.Create(context.Background(), logistics.Shipment{
		ClientID: clientID,
		WeightKg: 3,
		Price:    1250,
		Status:   status,
	})
	require.NoError(f.t, err)
	return s
}

// addRoute stores a route and assigns its shipments like the API would.
func (f *fixture) addRoute(driverID string, shipmentIDs ...string) logistics.Route {
	f.t.Helper()
	ctx := context.Background()
	r, err := f.h.Stores.Routes.Create(ctx, logistics.Route{
		DriverID:    driverID,
		VehicleID:   f.vehicle.ID,
		ShipmentIDs: shipmentIDs,
		Date:        "2026-03-01",
		Status:      logistics.RoutePlanned,
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.h.Dispatch.AssignShipments(ctx, nil, r))
	return r
}

func (f *fixture) token(u logistics.User) string {
	f.t.Helper()
	pair, err := f.h.Tokens.IssuePair(time.Now(), u.Principal())
	require.NoError(f.t, err)
	return pair.AccessToken
}

func (f *fixture) do(method, path string, as *logistics.User, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	header := ""
	if as != nil {
		header = "Bearer " + f.token(*as)
	}
	return f.doWithHeader(method, path, header, body)
}

func (f *fixture) doWithHeader(method, path, authorization string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUserAgent)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// entries returns the audit entries in write order.
func (f *fixture) entries() []audit.Entry {
	f.t.Helper()
	require.NotNil(f.t, f.mem, "fixture has no memory repository")
	return f.mem.Entries()
}

// since returns the entries written after the first n.
func (f *fixture) since(n int) []audit.Entry {
	return f.entries()[n:]
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireDenied(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"detail":"Access denied."}`, w.Body.String())
}

func requireSingleDenial(t *testing.T, entries []audit.Entry, actor logistics.User) audit.Entry {
	t.Helper()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, audit.ActionPermissionDenied, e.Action)
	require.Equal(t, audit.SeverityMedium, e.Severity)
	require.False(t, e.Success)
	require.NotEmpty(t, e.ErrorMessage)
	require.Equal(t, actor.ID, e.ActorID)
	require.Equal(t, actor.Username, e.Username)
	return e
}
