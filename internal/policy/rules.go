package policy

import (
	"net/http"

	"logistics-platform/internal/rbac"
)

// Resource names as they appear in routes and audit entries.
const (
	ResourceAuth         = "auth"
	ResourceUsers        = "users"
	ResourceShipments    = "shipments"
	ResourceRoutes       = "routes"
	ResourceVehicles     = "vehicles"
	ResourceDrivers      = "drivers"
	ResourceInvoices     = "invoices"
	ResourceComplaints   = "complaints"
	ResourceDestinations = "destinations"
	ResourceAuditLogs    = "audit-logs"
)

// Non-CRUD actions.
const (
	ActionLogin            Action = "login"
	ActionExternalLogin    Action = "external_login"
	ActionRegister         Action = "register"
	ActionRefresh          Action = "refresh"
	ActionLogout           Action = "logout"
	ActionMe               Action = "me"
	ActionCompleteDelivery Action = "complete_delivery"
)

// AllowAny grants everyone, including anonymous callers. It exists so public
// endpoints are still listed explicitly in the table.
func AllowAny(Request) bool { return true }

func uniform(actions []Action, rule Rule) map[Action]Rule {
	out := make(map[Action]Rule, len(actions))
	for _, a := range actions {
		out[a] = rule
	}
	return out
}

// PlatformEndpoints is the permission configuration of the logistics API.
func PlatformEndpoints() []Endpoint {
	staffOrClient := AnyRole(rbac.RoleAdmin, rbac.RoleManager, rbac.RoleClient)
	staffOrDriver := AnyRole(rbac.RoleAdmin, rbac.RoleManager, rbac.RoleDriver)
	anyRole := AnyRole(rbac.All...)

	return []Endpoint{
		{
			Resource: ResourceAuth,
			Actions:  []Action{ActionLogin, ActionExternalLogin, ActionRegister, ActionRefresh, ActionLogout},
			Rules: map[Action]Rule{
				ActionLogin:         {Request: AllowAny},
				ActionExternalLogin: {Request: AllowAny},
				ActionRegister:      {Request: AllowAny},
				ActionRefresh:       {Request: AllowAny},
				ActionLogout:        {Request: IsAuthenticated},
			},
		},
		{
			Resource: ResourceUsers,
			Actions:  append([]Action{ActionMe}, CRUD...),
			Rules: map[Action]Rule{
				ActionMe:            {Request: IsAuthenticated, Object: Ownership},
				ActionList:          {Request: StaffOnly, Object: Ownership},
				ActionRetrieve:      {Request: StaffOnly, Object: Ownership},
				ActionCreate:        {Request: StaffOnly},
				ActionUpdate:        {Request: StaffOnly, Object: Ownership},
				ActionPartialUpdate: {Request: StaffOnly, Object: Ownership},
				ActionDestroy:       {Request: AdminOnly},
			},
		},
		{
			Resource: ResourceShipments,
			Actions:  CRUD,
			Rules: map[Action]Rule{
				ActionList:          {Request: anyRole, Object: ShipmentAccess},
				ActionRetrieve:      {Request: anyRole, Object: ShipmentAccess},
				ActionCreate:        {Request: CreateOnlyFor(rbac.RoleClient)},
				ActionUpdate:        {Request: StaffOnly, Object: ShipmentAccess},
				ActionPartialUpdate: {Request: StaffOnly, Object: ShipmentAccess},
				ActionDestroy:       {Request: StaffOnly, Object: ShipmentAccess},
			},
		},
		{
			Resource: ResourceRoutes,
			Actions:  append([]Action{ActionCompleteDelivery}, CRUD...),
			Rules: map[Action]Rule{
				ActionList:             {Request: staffOrDriver, Object: Ownership},
				ActionRetrieve:         {Request: staffOrDriver, Object: Ownership},
				ActionCreate:           {Request: StaffOnly},
				ActionUpdate:           {Request: MethodOnlyFor(rbac.RoleDriver, http.MethodPatch), Object: Ownership},
				ActionPartialUpdate:    {Request: MethodOnlyFor(rbac.RoleDriver, http.MethodPatch), Object: Ownership},
				ActionDestroy:          {Request: StaffOnly},
				ActionCompleteDelivery: {Request: staffOrDriver, Object: Ownership},
			},
		},
		{
			Resource: ResourceVehicles,
			Actions:  CRUD,
			Rules:    uniform(CRUD, Rule{Request: StaffOnly}),
		},
		{
			Resource: ResourceDrivers,
			Actions:  CRUD,
			Rules:    uniform(CRUD, Rule{Request: StaffOnly}),
		},
		{
			Resource: ResourceInvoices,
			Actions:  CRUD,
			Rules: map[Action]Rule{
				ActionList:          {Request: staffOrClient, Object: Ownership},
				ActionRetrieve:      {Request: staffOrClient, Object: Ownership},
				ActionCreate:        {Request: StaffOnly},
				ActionUpdate:        {Request: StaffOnly},
				ActionPartialUpdate: {Request: StaffOnly},
				ActionDestroy:       {Request: StaffOnly},
			},
		},
		{
			Resource: ResourceComplaints,
			Actions:  CRUD,
			Rules: map[Action]Rule{
				ActionList:          {Request: staffOrClient, Object: Ownership},
				ActionRetrieve:      {Request: staffOrClient, Object: Ownership},
				ActionCreate:        {Request: IsAuthenticated},
				ActionUpdate:        {Request: StaffOnly},
				ActionPartialUpdate: {Request: StaffOnly},
				ActionDestroy:       {Request: StaffOnly},
			},
		},
		{
			Resource: ResourceDestinations,
			Actions:  CRUD,
			Rules:    uniform(CRUD, Rule{Request: StaffOrReadOnly}),
		},
		{
			Resource: ResourceAuditLogs,
			Actions:  []Action{ActionList, ActionRetrieve, ActionCreate},
			Rules: map[Action]Rule{
				ActionList:     {Request: AdminOnly},
				ActionRetrieve: {Request: AdminOnly},
				ActionCreate:   {Request: IsAuthenticated},
			},
		},
	}
}
