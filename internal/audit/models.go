package audit

import "time"

// Entry is an immutable, append-only audit log record.
//
// Invariants:
// - Entries are never updated or deleted by the application.
// - Username is a snapshot taken at write time; it survives deletion of the actor.
// - ActorID, IPAddress and UserAgent are always taken from the authenticated
//   request context, never from caller input.
//
// Storage (Postgres): table audit_logs with an INSERT-only grant, see Schema.
type Entry struct {
	ID string `json:"id" db:"id"`

	// ActorID is empty when the actor was anonymous. It is kept after the
	// account is deleted and simply stops resolving; Username remains.
	ActorID  string `json:"actor_id,omitempty" db:"actor_user_id"`
	Username string `json:"username" db:"username"`

	Action       Action   `json:"action" db:"action"`
	ResourceType string   `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   string   `json:"resource_id,omitempty" db:"resource_id"`
	Severity     Severity `json:"severity" db:"severity"`

	IPAddress  string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string `json:"user_agent,omitempty" db:"user_agent"`
	Endpoint   string `json:"endpoint,omitempty" db:"endpoint"`
	HTTPMethod string `json:"http_method,omitempty" db:"http_method"`

	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	Details   map[string]any `json:"details" db:"details"`

	Success      bool   `json:"success" db:"success"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
}

// AnonymousUsername is the snapshot stored for entries without an actor.
const AnonymousUsername = "Anonymous"

type Action string

const (
	ActionPermissionDenied Action = "permission_denied"
	ActionRoleChanged      Action = "role_changed"
	ActionManagerCreated   Action = "manager_created"
	ActionLoginSuccess     Action = "login_success"
	ActionLoginFailed      Action = "login_failed"
	ActionLogout           Action = "logout"
	ActionResourceCreated  Action = "resource_created"
	ActionResourceUpdated  Action = "resource_updated"
	ActionResourceDeleted  Action = "resource_deleted"
	ActionPasswordChanged  Action = "password_changed"
	Action2FAEnabled       Action = "2fa_enabled"
	Action2FADisabled      Action = "2fa_disabled"
)

func (a Action) Valid() bool {
	switch a {
	case ActionPermissionDenied, ActionRoleChanged, ActionManagerCreated,
		ActionLoginSuccess, ActionLoginFailed, ActionLogout,
		ActionResourceCreated, ActionResourceUpdated, ActionResourceDeleted,
		ActionPasswordChanged, Action2FAEnabled, Action2FADisabled:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool { return s.rank() > 0 }

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Filter selects entries for the admin query surface.
type Filter struct {
	Severity Severity
	Action   Action
	// Search matches case-insensitively against username, action, resource type and IP.
	Search string
	// Ordering is one of the Order* values; empty means newest first.
	Ordering string
	Limit    int
	Offset   int
}

// Orderings accepted by Filter.Ordering. A leading '-' means descending.
const (
	OrderTimestampDesc = "-timestamp"
	OrderTimestampAsc  = "timestamp"
	OrderSeverityDesc  = "-severity"
	OrderSeverityAsc   = "severity"
	OrderActionDesc    = "-action"
	OrderActionAsc     = "action"
)

func validOrdering(o string) bool {
	switch o {
	case "", OrderTimestampDesc, OrderTimestampAsc, OrderSeverityDesc, OrderSeverityAsc, OrderActionDesc, OrderActionAsc:
		return true
	default:
		return false
	}
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f Filter) normalized() Filter {
	if f.Ordering == "" {
		f.Ordering = OrderTimestampDesc
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
