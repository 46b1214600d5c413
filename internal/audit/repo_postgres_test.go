package audit

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var entryColumns = []string{
	"id", "actor_user_id", "username", "action", "resource_type", "resource_id", "severity",
	"ip_address", "user_agent", "endpoint", "http_method", "timestamp", "details", "success", "error_message",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGRepo(db), mock
}

func TestPGRepo_AppendWritesNullsForMissingActorAndIP(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("e1", nil, "Anonymous", "permission_denied", "shipments", "", "medium",
			nil, "", "/v1/shipments/1", "PUT", ts, sqlmock.AnyArg(), false, "auth: permission denied").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), Entry{
		ID:           "e1",
		Username:     "Anonymous",
		Action:       ActionPermissionDenied,
		ResourceType: "shipments",
		Severity:     SeverityMedium,
		Endpoint:     "/v1/shipments/1",
		HTTPMethod:   "PUT",
		Timestamp:    ts,
		Details:      map[string]any{},
		Success:      false,
		ErrorMessage: "auth: permission denied",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepo_ListBuildsFilteredQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM audit_logs\s+WHERE severity = \$1 AND action = \$2 AND \(username ILIKE \$3 .*\)\s+ORDER BY timestamp DESC\s+LIMIT \$4 OFFSET \$5`).
		WithArgs("medium", "permission_denied", `%50\%\_%`, 50, 0).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("e1", nil, "Anonymous", "permission_denied", "shipments", "", "medium",
				"10.0.0.1", "curl", "/v1/shipments", "GET", ts, []byte(`{"k":"v"}`), false, "denied"))

	got, err := repo.List(context.Background(), Filter{
		Severity: SeverityMedium,
		Action:   ActionPermissionDenied,
		Search:   "50%_",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.ActorID != "" || e.IPAddress != "10.0.0.1" || e.Details["k"] != "v" || e.Success {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepo_ListSeverityOrdering(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ORDER BY CASE severity .* END DESC, timestamp DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(entryColumns))

	got, err := repo.List(context.Background(), Filter{Ordering: OrderSeverityDesc, Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepo_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepo_AppendFailureIsSwallowedByLog(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnError(errors.New("connection reset"))

	svc := NewService(repo)
	if _, ok := svc.Log(context.Background(), Entry{Action: ActionLogout}); ok {
		t.Fatalf("expected failed write")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepo_EnsureSchemaRunsInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS audit_logs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
