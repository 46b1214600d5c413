package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"logistics-platform/pkg/utils"
)

// Schema is the DDL for the audit table. The application role should only
// hold INSERT and SELECT on it.
//
// actor_user_id carries no foreign key: once the account is deleted the id
// no longer resolves, and username keeps the snapshot.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id            UUID PRIMARY KEY,
	actor_user_id TEXT NULL,
	username      VARCHAR(255) NOT NULL DEFAULT '',
	action        VARCHAR(50)  NOT NULL,
	resource_type VARCHAR(100) NOT NULL DEFAULT '',
	resource_id   VARCHAR(100) NOT NULL DEFAULT '',
	severity      VARCHAR(20)  NOT NULL DEFAULT 'low',
	ip_address    INET NULL,
	user_agent    TEXT NOT NULL DEFAULT '',
	endpoint      VARCHAR(255) NOT NULL DEFAULT '',
	http_method   VARCHAR(10)  NOT NULL DEFAULT '',
	timestamp     TIMESTAMPTZ  NOT NULL DEFAULT now(),
	details       JSONB NOT NULL DEFAULT '{}'::jsonb,
	success       BOOLEAN NOT NULL DEFAULT TRUE,
	error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_logs_ts_actor_idx ON audit_logs (timestamp DESC, actor_user_id);
CREATE INDEX IF NOT EXISTS audit_logs_action_ts_idx ON audit_logs (action, timestamp DESC);
CREATE INDEX IF NOT EXISTS audit_logs_severity_ts_idx ON audit_logs (severity, timestamp DESC);
`

// PGRepo implements Repository on PostgreSQL through database/sql (pgx stdlib driver).
type PGRepo struct {
	db *sql.DB
}

var _ Repository = (*PGRepo)(nil)

func NewPGRepo(db *sql.DB) *PGRepo { return &PGRepo{db: db} }

// EnsureSchema creates the audit table and indexes if they are missing.
func (r *PGRepo) EnsureSchema(ctx context.Context) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("audit schema: %w", err)
		}
		return nil
	})
}

const insertEntrySQL = `
INSERT INTO audit_logs (
	id, actor_user_id, username, action, resource_type, resource_id, severity,
	ip_address, user_agent, endpoint, http_method, timestamp, details, success, error_message
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

func (r *PGRepo) Append(ctx context.Context, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertEntrySQL,
		e.ID,
		nullString(e.ActorID),
		e.Username,
		string(e.Action),
		e.ResourceType,
		e.ResourceID,
		string(e.Severity),
		nullString(e.IPAddress),
		e.UserAgent,
		e.Endpoint,
		e.HTTPMethod,
		e.Timestamp,
		details,
		e.Success,
		e.ErrorMessage,
	)
	return err
}

const selectEntryColumns = `
SELECT id, actor_user_id, username, action, resource_type, resource_id, severity,
	ip_address::text, user_agent, endpoint, http_method, timestamp, details, success, error_message
FROM audit_logs
`

func (r *PGRepo) Get(ctx context.Context, id string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntryColumns+`WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

var orderClauses = map[string]string{
	OrderTimestampDesc: `timestamp DESC`,
	OrderTimestampAsc:  `timestamp ASC`,
	OrderSeverityDesc:  severityRankSQL + ` DESC, timestamp DESC`,
	OrderSeverityAsc:   severityRankSQL + ` ASC, timestamp ASC`,
	OrderActionDesc:    `action DESC, timestamp DESC`,
	OrderActionAsc:     `action ASC, timestamp ASC`,
}

const severityRankSQL = `CASE severity WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END`

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Entry, error) {
	f = f.normalized()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Severity != "" {
		where = append(where, "severity = "+arg(string(f.Severity)))
	}
	if f.Action != "" {
		where = append(where, "action = "+arg(string(f.Action)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf(
			"(username ILIKE %[1]s OR action ILIKE %[1]s OR resource_type ILIKE %[1]s OR COALESCE(ip_address::text, '') ILIKE %[1]s)", p))
	}

	order, ok := orderClauses[f.Ordering]
	if !ok {
		return nil, fmt.Errorf("%w: ordering %q", ErrInvalidFilter, f.Ordering)
	}

	var b strings.Builder
	b.WriteString(selectEntryColumns)
	if len(where) > 0 {
		b.WriteString("WHERE ")
		b.WriteString(strings.Join(where, " AND "))
		b.WriteString("\n")
	}
	b.WriteString("ORDER BY ")
	b.WriteString(order)
	b.WriteString("\nLIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		actor    sql.NullString
		ip       sql.NullString
		action   string
		severity string
		details  []byte
	)
	if err := s.Scan(
		&e.ID,
		&actor,
		&e.Username,
		&action,
		&e.ResourceType,
		&e.ResourceID,
		&severity,
		&ip,
		&e.UserAgent,
		&e.Endpoint,
		&e.HTTPMethod,
		&e.Timestamp,
		&details,
		&e.Success,
		&e.ErrorMessage,
	); err != nil {
		return Entry{}, err
	}
	e.ActorID = actor.String
	e.IPAddress = ip.String
	e.Action = Action(action)
	e.Severity = Severity(severity)
	e.Details = map[string]any{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return Entry{}, fmt.Errorf("decode details: %w", err)
		}
	}
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
