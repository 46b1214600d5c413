package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"logistics-platform/internal/auth"
	"logistics-platform/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only.
// There are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// Observer is notified of every write attempt. Used for metrics.
type Observer interface {
	EntryRecorded(e Entry)
	EntryFailed(e Entry, err error)
}

var (
	ErrInvalidEntry  = errors.New("audit: invalid entry")
	ErrInvalidFilter = errors.New("audit: invalid filter")
	ErrNotFound      = errors.New("audit: entry not found")
	errNoRepository  = errors.New("audit: repository not configured")
)

// Service is the single entry point for writing and reading audit entries.
//
// IMPORTANT:
//   - Callers on a business path use Log, which is best-effort: failures go to
//     the operational log and never reach the caller.
//   - Record returns errors and is meant for callers whose primary operation
//     IS the audit write (event ingestion).
type Service struct {
	repo     Repository
	clock    func() time.Time
	log      *slog.Logger
	observer Observer
}

type Option func(*Service)

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record stamps and appends one entry.
//
// Server-assigned fields are always overwritten: the actor and username
// snapshot come from the request principal (Anonymous if none), IP and user
// agent from the request info. Endpoint and method are filled from the request
// when the caller left them empty.
func (s *Service) Record(ctx context.Context, e Entry) (Entry, error) {
	if s == nil || s.repo == nil {
		return Entry{}, errNoRepository
	}
	if !e.Action.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, e.Action)
	}
	if e.Severity == "" {
		e.Severity = SeverityLow
	}
	if !e.Severity.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidEntry, e.Severity)
	}

	if p := auth.PrincipalFrom(ctx); p != nil {
		e.ActorID = p.ID
		e.Username = p.Username
		if e.Username == "" {
			e.Username = p.ID
		}
	} else {
		e.ActorID = ""
		e.Username = AnonymousUsername
	}

	info, _ := RequestInfoFrom(ctx)
	e.IPAddress = info.IP
	e.UserAgent = info.UserAgent
	if e.Endpoint == "" {
		e.Endpoint = info.Endpoint
	}
	if e.HTTPMethod == "" {
		e.HTTPMethod = info.Method
	}

	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	e.Details = cloneDetails(e.Details)

	if err := s.repo.Append(ctx, e); err != nil {
		if s.observer != nil {
			s.observer.EntryFailed(e, err)
		}
		return Entry{}, fmt.Errorf("audit: append: %w", err)
	}
	if s.observer != nil {
		s.observer.EntryRecorded(e)
	}
	return e, nil
}

// Log records e and swallows any failure after reporting it to the
// operational log. The bool reports whether the entry was written.
func (s *Service) Log(ctx context.Context, e Entry) (Entry, bool) {
	out, err := s.Record(ctx, e)
	if err != nil {
		s.logger(ctx).Error("audit write failed",
			"action", string(e.Action),
			"resource_type", e.ResourceType,
			"resource_id", e.ResourceID,
			"err", err,
		)
		return Entry{}, false
	}
	return out, true
}

// List returns entries matching f, newest first unless f.Ordering says otherwise.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	if s == nil || s.repo == nil {
		return nil, errNoRepository
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return nil, fmt.Errorf("%w: severity %q", ErrInvalidFilter, f.Severity)
	}
	if f.Action != "" && !f.Action.Valid() {
		return nil, fmt.Errorf("%w: action %q", ErrInvalidFilter, f.Action)
	}
	if !validOrdering(f.Ordering) {
		return nil, fmt.Errorf("%w: ordering %q", ErrInvalidFilter, f.Ordering)
	}
	return s.repo.List(ctx, f.normalized())
}

func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	if s == nil || s.repo == nil {
		return Entry{}, errNoRepository
	}
	if id == "" {
		return Entry{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) logger(ctx context.Context) *slog.Logger {
	l := logger.From(ctx)
	if l == slog.Default() && s != nil && s.log != nil {
		return s.log
	}
	return l
}

// cloneDetails deep-copies nested maps and slices so a stored entry cannot be
// changed through a reference the caller kept.
func cloneDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDetails(t)
	case []any:
		cp := make([]any, len(t))
		for i := range t {
			cp[i] = cloneValue(t[i])
		}
		return cp
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
