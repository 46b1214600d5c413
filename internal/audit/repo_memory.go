package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests
// and local runs. It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Details = cloneDetails(e.Details)
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns every stored entry in append order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Details = cloneDetails(e.Details)
		out[i] = e
	}
	return out
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.Details = cloneDetails(e.Details)
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Entry, error) {
	f = f.normalized()
	r.mu.Lock()
	// seq keeps arrival order as the tie-breaker
	type row struct {
		e   Entry
		seq int
	}
	rows := make([]row, 0, len(r.entries))
	for i, e := range r.entries {
		if matches(e, f) {
			e.Details = cloneDetails(e.Details)
			rows = append(rows, row{e: e, seq: i})
		}
	}
	r.mu.Unlock()

	desc := strings.HasPrefix(f.Ordering, "-")
	key := strings.TrimPrefix(f.Ordering, "-")
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var c int
		switch key {
		case "severity":
			c = a.e.Severity.rank() - b.e.Severity.rank()
		case "action":
			c = strings.Compare(string(a.e.Action), string(b.e.Action))
		}
		if c == 0 {
			c = a.e.Timestamp.Compare(b.e.Timestamp)
		}
		if c == 0 {
			c = a.seq - b.seq
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	if f.Offset >= len(rows) {
		return []Entry{}, nil
	}
	rows = rows[f.Offset:]
	if len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].e
	}
	return out, nil
}

func matches(e Entry, f Filter) bool {
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		for _, field := range []string{e.Username, string(e.Action), e.ResourceType, e.IPAddress} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
	return true
}
