package audit

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Resource is implemented by every audited domain type.
type Resource interface {
	// AuditID is the resource identifier as stored in entries.
	AuditID() string
	// AuditFields is the full field snapshot used for create details and update diffs.
	AuditFields() map[string]any
}

// Change is one field's before/after pair.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Snapshot normalizes a field map for stable comparison and serialization:
// floats and Stringer values (money, decimals) become strings, times become
// RFC 3339 strings.
func Snapshot(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

// Diff returns the fields present in both snapshots whose values differ.
// Unchanged fields never appear.
func Diff(before, after map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for field, newVal := range after {
		oldVal, ok := before[field]
		if !ok {
			continue
		}
		if reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		changes[field] = Change{Before: oldVal, After: newVal}
	}
	return changes
}

// ChangedFields is the sorted key set of changes.
func ChangedFields(changes map[string]Change) []string {
	fields := make([]string, 0, len(changes))
	for f := range changes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func changesDetail(changes map[string]Change) map[string]any {
	out := make(map[string]any, len(changes))
	for f, c := range changes {
		out[f] = map[string]any{"before": c.Before, "after": c.After}
	}
	return out
}
