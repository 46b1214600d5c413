package logistics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UniqueKey names a field whose non-empty values must be unique in a store.
type UniqueKey[T any] struct {
	Name string
	Key  func(T) string
}

// MemoryStore is an in-process collection of one entity type.
// Records are returned in insertion order. Values are copied in and out.
type MemoryStore[T Entity[T]] struct {
	mu     sync.RWMutex
	byID   map[string]T
	order  []string
	unique []UniqueKey[T]
}

func NewMemoryStore[T Entity[T]](unique ...UniqueKey[T]) *MemoryStore[T] {
	return &MemoryStore[T]{byID: make(map[string]T), unique: unique}
}

// Create assigns a fresh id and stores v.
func (s *MemoryStore[T]) Create(ctx context.Context, v T) (T, error) {
	_ = ctx
	v = v.WithID(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(v); err != nil {
		var zero T
		return zero, err
	}
	s.byID[v.AuditID()] = v
	s.order = append(s.order, v.AuditID())
	return v, nil
}

func (s *MemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v, nil
}

func (s *MemoryStore[T]) List(ctx context.Context) []T {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Find returns the first record matching pred, in insertion order.
func (s *MemoryStore[T]) Find(ctx context.Context, pred func(T) bool) (T, bool) {
	for _, v := range s.List(ctx) {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Update replaces an existing record.
func (s *MemoryStore[T]) Update(ctx context.Context, v T) (T, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[v.AuditID()]; !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, v.AuditID())
	}
	if err := s.checkUnique(v); err != nil {
		var zero T
		return zero, err
	}
	s.byID[v.AuditID()] = v
	return v, nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// CheckUnique reports the conflict v would cause if it were stored now.
func (s *MemoryStore[T]) CheckUnique(v T) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkUnique(v)
}

// caller holds s.mu
func (s *MemoryStore[T]) checkUnique(v T) error {
	for _, u := range s.unique {
		key := strings.ToLower(u.Key(v))
		if key == "" {
			continue
		}
		for id, other := range s.byID {
			if id == v.AuditID() {
				continue
			}
			if strings.ToLower(u.Key(other)) == key {
				return fmt.Errorf("%w: %s %q already exists", ErrConflict, u.Name, u.Key(v))
			}
		}
	}
	return nil
}
