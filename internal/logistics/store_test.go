package logistics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(UniqueKey[Vehicle]{Name: "plate", Key: func(v Vehicle) string { return v.Plate }})

	a, err := s.Create(ctx, Vehicle{Plate: "AA-1", CapacityKg: 100, Status: "Available"})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	b, err := s.Create(ctx, Vehicle{Plate: "BB-2", CapacityKg: 200, Status: "Available"})
	require.NoError(t, err)

	_, err = s.Create(ctx, Vehicle{Plate: "aa-1"})
	require.ErrorIs(t, err, ErrConflict)

	require.Equal(t, []Vehicle{a, b}, s.List(ctx))

	b.Plate = "AA-1"
	_, err = s.Update(ctx, b)
	require.ErrorIs(t, err, ErrConflict)

	a.Status = "Maintenance"
	_, err = s.Update(ctx, a)
	require.NoError(t, err)
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Maintenance", got.Status)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, a.ID)
	require.True(t, errors.Is(err, ErrNotFound))
	require.ErrorIs(t, s.Delete(ctx, a.ID), ErrNotFound)
	_, err = s.Update(ctx, a)
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, s.List(ctx), 1)
}
