package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/infrastructure/storage"
)

func TestInventoryService_AddNormalizesAndDeduplicates(t *testing.T) {
	svc := NewInventoryService(storage.NewMemoryInventory())
	ctx := context.Background()

	rec, created, err := svc.Add(ctx, "  Kimchi ")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "kimchi", rec.Name)

	again, created, err := svc.Add(ctx, "KIMCHI")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, rec.ID, again.ID)

	_, _, err = svc.Add(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestInventoryService_ListSortedByName(t *testing.T) {
	svc := NewInventoryService(storage.NewMemoryInventory())
	ctx := context.Background()
	for _, n := range []string{"udon", "kimchi", "ramen"} {
		_, _, err := svc.Add(ctx, n)
		require.NoError(t, err)
	}

	recs, err := svc.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"kimchi", "ramen", "udon"}, names)
}

func TestInventoryService_Delete(t *testing.T) {
	store := storage.NewMemoryInventory()
	svc := NewInventoryService(store)
	ctx := context.Background()

	rec, _, err := svc.Add(ctx, "tofu")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, rec.ID))
	require.ErrorIs(t, svc.Delete(ctx, rec.ID), storage.ErrNotFound)
}

func TestInventoryService_DeleteByName(t *testing.T) {
	store := storage.NewMemoryInventory()
	svc := NewInventoryService(store)
	ctx := context.Background()

	// Дубликаты могли появиться в обход сверки
	_, err := store.Insert(ctx, entity.NewIngredientFields("rice"))
	require.NoError(t, err)
	_, err = store.Insert(ctx, entity.NewIngredientFields("rice"))
	require.NoError(t, err)

	n, err := svc.DeleteByName(ctx, "Rice")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = svc.DeleteByName(ctx, "rice")
	require.ErrorIs(t, err, ErrIngredientNotFound)
}
