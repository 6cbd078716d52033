package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/quality"
)

func TestStore_Add(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	item := &Item{Title: "Dune", Year: 2021, QualityProfile: "hd"}
	require.NoError(t, store.Add(ctx, item))
	assert.NotZero(t, item.ID)
	assert.False(t, item.AddedAt.IsZero())

	got, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 2021, got.Year)
	assert.False(t, got.HasFile())
}

func TestStore_Add_Duplicate(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &Item{Title: "Dune", Year: 2021, QualityProfile: "hd"}))
	err := store.Add(ctx, &Item{Title: "Dune", Year: 2021, QualityProfile: "uhd"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))
	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateFile(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	item := &Item{Title: "Arrival", Year: 2016, QualityProfile: "hd"}
	require.NoError(t, store.Add(ctx, item))

	item.File = &File{
		Quality:       quality.Model{Quality: quality.Bluray1080p, Revision: quality.Revision{Version: 2, Real: 1}},
		CustomFormats: []string{"hdr"},
	}
	require.NoError(t, store.Update(ctx, item))

	got, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, got.HasFile())
	assert.Equal(t, quality.Bluray1080p, got.File.Quality.Quality)
	assert.Equal(t, quality.Revision{Version: 2, Real: 1}, got.File.Quality.Revision)
	assert.Equal(t, []string{"hdr"}, got.File.CustomFormats)

	missing := &Item{ID: 12345, Title: "Ghost", QualityProfile: "hd"}
	assert.ErrorIs(t, store.Update(ctx, missing), ErrNotFound)
}

func TestStore_List(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	items := []*Item{
		{Title: "Dune", Year: 2021, QualityProfile: "hd"},
		{Title: "Arrival", Year: 2016, QualityProfile: "uhd", File: &File{Quality: quality.NewModel(quality.WEBDL2160p)}},
		{Title: "Sicario", Year: 2015, QualityProfile: "hd"},
	}
	for _, item := range items {
		require.NoError(t, store.Add(ctx, item))
	}

	all, total, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	hd, total, err := store.List(ctx, Filter{QualityProfile: ptr("hd")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, hd, 2)

	missing, _, err := store.List(ctx, Filter{Missing: true})
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	page, total, err := store.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Arrival", page[0].Title)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	item := &Item{Title: "Dune", Year: 2021, QualityProfile: "hd"}
	require.NoError(t, store.Add(ctx, item))
	require.NoError(t, store.Delete(ctx, item.ID))
	require.NoError(t, store.Delete(ctx, item.ID), "delete is idempotent")

	_, err := store.Get(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTx_CommitAndRollback(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Add(ctx, &Item{Title: "Kept", QualityProfile: "hd"}))
	require.NoError(t, tx.Commit())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	dropped := &Item{Title: "Dropped", QualityProfile: "hd"}
	require.NoError(t, tx.Add(ctx, dropped))
	_, total, err := tx.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.NoError(t, tx.Rollback())

	_, total, err = store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
