package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmunix/fetcharr/internal/quality"
)

func TestStore_Add(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	itemID := insertTestItem(t, db, "Dune")

	r := &Record{
		ItemID:         itemID,
		EventType:      EventGrabbed,
		SourceTitle:    "Dune.2024.1080p.WEB-DL.x264-GRP",
		Quality:        quality.NewModel(quality.WEBDL1080p),
		CustomFormats:  []string{"x265"},
		DownloadClient: "sabnzbd",
		DownloadID:     "nzo_1",
		Indexer:        "nzbgeek",
	}
	before := time.Now()
	require.NoError(t, store.Add(ctx, r))

	assert.NotZero(t, r.ID)
	assert.False(t, r.Date.Before(before.Add(-time.Second)), "zero date defaults to now")

	got, err := store.MostRecentForItem(ctx, itemID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, EventGrabbed, got.EventType)
	assert.Equal(t, quality.WEBDL1080p, got.Quality.Quality)
	assert.Equal(t, 1, got.Quality.Revision.Version)
	assert.Equal(t, []string{"x265"}, got.CustomFormats)
	assert.Equal(t, "nzo_1", got.DownloadID)
}

func TestStore_Add_Invalid(t *testing.T) {
	store := NewStore(setupTestDB(t))
	err := store.Add(context.Background(), &Record{EventType: EventGrabbed})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStore_MostRecentForItem_None(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	itemID := insertTestItem(t, db, "Dune")

	got, err := store.MostRecentForItem(context.Background(), itemID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_MostRecentForItem_Ordering(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	itemID := insertTestItem(t, db, "Dune")
	otherID := insertTestItem(t, db, "Arrival")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []*Record{
		{ItemID: itemID, EventType: EventGrabbed, Date: base, SourceTitle: "old grab", Quality: quality.NewModel(quality.HDTV720p)},
		{ItemID: itemID, EventType: EventImported, Date: base.Add(time.Hour), SourceTitle: "import", Quality: quality.NewModel(quality.HDTV720p)},
		{ItemID: itemID, EventType: EventDeleted, Date: base.Add(3 * time.Hour), SourceTitle: "deleted", Quality: quality.NewModel(quality.HDTV720p)},
		{ItemID: otherID, EventType: EventGrabbed, Date: base.Add(4 * time.Hour), SourceTitle: "other", Quality: quality.NewModel(quality.WEBDL1080p)},
	}
	for _, r := range records {
		require.NoError(t, store.Add(ctx, r))
	}

	got, err := store.MostRecentForItem(ctx, itemID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "import", got.SourceTitle, "deleted events are not grab-class")
	assert.Equal(t, EventImported, got.EventType)
	assert.True(t, got.Date.Equal(base.Add(time.Hour)))
}

func TestStore_List(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	itemID := insertTestItem(t, db, "Dune")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, e := range []EventType{EventGrabbed, EventFailed, EventGrabbed} {
		require.NoError(t, store.Add(ctx, &Record{
			ItemID:      itemID,
			EventType:   e,
			Date:        base.Add(time.Duration(i) * time.Minute),
			SourceTitle: string(e),
			Quality:     quality.NewModel(quality.SDTV),
		}))
	}

	all, err := store.List(ctx, Filter{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.After(all[1].Date), "most recent first")

	grabbed := EventGrabbed
	onlyGrabs, err := store.List(ctx, Filter{EventType: &grabbed})
	require.NoError(t, err)
	assert.Len(t, onlyGrabs, 2)

	limited, err := store.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
