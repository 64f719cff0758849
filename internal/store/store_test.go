package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
	"github.com/holo2k/AdvertControl-sub000/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "advert.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStore_ScreenLifecycle tests create, existence check and deletion.
func TestStore_ScreenLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateScreen(ctx, "Lobby", "HQ")
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	exists, err := s.ScreenExists(ctx, id)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ScreenExists(ctx, "no-such-screen")
	assert.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.DeleteScreen(ctx, id))
	assert.ErrorIs(t, s.DeleteScreen(ctx, id), store.ErrScreenNotFound)

	exists, err = s.ScreenExists(ctx, id)
	assert.NoError(t, err)
	assert.False(t, exists)
}

// TestStore_ActiveConfig_NoConfig tests the distinct "no config" answer.
func TestStore_ActiveConfig_NoConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateScreen(ctx, "Lobby", "HQ")
	assert.NoError(t, err)

	_, err = s.ActiveConfig(ctx, id)
	assert.ErrorIs(t, err, store.ErrNoConfig)
}

// TestStore_ReplaceConfig_RoundTrip tests that a stored config comes back
// with its items in playlist order, inline payload included.
func TestStore_ReplaceConfig_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateScreen(ctx, "Lobby", "HQ")
	assert.NoError(t, err)

	snap := &models.ConfigSnapshot{
		Version:   7,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Items: []models.ConfigItem{
			{ID: "i2", Type: models.ItemTypeVideo, AssetReference: "clip.mp4", Checksum: "c2", DurationSeconds: 30, Order: 2},
			{ID: "i1", Type: models.ItemTypeImage, AssetReference: "banner.png", Checksum: "c1", SizeBytes: 1024, DurationSeconds: 10, Order: 1},
			{ID: "i3", Type: models.ItemTypeTable, InlinePayload: json.RawMessage(`{"rows":[["a","b"]]}`), DurationSeconds: 15, Order: 3},
		},
	}
	assert.NoError(t, s.ReplaceConfig(ctx, id, snap))

	got, err := s.ActiveConfig(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), got.Version)
	assert.Len(t, got.Items, 3)
	assert.Equal(t, "i1", got.Items[0].ID)
	assert.Equal(t, "i2", got.Items[1].ID)
	assert.Equal(t, "i3", got.Items[2].ID)
	assert.Equal(t, "banner.png", got.Items[0].AssetReference)
	assert.Equal(t, int64(1024), got.Items[0].SizeBytes)
	assert.JSONEq(t, `{"rows":[["a","b"]]}`, string(got.Items[2].InlinePayload))
}

// TestStore_ReplaceConfig_Wholesale tests that a new version fully replaces
// the previous item set.
func TestStore_ReplaceConfig_Wholesale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateScreen(ctx, "Lobby", "HQ")
	assert.NoError(t, err)

	first := &models.ConfigSnapshot{
		Version: 1,
		Items: []models.ConfigItem{
			{ID: "old-1", Type: models.ItemTypeImage, AssetReference: "old.png", Order: 1},
			{ID: "old-2", Type: models.ItemTypeImage, AssetReference: "older.png", Order: 2},
		},
	}
	assert.NoError(t, s.ReplaceConfig(ctx, id, first))

	second := &models.ConfigSnapshot{
		Version: 2,
		Static:  true,
		Items: []models.ConfigItem{
			{ID: "new-1", Type: models.ItemTypeImage, AssetReference: "new.png", Order: 1},
		},
	}
	assert.NoError(t, s.ReplaceConfig(ctx, id, second))

	got, err := s.ActiveConfig(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.Static)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "new-1", got.Items[0].ID)
}

// TestStore_ReplaceConfig_UnknownScreen tests that configs cannot be
// attached to screens that do not exist.
func TestStore_ReplaceConfig_UnknownScreen(t *testing.T) {
	s := openTestStore(t)

	err := s.ReplaceConfig(context.Background(), "no-such-screen", &models.ConfigSnapshot{Version: 1})
	assert.ErrorIs(t, err, store.ErrScreenNotFound)
}

// TestStore_DeleteScreen_CascadesConfig tests that deleting a screen
// removes its config too.
func TestStore_DeleteScreen_CascadesConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateScreen(ctx, "Lobby", "HQ")
	assert.NoError(t, err)
	assert.NoError(t, s.ReplaceConfig(ctx, id, &models.ConfigSnapshot{
		Version: 1,
		Items:   []models.ConfigItem{{ID: "i1", Type: models.ItemTypeImage, AssetReference: "a.png", Order: 1}},
	}))

	assert.NoError(t, s.DeleteScreen(ctx, id))

	_, err = s.ActiveConfig(ctx, id)
	assert.ErrorIs(t, err, store.ErrNoConfig)
}
