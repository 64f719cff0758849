package display_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// TestLogRenderer_DisplayItem covers the per-type preconditions.
func TestLogRenderer_DisplayItem(t *testing.T) {
	r := display.NewLogRenderer(zerolog.Nop())
	ctx := context.Background()

	image := models.ConfigItem{ID: "i1", Type: models.ItemTypeImage, AssetReference: "a.png"}
	assert.NoError(t, r.DisplayItem(ctx, image, "/tmp/cache/a.png"))
	assert.Error(t, r.DisplayItem(ctx, image, ""), "media without a local file cannot be shown")

	table := models.ConfigItem{ID: "t1", Type: models.ItemTypeTable, InlinePayload: json.RawMessage(`{"rows":[]}`)}
	assert.NoError(t, r.DisplayItem(ctx, table, ""))

	emptyTable := models.ConfigItem{ID: "t2", Type: models.ItemTypeTable}
	assert.Error(t, r.DisplayItem(ctx, emptyTable, ""))

	unknown := models.ConfigItem{ID: "u1", Type: "hologram"}
	assert.Error(t, r.DisplayItem(ctx, unknown, ""))
}

// TestLogRenderer_Status tests the status line round trip.
func TestLogRenderer_Status(t *testing.T) {
	r := display.NewLogRenderer(zerolog.Nop())

	assert.Empty(t, r.StatusText())
	r.SetStatus("waiting for confirmation")
	assert.Equal(t, "waiting for confirmation", r.StatusText())
}
