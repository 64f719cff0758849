package models

import (
	"encoding/json"
	"sort"
	"time"
)

// VersionNone marks a device that has not seen any config yet.
const VersionNone int64 = -1

// ItemType identifies how a config item is rendered.
type ItemType string

const (
	// ItemTypeImage is a still image materialized from the content cache.
	ItemTypeImage ItemType = "image"
	// ItemTypeVideo is a video file materialized from the content cache.
	ItemTypeVideo ItemType = "video"
	// ItemTypeTable is tabular data rendered directly from its inline payload.
	ItemTypeTable ItemType = "table"
)

// ConfigItem is a single entry of a screen's playlist. Items are immutable
// once they are part of a snapshot.
type ConfigItem struct {
	// ID is the unique identifier of the item.
	ID string `json:"id"`

	// Type selects the rendering path for the item.
	Type ItemType `json:"type"`

	// AssetReference is the name or URL of the item's media asset.
	// Empty for inline items.
	AssetReference string `json:"asset_reference,omitempty"`

	// InlinePayload carries the raw data of table items.
	InlinePayload json.RawMessage `json:"inline_payload,omitempty"`

	// Checksum is the SHA-256 hex digest of the asset's bytes. It keys the
	// content cache and is verified after every download.
	Checksum string `json:"checksum,omitempty"`

	// SizeBytes is the asset size as reported by the server.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// DurationSeconds is how long the item stays on screen.
	DurationSeconds int `json:"duration_seconds"`

	// Order is the explicit playlist position. Duplicates are allowed and
	// resolved by stable sort.
	Order int `json:"order"`
}

// ConfigSnapshot is the versioned playlist a screen renders. A snapshot is
// always replaced wholesale, never mutated in place.
type ConfigSnapshot struct {
	Version   int64        `json:"version"`
	UpdatedAt time.Time    `json:"updated_at"`
	Static    bool         `json:"static,omitempty"`
	Items     []ConfigItem `json:"items"`
}

// SortedItems returns a copy of the snapshot's items stably sorted by Order.
// Ties keep their original list position.
func (s *ConfigSnapshot) SortedItems() []ConfigItem {
	items := make([]ConfigItem, len(s.Items))
	copy(items, s.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})
	return items
}
