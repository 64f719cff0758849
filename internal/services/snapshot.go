package services

import (
	"sync/atomic"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// SnapshotCell is the single point of contact between the poll loop and the
// show loop. The poll loop publishes brand-new, fully built snapshots with
// one atomic swap; the show loop reads whatever is current. Published
// snapshots are never mutated afterwards, so readers always see a
// consistent item list.
type SnapshotCell struct {
	current atomic.Pointer[models.ConfigSnapshot]
}

// NewSnapshotCell returns an empty cell.
func NewSnapshotCell() *SnapshotCell {
	return &SnapshotCell{}
}

// Publish atomically replaces the staged snapshot.
func (c *SnapshotCell) Publish(snap *models.ConfigSnapshot) {
	c.current.Store(snap)
}

// Latest returns the staged snapshot, or nil when none has been published.
func (c *SnapshotCell) Latest() *models.ConfigSnapshot {
	return c.current.Load()
}
