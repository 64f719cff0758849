package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// TestSnapshotCell tests publish and read-back including the empty state.
func TestSnapshotCell(t *testing.T) {
	cell := NewSnapshotCell()
	assert.Nil(t, cell.Latest())

	first := &models.ConfigSnapshot{Version: 1}
	cell.Publish(first)
	assert.Same(t, first, cell.Latest())

	second := &models.ConfigSnapshot{Version: 2}
	cell.Publish(second)
	assert.Same(t, second, cell.Latest())
}
