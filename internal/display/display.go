package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// Renderer is the output surface of the agent: pairing UI, playlist items
// and the one-line status text. Implementations must tolerate being called
// from the pairing, poll and show loops concurrently.
type Renderer interface {
	// ShowPairing displays the human code and a scannable link encoding it.
	ShowPairing(code, link string)

	// HidePairing removes the pairing UI once the device is paired.
	HidePairing()

	// DisplayItem puts one playlist item on screen. localPath is empty for
	// inline items, which render from their payload. An error means the
	// item could not be displayed and the caller should advance.
	DisplayItem(ctx context.Context, item models.ConfigItem, localPath string) error

	// SetStatus replaces the human-readable status line.
	SetStatus(text string)

	// StatusText returns the current status line.
	StatusText() string
}

// LogRenderer writes every display action to the log. It stands in for the
// real video output on headless builds and in tests.
type LogRenderer struct {
	logger zerolog.Logger

	mu     sync.Mutex
	status string
}

// NewLogRenderer creates a LogRenderer.
func NewLogRenderer(logger zerolog.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

// ShowPairing logs the pairing code and link.
func (r *LogRenderer) ShowPairing(code, link string) {
	r.logger.Info().Str("code", code).Str("link", link).Msg("Displaying pairing code")
}

// HidePairing logs the removal of the pairing UI.
func (r *LogRenderer) HidePairing() {
	r.logger.Info().Msg("Hiding pairing UI")
}

// DisplayItem logs the item being shown. Inline items without a payload and
// media items without a local file are reported as display errors.
func (r *LogRenderer) DisplayItem(_ context.Context, item models.ConfigItem, localPath string) error {
	switch item.Type {
	case models.ItemTypeImage, models.ItemTypeVideo:
		if localPath == "" {
			return fmt.Errorf("no local file for %s item %s", item.Type, item.ID)
		}
		r.logger.Info().
			Str("item_id", item.ID).
			Str("type", string(item.Type)).
			Str("path", localPath).
			Int("duration_seconds", item.DurationSeconds).
			Msg("Displaying media item")
	case models.ItemTypeTable:
		if len(item.InlinePayload) == 0 {
			return fmt.Errorf("no inline payload for table item %s", item.ID)
		}
		r.logger.Info().
			Str("item_id", item.ID).
			Int("payload_bytes", len(item.InlinePayload)).
			Int("duration_seconds", item.DurationSeconds).
			Msg("Displaying table item")
	default:
		return fmt.Errorf("unknown item type %q for item %s", item.Type, item.ID)
	}

	return nil
}

// SetStatus replaces the status line.
func (r *LogRenderer) SetStatus(text string) {
	r.mu.Lock()
	r.status = text
	r.mu.Unlock()
	r.logger.Debug().Str("status", text).Msg("Status updated")
}

// StatusText returns the current status line.
func (r *LogRenderer) StatusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
