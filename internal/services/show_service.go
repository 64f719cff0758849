package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// Materializer ensures an asset is present as a local file.
type Materializer interface {
	Materialize(ctx context.Context, reference, checksum string) (string, error)
}

// ShowService renders the staged snapshot's items in order, independent of
// the poll cadence. It only ever talks to the poll loop through the
// snapshot cell.
type ShowService struct {
	idleInterval       time.Duration
	defaultItemSeconds int

	cell     *SnapshotCell
	cache    Materializer
	renderer display.Renderer
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewShowService initializes a new ShowService.
func NewShowService(idleInterval time.Duration, defaultItemSeconds int, cell *SnapshotCell,
	cache Materializer, renderer display.Renderer, logger zerolog.Logger) *ShowService {

	return &ShowService{
		idleInterval:       idleInterval,
		defaultItemSeconds: defaultItemSeconds,
		cell:               cell,
		cache:              cache,
		renderer:           renderer,
		logger:             logger,
	}
}

// Start launches the show loop in a separate goroutine.
func (s *ShowService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.logger.Warn().Msg("ShowService is already running")
		return errors.New("show service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runShowLoop()
	}()

	s.logger.Info().Msg("ShowService started successfully")
	return nil
}

// Stop gracefully stops the show service. The loop is observed to exit
// within one idle interval or one item duration.
func (s *ShowService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		s.logger.Warn().Msg("ShowService is not running")
		return errors.New("show service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("ShowService stopped successfully")
	return nil
}

// runShowLoop cycles through the staged snapshot. An empty cell idles on a
// short poll; a static snapshot is rendered once and then idles until the
// snapshot changes.
func (s *ShowService) runShowLoop() {
	finishedStatic := models.VersionNone

	for {
		if s.ctx.Err() != nil {
			s.logger.Info().Msg("ShowService stopping gracefully")
			return
		}

		snap := s.cell.Latest()
		if snap == nil || len(snap.Items) == 0 {
			if err := sleepCtx(s.ctx, s.idleInterval); err != nil {
				return
			}
			continue
		}
		if snap.Static && snap.Version == finishedStatic {
			if err := sleepCtx(s.ctx, s.idleInterval); err != nil {
				return
			}
			continue
		}

		if s.showPass(snap) && snap.Static {
			finishedStatic = snap.Version
		}
	}
}

// showPass renders one full pass over the snapshot's items in stable Order.
// It returns false when the pass was cut short by cancellation or by a
// snapshot swap; the caller then restarts from item 1 of whatever is
// staged.
func (s *ShowService) showPass(snap *models.ConfigSnapshot) bool {
	for _, item := range snap.SortedItems() {
		if s.ctx.Err() != nil {
			return false
		}
		if s.cell.Latest() != snap {
			s.logger.Info().Msg("Snapshot changed mid-cycle, restarting from the first item")
			return false
		}

		localPath := ""
		if item.Type != models.ItemTypeTable {
			path, err := s.cache.Materialize(s.ctx, item.AssetReference, item.Checksum)
			if err != nil {
				s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Failed to materialize asset, skipping item")
				s.renderer.SetStatus(fmt.Sprintf("asset unavailable: %s", item.ID))
				continue
			}
			localPath = path
		}

		if err := s.renderer.DisplayItem(s.ctx, item, localPath); err != nil {
			// Corrupt or undecodable asset: advance immediately rather
			// than stalling the whole loop.
			s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Display error, skipping item")
			continue
		}

		seconds := item.DurationSeconds
		if seconds <= 0 {
			seconds = s.defaultItemSeconds
		}
		if err := sleepCtx(s.ctx, time.Duration(seconds)*time.Second); err != nil {
			return false
		}
	}

	return true
}
