package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/api"
	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// PollService periodically performs the conditional config fetch and stages
// fresh snapshots for the show loop. On five-minute wall-clock boundaries
// it additionally verifies that the server still recognizes the screen id,
// reporting a vanished screen through the onScreenGone callback.
type PollService struct {
	screenID string
	interval time.Duration

	client       api.ConfigAPI
	cell         *SnapshotCell
	renderer     display.Renderer
	onScreenGone func()
	now          func() time.Time
	logger       zerolog.Logger

	knownVersion    int64
	lastCheckMinute time.Time
	goneOnce        sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPollService initializes a new PollService for the given screen id.
// now is the clock the existence-check schedule runs on; nil means
// time.Now.
func NewPollService(screenID string, interval time.Duration, client api.ConfigAPI, cell *SnapshotCell,
	renderer display.Renderer, onScreenGone func(), now func() time.Time, logger zerolog.Logger) *PollService {

	if now == nil {
		now = time.Now
	}

	return &PollService{
		screenID:     screenID,
		interval:     interval,
		client:       client,
		cell:         cell,
		renderer:     renderer,
		onScreenGone: onScreenGone,
		now:          now,
		logger:       logger,
		knownVersion: models.VersionNone,
	}
}

// Start launches the poll loop in a separate goroutine.
func (p *PollService) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		p.logger.Warn().Msg("PollService is already running")
		return errors.New("poll service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runPollLoop()
	}()

	p.logger.Info().Str("screen_id", p.screenID).Msg("PollService started successfully")
	return nil
}

// Stop gracefully stops the poll service.
func (p *PollService) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		p.logger.Warn().Msg("PollService is not running")
		return errors.New("poll service is not running")
	}

	p.cancel()
	p.wg.Wait()

	p.ctx = nil
	p.cancel = nil

	p.logger.Info().Msg("PollService stopped successfully")
	return nil
}

// runPollLoop repeats the conditional fetch at a fixed interval. Errors are
// reflected in the status line only; the loop always goes on.
func (p *PollService) runPollLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First fetch immediately so a freshly paired screen does not idle for
	// a full interval.
	p.pollOnce(p.ctx, p.now())

	for {
		select {
		case <-ticker.C:
			p.pollOnce(p.ctx, p.now())
		case <-p.ctx.Done():
			p.logger.Info().Msg("PollService stopping gracefully")
			return
		}
	}
}

// pollOnce performs one poll iteration: the conditional config fetch and,
// when due, the existence check.
func (p *PollService) pollOnce(ctx context.Context, now time.Time) {
	snap, result, err := p.client.ResolveConfig(ctx, p.screenID, p.knownVersion)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Config fetch failed")
		p.renderer.SetStatus(fmt.Sprintf("config fetch failed: %v", err))
	} else {
		switch result {
		case api.ResolveFresh:
			p.cell.Publish(snap)
			p.knownVersion = snap.Version
			p.renderer.SetStatus("")
			p.logger.Info().Int64("version", snap.Version).Int("items", len(snap.Items)).Msg("New config staged")
		case api.ResolveNotModified:
			// Current version is still live, nothing to do.
		case api.ResolveNoContent:
			p.renderer.SetStatus("no playlist assigned")
		}
	}

	if p.shouldCheckExistence(now) {
		p.checkExistence(ctx)
	}
}

// shouldCheckExistence fires once per wall-clock minute divisible by five,
// independent of config freshness.
func (p *PollService) shouldCheckExistence(now time.Time) bool {
	if now.Minute()%5 != 0 {
		return false
	}
	minute := now.Truncate(time.Minute)
	if minute.Equal(p.lastCheckMinute) {
		return false
	}
	p.lastCheckMinute = minute
	return true
}

// checkExistence asks the server whether the screen id is still known.
// Transient errors are ignored; a definite "not found" demotes the device.
func (p *PollService) checkExistence(ctx context.Context) {
	exists, err := p.client.ScreenExists(ctx, p.screenID)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Existence check failed, will retry on the next boundary")
		return
	}
	if exists {
		return
	}

	p.logger.Warn().Str("screen_id", p.screenID).Msg("Server no longer recognizes this screen")
	p.goneOnce.Do(p.onScreenGone)
}
