package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/api"
	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/internal/services"
	"github.com/holo2k/AdvertControl-sub000/internal/utils"
	"github.com/holo2k/AdvertControl-sub000/pkg/identity"
	"github.com/holo2k/AdvertControl-sub000/pkg/mqtt"
)

// State names the device's pairing state.
type State string

const (
	// StateNotPaired means no identity is present.
	StateNotPaired State = "not_paired"
	// StatePairing means the pairing ceremony is in progress.
	StatePairing State = "pairing"
	// StatePaired means both playback loops are running.
	StatePaired State = "paired"
)

// StateMachine orchestrates the NotPaired -> Pairing -> Paired transitions
// and gates which loops run. It has no terminal state; it runs for the
// process lifetime.
type StateMachine struct {
	cfg        *utils.Config
	client     api.BackendAPI
	screenInfo identity.ScreenInfoInterface
	renderer   display.Renderer
	cache      services.Materializer
	mqttClient mqtt.MQTTClient // nil disables the status publisher
	deviceInfo json.RawMessage
	logger     zerolog.Logger

	// now feeds the poll loop's existence-check schedule. Tests pin it to
	// a check boundary; production uses the wall clock.
	now func() time.Time

	mu    sync.RWMutex
	state State
}

// NewStateMachine wires the state machine. mqttClient may be nil when
// status publishing is disabled.
func NewStateMachine(cfg *utils.Config, client api.BackendAPI, screenInfo identity.ScreenInfoInterface,
	renderer display.Renderer, cache services.Materializer, mqttClient mqtt.MQTTClient,
	deviceInfo json.RawMessage, logger zerolog.Logger) *StateMachine {

	return &StateMachine{
		cfg:        cfg,
		client:     client,
		screenInfo: screenInfo,
		renderer:   renderer,
		cache:      cache,
		mqttClient: mqttClient,
		deviceInfo: deviceInfo,
		logger:     logger,
		now:        time.Now,
		state:      StateNotPaired,
	}
}

// State returns the current state.
func (m *StateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *StateMachine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.logger.Info().Str("state", string(s)).Msg("State transition")
}

// Run drives the machine until ctx is cancelled. A persisted identity is
// verified against the server before settling into Paired; an identity the
// server no longer recognizes is cleared before a new pairing code is ever
// generated.
func (m *StateMachine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		screenID := m.screenInfo.GetScreenID()
		if screenID != "" {
			exists, err := m.client.ScreenExists(ctx, screenID)
			switch {
			case err != nil:
				// Transient: keep the identity and proceed as paired; the
				// periodic existence check will settle it.
				m.logger.Warn().Err(err).Msg("Boot existence check failed, proceeding with stored identity")
			case !exists:
				m.logger.Warn().Str("screen_id", screenID).Msg("Stored identity is no longer recognized, clearing it")
				if err := m.screenInfo.ClearScreenID(); err != nil {
					m.logger.Error().Err(err).Msg("Failed to clear screen identity")
				}
				screenID = ""
			}
		}

		if screenID == "" {
			m.setState(StatePairing)
			pairing := services.NewPairingService(
				m.cfg.Server.BaseURL,
				m.cfg.Pairing.TTLMinutes,
				m.cfg.Pairing.PollInterval,
				m.cfg.Pairing.Window,
				m.cfg.Pairing.RetryDelay,
				m.cfg.Pairing.IdleDelay,
				m.deviceInfo,
				m.client,
				m.screenInfo,
				m.renderer,
				m.logger,
			)

			id, err := pairing.Run(ctx)
			if err != nil {
				return err
			}
			screenID = id
		}

		m.setState(StatePaired)
		m.renderer.HidePairing()

		demoted, err := m.runPaired(ctx, screenID)
		if err != nil {
			return err
		}
		if demoted {
			m.setState(StateNotPaired)
		}
	}
}

// runPaired starts the playback loops and blocks until the process is
// cancelled or the periodic existence check demotes the device. The
// identity is cleared before runPaired reports the demotion.
func (m *StateMachine) runPaired(ctx context.Context, screenID string) (bool, error) {
	demoted := make(chan struct{})
	var once sync.Once
	onScreenGone := func() {
		once.Do(func() { close(demoted) })
	}

	cell := services.NewSnapshotCell()
	registry := services.NewRegistry(m.logger)
	registry.Register("poll", services.NewPollService(
		screenID, m.cfg.Poll.Interval, m.client, cell, m.renderer, onScreenGone, m.now, m.logger))
	registry.Register("show", services.NewShowService(
		m.cfg.Playback.IdleInterval, m.cfg.Playback.DefaultItemSeconds, cell, m.cache, m.renderer, m.logger))
	if m.mqttClient != nil {
		registry.Register("status", services.NewStatusService(
			m.cfg.Status.Topic, m.cfg.Status.Interval, m.cfg.Status.QOS, m.screenInfo,
			func() string { return string(m.State()) }, m.renderer.StatusText, m.mqttClient, m.logger))
	}

	if err := registry.StartAll(); err != nil {
		return false, err
	}
	defer func() {
		if err := registry.StopAll(); err != nil {
			m.logger.Error().Err(err).Msg("Service stop failure")
		}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-demoted:
		m.logger.Warn().Str("screen_id", screenID).Msg("Screen was deleted on the server, returning to pairing")
		if err := m.screenInfo.ClearScreenID(); err != nil {
			m.logger.Error().Err(err).Msg("Failed to clear screen identity")
		}
		return true, nil
	}
}
