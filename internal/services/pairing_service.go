package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/api"
	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/pkg/identity"
)

// PairingService drives the pairing ceremony against the broker: reserve a
// fresh code, show it to the operator, poll for the confirmation, persist
// the assigned screen id.
type PairingService struct {
	// Configuration fields
	serverBaseURL string
	ttlMinutes    int
	pollInterval  time.Duration
	window        time.Duration
	retryDelay    time.Duration
	idleDelay     time.Duration
	deviceInfo    json.RawMessage

	// Dependencies
	client     api.PairingAPI
	screenInfo identity.ScreenInfoInterface
	renderer   display.Renderer
	logger     zerolog.Logger
}

// NewPairingService initializes and returns a new PairingService instance.
func NewPairingService(
	serverBaseURL string,
	ttlMinutes int,
	pollInterval time.Duration,
	window time.Duration,
	retryDelay time.Duration,
	idleDelay time.Duration,
	deviceInfo json.RawMessage,
	client api.PairingAPI,
	screenInfo identity.ScreenInfoInterface,
	renderer display.Renderer,
	logger zerolog.Logger,
) *PairingService {
	return &PairingService{
		serverBaseURL: serverBaseURL,
		ttlMinutes:    ttlMinutes,
		pollInterval:  pollInterval,
		window:        window,
		retryDelay:    retryDelay,
		idleDelay:     idleDelay,
		deviceInfo:    deviceInfo,
		client:        client,
		screenInfo:    screenInfo,
		renderer:      renderer,
		logger:        logger,
	}
}

// Run loops pairing attempts until an assignment arrives or ctx is
// cancelled. Each iteration uses a fresh temp device id and a fresh code;
// codes are never reused across attempts. The persisted identity is written
// before Run returns the screen id.
func (ps *PairingService) Run(ctx context.Context) (string, error) {
	for {
		tempDeviceID := uuid.New().String()
		code := fmt.Sprintf("%06d", rand.Intn(1000000))

		ok, err := ps.client.RegisterPairing(ctx, tempDeviceID, code, ps.ttlMinutes, ps.deviceInfo)
		if err != nil {
			// Transient: treated as "not yet registered", next attempt
			// generates a fresh code anyway.
			ps.logger.Warn().Err(err).Msg("Failed to register pairing code")
			ps.renderer.SetStatus("contacting server...")
			if err := sleepCtx(ctx, ps.retryDelay); err != nil {
				return "", err
			}
			continue
		}
		if !ok {
			// Conflict: the code is held by a concurrent session. Never
			// retry the same code.
			ps.logger.Info().Str("code", code).Msg("Pairing code already reserved, generating a new one")
			if err := sleepCtx(ctx, ps.retryDelay); err != nil {
				return "", err
			}
			continue
		}

		link := fmt.Sprintf("%s/pair?code=%s", ps.serverBaseURL, code)
		ps.renderer.ShowPairing(code, link)
		ps.renderer.SetStatus("waiting for confirmation")
		ps.logger.Info().Str("code", code).Str("temp_device_id", tempDeviceID).Msg("Pairing code registered, polling for assignment")

		screenID, err := ps.awaitAssignment(ctx, tempDeviceID)
		if err != nil {
			return "", err
		}
		if screenID != "" {
			if err := ps.screenInfo.SaveScreenID(screenID); err != nil {
				return "", fmt.Errorf("failed to persist screen id: %w", err)
			}
			ps.logger.Info().Str("screen_id", screenID).Msg("Device paired successfully")
			return screenID, nil
		}

		// Window elapsed without an assignment. Not an error, just another
		// iteration; the broker-side TTL of the old code has elapsed too.
		ps.renderer.SetStatus("no confirmation received, a new code will be shown")
		if err := sleepCtx(ctx, ps.idleDelay); err != nil {
			return "", err
		}
	}
}

// awaitAssignment polls the broker for the bounded confirmation window.
// It returns an empty screen id when the window elapses.
func (ps *PairingService) awaitAssignment(ctx context.Context, tempDeviceID string) (string, error) {
	deadline := time.Now().Add(ps.window)

	ticker := time.NewTicker(ps.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				return "", nil
			}

			status, err := ps.client.PairingStatus(ctx, tempDeviceID)
			if err != nil {
				// Network errors are swallowed and treated as "not yet
				// assigned".
				ps.logger.Debug().Err(err).Msg("Pairing status poll failed")
				ps.renderer.SetStatus("contacting server...")
				continue
			}
			if status.Assigned {
				return status.ScreenID, nil
			}

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
