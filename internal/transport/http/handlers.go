package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/broker"
	"github.com/holo2k/AdvertControl-sub000/internal/models"
	"github.com/holo2k/AdvertControl-sub000/internal/resolver"
	"github.com/holo2k/AdvertControl-sub000/pkg/storage"
)

// PairingBroker is the broker surface the transport depends on.
type PairingBroker interface {
	Register(tempDeviceID, code string, ttl time.Duration, deviceInfo json.RawMessage) error
	Confirm(ctx context.Context, code, name, location string) (string, error)
	Status(tempDeviceID string) (string, bool)
}

// ConfigResolver answers conditional config fetches.
type ConfigResolver interface {
	Resolve(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, resolver.Resolution)
}

// ScreenDirectory answers screen existence checks.
type ScreenDirectory interface {
	ScreenExists(ctx context.Context, screenID string) (bool, error)
}

// Server wires the pairing broker, the config resolver and the screen
// directory behind the HTTP API consumed by devices and the operator path.
type Server struct {
	broker   PairingBroker
	resolver ConfigResolver
	screens  ScreenDirectory
	signer   storage.URLSigner

	maxCodeTTL   time.Duration
	signedURLTTL time.Duration
	logger       zerolog.Logger
}

// NewServer builds the HTTP surface. signer may be nil when no object
// storage is configured; the asset route then answers 404.
func NewServer(b PairingBroker, r ConfigResolver, screens ScreenDirectory, signer storage.URLSigner,
	maxCodeTTL, signedURLTTL time.Duration, logger zerolog.Logger) *Server {

	return &Server{
		broker:       b,
		resolver:     r,
		screens:      screens,
		signer:       signer,
		maxCodeTTL:   maxCodeTTL,
		signedURLTTL: signedURLTTL,
		logger:       logger,
	}
}

// Handler returns the fully routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// handlePairingRegister reserves a pairing code for a temp device id.
// A reserved code answers 409 so the device can tell conflict from success.
func (s *Server) handlePairingRegister(w http.ResponseWriter, r *http.Request) {
	var req models.PairingRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.TempDeviceID == "" || req.Code == "" {
		http.Error(w, "temp_device_id and code are required", http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	if ttl <= 0 || ttl > s.maxCodeTTL {
		ttl = s.maxCodeTTL
	}

	if err := s.broker.Register(req.TempDeviceID, req.Code, ttl, req.DeviceInfo); err != nil {
		if errors.Is(err, broker.ErrCodeReserved) {
			http.Error(w, "code already reserved", http.StatusConflict)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// handlePairingStatus delivers a confirmed assignment at most once.
func (s *Server) handlePairingStatus(w http.ResponseWriter, r *http.Request) {
	tempID := chi.URLParam(r, "tempID")

	screenID, assigned := s.broker.Status(tempID)
	writeJSON(w, http.StatusOK, models.PairingStatusResponse{
		Assigned: assigned,
		ScreenID: screenID,
	})
}

// handlePairingConfirm binds a code to a new screen record.
func (s *Server) handlePairingConfirm(w http.ResponseWriter, r *http.Request) {
	var req models.PairingConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.Name == "" {
		http.Error(w, "code and name are required", http.StatusBadRequest)
		return
	}

	screenID, err := s.broker.Confirm(r.Context(), req.Code, req.Name, req.Location)
	if err != nil {
		if errors.Is(err, broker.ErrCodeNotFound) {
			http.Error(w, "unknown or expired code", http.StatusNotFound)
			return
		}
		s.logger.Error().Err(err).Msg("Pairing confirmation failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.PairingConfirmResponse{ScreenID: screenID})
}

// handleScreenExists answers the device's periodic existence check.
func (s *Server) handleScreenExists(w http.ResponseWriter, r *http.Request) {
	screenID := chi.URLParam(r, "screenID")

	exists, err := s.screens.ScreenExists(r.Context(), screenID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "screen not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": true})
}

// handleResolveConfig maps the resolver's tri-state onto HTTP:
// fresh snapshot -> 200, not modified -> 304, no content -> 204.
func (s *Server) handleResolveConfig(w http.ResponseWriter, r *http.Request) {
	screenID := chi.URLParam(r, "screenID")

	knownVersion := models.VersionNone
	if v := r.URL.Query().Get("known_version"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid known_version", http.StatusBadRequest)
			return
		}
		knownVersion = parsed
	}

	snap, res := s.resolver.Resolve(r.Context(), screenID, knownVersion)
	switch res {
	case resolver.ResolutionNotModified:
		w.WriteHeader(http.StatusNotModified)
	case resolver.ResolutionUnavailable:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

// handleAsset redirects to a short-lived signed URL for the named object.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if s.signer == nil {
		http.Error(w, "asset storage not configured", http.StatusNotFound)
		return
	}

	url, err := s.signer.SignedGetURL(r.Context(), name, s.signedURLTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("asset", name).Msg("Failed to sign asset URL")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
