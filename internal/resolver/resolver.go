package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
	"github.com/holo2k/AdvertControl-sub000/internal/store"
	"github.com/holo2k/AdvertControl-sub000/pkg/storage"
)

// Resolution is the tri-state outcome of a resolution strategy.
type Resolution int

const (
	// ResolutionFresh means a full snapshot is returned.
	ResolutionFresh Resolution = iota
	// ResolutionNotModified means the caller's known version is current.
	ResolutionNotModified
	// ResolutionUnavailable means this path has nothing for the screen.
	ResolutionUnavailable
)

// ConfigSource is the authoritative lookup of a screen's active config.
type ConfigSource interface {
	ActiveConfig(ctx context.Context, screenID string) (*models.ConfigSnapshot, error)
}

// strategy is one entry of the ordered resolution chain. A non-nil error
// marks the path as broken, letting the chain fall through to the next
// entry; Unavailable with a nil error is authoritative "no content".
type strategy interface {
	resolve(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, Resolution, error)
}

// Resolver answers conditional config fetches. It tries the authoritative
// store first and falls back to the last successfully resolved snapshot
// when the store cannot be reached.
type Resolver struct {
	chain    []strategy
	lastGood *lastGoodStrategy
	signer   storage.URLSigner
	urlTTL   time.Duration
	logger   zerolog.Logger
}

// NewResolver builds the resolution chain: store first, last-good cache
// second. signer may be nil when no object storage is configured, in which
// case asset references are passed through unchanged.
func NewResolver(source ConfigSource, signer storage.URLSigner, signedURLTTL time.Duration, logger zerolog.Logger) *Resolver {
	lastGood := &lastGoodStrategy{snapshots: cmap.New[*models.ConfigSnapshot]()}

	return &Resolver{
		chain: []strategy{
			&storeStrategy{source: source},
			lastGood,
		},
		lastGood: lastGood,
		signer:   signer,
		urlTTL:   signedURLTTL,
		logger:   logger,
	}
}

// Resolve returns the screen's config relative to knownVersion. The
// returned snapshot is nil unless the resolution is Fresh. Snapshots are
// remembered unsigned and signed on the way out, so a fallback served long
// after an outage began still carries live URLs.
func (r *Resolver) Resolve(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, Resolution) {
	for i, s := range r.chain {
		snap, res, err := s.resolve(ctx, screenID, knownVersion)
		if err != nil {
			r.logger.Warn().Err(err).Str("screen_id", screenID).Msg("Resolution path failed, trying fallback")
			continue
		}
		if res != ResolutionFresh {
			return nil, res
		}
		if i == 0 {
			r.lastGood.remember(screenID, snap)
		}

		signed, err := r.signItems(ctx, snap)
		if err != nil {
			// Unsigned references still resolve through the asset route,
			// serving them beats serving nothing.
			r.logger.Warn().Err(err).Str("screen_id", screenID).Msg("Asset signing failed, serving unsigned references")
			return snap, ResolutionFresh
		}
		return signed, ResolutionFresh
	}

	return nil, ResolutionUnavailable
}

// signItems returns a copy of snap with storage-backed asset references
// rewritten into short-lived signed URLs. The input snapshot is never
// touched; it may be the remembered fallback copy.
func (r *Resolver) signItems(ctx context.Context, snap *models.ConfigSnapshot) (*models.ConfigSnapshot, error) {
	if r.signer == nil {
		return snap, nil
	}

	signed := &models.ConfigSnapshot{
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
		Static:    snap.Static,
		Items:     make([]models.ConfigItem, 0, len(snap.Items)),
	}
	for _, item := range snap.Items {
		if isStorageReference(item.AssetReference) {
			url, err := r.signer.SignedGetURL(ctx, item.AssetReference, r.urlTTL)
			if err != nil {
				return nil, err
			}
			item.AssetReference = url
		}
		signed.Items = append(signed.Items, item)
	}

	return signed, nil
}

// isStorageReference reports whether the reference names an object in
// storage rather than an already fetchable URL.
func isStorageReference(ref string) bool {
	return ref != "" && !strings.Contains(ref, "://")
}

// storeStrategy resolves from the authoritative store.
type storeStrategy struct {
	source ConfigSource
}

func (s *storeStrategy) resolve(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, Resolution, error) {
	snap, err := s.source.ActiveConfig(ctx, screenID)
	if errors.Is(err, store.ErrNoConfig) {
		return nil, ResolutionUnavailable, nil
	}
	if err != nil {
		return nil, ResolutionUnavailable, err
	}

	if snap.Version == knownVersion {
		return nil, ResolutionNotModified, nil
	}

	return snap, ResolutionFresh, nil
}

// lastGoodStrategy serves the most recent successfully resolved snapshot
// per screen when the primary path is down.
type lastGoodStrategy struct {
	snapshots cmap.ConcurrentMap[string, *models.ConfigSnapshot]
}

func (s *lastGoodStrategy) remember(screenID string, snap *models.ConfigSnapshot) {
	s.snapshots.Set(screenID, snap)
}

func (s *lastGoodStrategy) resolve(_ context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, Resolution, error) {
	snap, ok := s.snapshots.Get(screenID)
	if !ok {
		return nil, ResolutionUnavailable, nil
	}
	if snap.Version == knownVersion {
		return nil, ResolutionNotModified, nil
	}
	return snap, ResolutionFresh, nil
}
