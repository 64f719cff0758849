package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

var (
	// ErrScreenNotFound is returned for operations on an unknown screen id.
	ErrScreenNotFound = errors.New("screen not found")

	// ErrNoConfig is returned when a screen has no active config.
	ErrNoConfig = errors.New("screen has no active config")
)

// Store is the authoritative relational store for screens and their
// active configs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// WAL allows concurrent reads during writes; the busy timeout avoids
	// "database is locked" under contention.
	connStr := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateScreen inserts a new screen record and returns its generated id.
func (s *Store) CreateScreen(ctx context.Context, name, location string) (string, error) {
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screens (id, name, location, paired) VALUES (?, ?, ?, 1)`,
		id, name, location,
	)
	if err != nil {
		return "", fmt.Errorf("creating screen: %w", err)
	}

	return id, nil
}

// ScreenExists reports whether the screen id is known.
func (s *Store) ScreenExists(ctx context.Context, screenID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM screens WHERE id = ?`, screenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking screen existence: %w", err)
	}
	return true, nil
}

// DeleteScreen removes a screen and, via cascade, its config.
func (s *Store) DeleteScreen(ctx context.Context, screenID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM screens WHERE id = ?`, screenID)
	if err != nil {
		return fmt.Errorf("deleting screen: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrScreenNotFound
	}
	return nil
}

// ActiveConfig loads the screen's active config with items ordered by
// position. Returns ErrNoConfig when the screen has none.
func (s *Store) ActiveConfig(ctx context.Context, screenID string) (*models.ConfigSnapshot, error) {
	var (
		snap   models.ConfigSnapshot
		static int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, static, updated_at FROM screen_configs WHERE screen_id = ?`,
		screenID,
	).Scan(&snap.Version, &static, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("loading config header: %w", err)
	}
	snap.Static = static != 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, asset_ref, inline_payload, checksum, size_bytes, duration_seconds, position
		 FROM config_items WHERE screen_id = ? ORDER BY position, rowid`,
		screenID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading config items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    models.ConfigItem
			ref     sql.NullString
			payload sql.NullString
			sum     sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Type, &ref, &payload, &sum, &item.SizeBytes, &item.DurationSeconds, &item.Order); err != nil {
			return nil, fmt.Errorf("scanning config item: %w", err)
		}
		item.AssetReference = ref.String
		if payload.Valid && payload.String != "" {
			item.InlinePayload = json.RawMessage(payload.String)
		}
		item.Checksum = sum.String
		snap.Items = append(snap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating config items: %w", err)
	}

	return &snap, nil
}

// ReplaceConfig installs snap as the screen's active config, replacing any
// previous one wholesale.
func (s *Store) ReplaceConfig(ctx context.Context, screenID string, snap *models.ConfigSnapshot) error {
	exists, err := s.ScreenExists(ctx, screenID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrScreenNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning config replace: %w", err)
	}
	defer tx.Rollback()

	static := 0
	if snap.Static {
		static = 1
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO screen_configs (screen_id, version, static, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(screen_id) DO UPDATE SET version = excluded.version, static = excluded.static, updated_at = excluded.updated_at`,
		screenID, snap.Version, static, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing config header: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM config_items WHERE screen_id = ?`, screenID); err != nil {
		return fmt.Errorf("clearing config items: %w", err)
	}

	for _, item := range snap.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO config_items (id, screen_id, position, type, asset_ref, inline_payload, checksum, size_bytes, duration_seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, screenID, item.Order, string(item.Type), item.AssetReference, string(item.InlinePayload), item.Checksum, item.SizeBytes, item.DurationSeconds,
		)
		if err != nil {
			return fmt.Errorf("writing config item %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}
