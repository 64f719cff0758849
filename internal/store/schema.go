package store

// schema contains the database schema DDL.
const schema = `
-- Screens
CREATE TABLE IF NOT EXISTS screens (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    location TEXT,
    paired INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Active config per screen
CREATE TABLE IF NOT EXISTS screen_configs (
    screen_id TEXT PRIMARY KEY REFERENCES screens(id) ON DELETE CASCADE,
    version INTEGER NOT NULL,
    static INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);

-- Ordered playlist items of the active config
CREATE TABLE IF NOT EXISTS config_items (
    id TEXT NOT NULL,
    screen_id TEXT NOT NULL REFERENCES screens(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    type TEXT NOT NULL,
    asset_ref TEXT,
    inline_payload TEXT,
    checksum TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (screen_id, id)
);
CREATE INDEX IF NOT EXISTS idx_config_items_screen ON config_items(screen_id, position);
`
